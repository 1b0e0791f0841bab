package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/realmchat/internal/flagx"
)

var knownFlags = []string{"-a", "-n", "-m", "-g", "-s", "-f", "-d", "-u", "-p", "-b", "-r", "-e", "-x", "-t", "-l", "-seed"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   chat listen address (e.g., ":8889")
//	-n string   realm name announced to peers
//	-m string   admin HTTP address, "" disables
//	-g string   admin gRPC address, "" disables
//	-s string   session token secret
//	-f string   file storage backend: disk, s3, memory
//	-d string   directory for the disk backend
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-x int      max request line size, bytes
//	-t int      realm dial timeout, seconds
//	-l string   log level
//	-seed bool  create the demo accounts
//
// Arguments are filtered with flagx.FilterArgs first so -c/-config and any
// other component's flags do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run chat server")
	fs.StringVar(&config.RealmName, "n", config.RealmName, "realm name announced to peers")
	fs.StringVar(&config.AdminHTTPAddr, "m", config.AdminHTTPAddr, "admin HTTP address")
	fs.StringVar(&config.AdminGRPCAddr, "g", config.AdminGRPCAddr, "admin gRPC address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.FileStorage, "f", config.FileStorage, "file storage backend")
	fs.StringVar(&config.FilesDir, "d", config.FilesDir, "files directory")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.IntVar(&config.MaxFrameBytes, "x", config.MaxFrameBytes, "max frame size (bytes)")

	dialTimeout := fs.Int("t", int(config.RealmDialTimeout.Seconds()), "realm dial timeout (in seconds)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.SeedUsers, "seed", config.SeedUsers, "seed demo users")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RealmDialTimeout = time.Duration(*dialTimeout) * time.Second
}
