// Package config handles configuration for the chat server, including
// defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/realmchat/internal/common"
)

// File storage backends.
const (
	StorageDisk   = "disk"
	StorageS3     = "s3"
	StorageMemory = "memory"
)

// Config holds runtime settings for the chat server.
//
// Fields:
//   - ListenAddr: bind address for the chat protocol.
//   - RealmName: id this server announces to peers in relayed frames.
//   - AdminHTTPAddr / AdminGRPCAddr: metrics+healthz and gRPC health; empty disables.
//   - SecretKey: HMAC secret for session tokens. Generated at start when empty.
//   - FileStorage: disk, s3 or memory. FilesDir is used by disk.
//   - S3*: object storage settings for the s3 backend.
//   - MaxFrameBytes: longest accepted request line.
//   - RealmDialTimeout / RealmRequestTimeout: federation link bounds.
//   - RateLimit / RateBurst: per-connection request rate, 0 disables.
//   - Log*: logger backend (slog, zap), format (json, text) and level.
//   - SeedUsers: create the demo accounts on start.
type Config struct {
	ListenAddr          string
	RealmName           string
	AdminHTTPAddr       string
	AdminGRPCAddr       string
	SecretKey           string
	FileStorage         string
	FilesDir            string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	MaxFrameBytes       int
	RealmDialTimeout    time.Duration
	RealmRequestTimeout time.Duration
	RateLimit           float64
	RateBurst           int
	LogBackend          string
	LogFormat           string
	LogLevel            string
	SeedUsers           bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8889"
	c.RealmName = ""
	c.AdminHTTPAddr = ":9090"
	c.AdminGRPCAddr = ":50051"
	c.SecretKey = ""
	c.FileStorage = StorageDisk
	c.FilesDir = "files"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "realmchat"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.MaxFrameBytes = 16 << 20
	c.RealmDialTimeout = 5 * time.Second
	c.RealmRequestTimeout = 10 * time.Second
	c.RateLimit = 50
	c.RateBurst = 100
	c.LogBackend = "slog"
	c.LogFormat = "json"
	c.LogLevel = "info"
	c.SeedUsers = true
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags. A
// missing secret key is replaced by a random one, which invalidates all
// sessions on restart.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)

	if cfg.SecretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			panic(err)
		}
		cfg.SecretKey = key
	}
	return cfg
}
