package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/realmchat/internal/flagx"
	"github.com/dmitrijs2005/realmchat/internal/timex"
)

// FileConfig is the on-disk form of Config. Pointer fields tell an absent
// key apart from a zero value, so only keys present in the file override.
// Durations accept "1.5s" style strings or integer nanoseconds.
type FileConfig struct {
	ListenAddr          *string         `json:"listen_addr" yaml:"listen_addr"`
	RealmName           *string         `json:"realm_name" yaml:"realm_name"`
	AdminHTTPAddr       *string         `json:"admin_http_addr" yaml:"admin_http_addr"`
	AdminGRPCAddr       *string         `json:"admin_grpc_addr" yaml:"admin_grpc_addr"`
	SecretKey           *string         `json:"secret_key" yaml:"secret_key"`
	FileStorage         *string         `json:"file_storage" yaml:"file_storage"`
	FilesDir            *string         `json:"files_dir" yaml:"files_dir"`
	S3AccessKey         *string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket            *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region            *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	MaxFrameBytes       *int            `json:"max_frame_bytes" yaml:"max_frame_bytes"`
	RealmDialTimeout    *timex.Duration `json:"realm_dial_timeout" yaml:"realm_dial_timeout"`
	RealmRequestTimeout *timex.Duration `json:"realm_request_timeout" yaml:"realm_request_timeout"`
	RateLimit           *float64        `json:"rate_limit" yaml:"rate_limit"`
	RateBurst           *int            `json:"rate_burst" yaml:"rate_burst"`
	LogBackend          *string         `json:"log_backend" yaml:"log_backend"`
	LogFormat           *string         `json:"log_format" yaml:"log_format"`
	LogLevel            *string         `json:"log_level" yaml:"log_level"`
	SeedUsers           *bool           `json:"seed_users" yaml:"seed_users"`
}

// parseFile overlays the file named by -c / -config, if any. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON. An unreadable or
// malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()

	// nothing to load
	if path == "" {
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, fc)
	default:
		err = json.Unmarshal(b, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	set(&c.ListenAddr, fc.ListenAddr)
	set(&c.RealmName, fc.RealmName)
	set(&c.AdminHTTPAddr, fc.AdminHTTPAddr)
	set(&c.AdminGRPCAddr, fc.AdminGRPCAddr)
	set(&c.SecretKey, fc.SecretKey)
	set(&c.FileStorage, fc.FileStorage)
	set(&c.FilesDir, fc.FilesDir)
	set(&c.S3AccessKey, fc.S3AccessKey)
	set(&c.S3SecretKey, fc.S3SecretKey)
	set(&c.S3Bucket, fc.S3Bucket)
	set(&c.S3Region, fc.S3Region)
	set(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	set(&c.MaxFrameBytes, fc.MaxFrameBytes)
	set(&c.RateLimit, fc.RateLimit)
	set(&c.RateBurst, fc.RateBurst)
	set(&c.LogBackend, fc.LogBackend)
	set(&c.LogFormat, fc.LogFormat)
	set(&c.LogLevel, fc.LogLevel)
	set(&c.SeedUsers, fc.SeedUsers)

	if fc.RealmDialTimeout != nil {
		c.RealmDialTimeout = fc.RealmDialTimeout.Duration
	}
	if fc.RealmRequestTimeout != nil {
		c.RealmRequestTimeout = fc.RealmRequestTimeout.Duration
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
