package config

import "time"

// Config holds runtime settings for the realmchat shell.
//
// Fields:
//   - ServerEndpointAddr: host:port of the chat server.
//   - DialTimeout: bound on establishing the connection.
//   - RequestTimeout: bound on a single request/response exchange.
type Config struct {
	ServerEndpointAddr string
	DialTimeout        time.Duration
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:8889"
	c.DialTimeout = 5 * time.Second
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
