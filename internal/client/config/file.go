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

// FileConfig is the on-disk form of Config; absent keys keep their value.
type FileConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	DialTimeout        *timex.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	RequestTimeout     *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// parseFile overlays the file named by -c / -config. Panics on read or
// decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.DialTimeout != nil {
		cfg.DialTimeout = fc.DialTimeout.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
}
