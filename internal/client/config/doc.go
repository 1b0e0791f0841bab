// Package config loads runtime configuration for the realmchat shell.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the chat server
//	-t int      dial timeout (seconds)
//	-w int      request timeout (seconds)
//
// File keys (durations as "5s" or integer nanoseconds):
//
//	server_endpoint_addr: 127.0.0.1:8889
//	dial_timeout: 5s
//	request_timeout: 30s
package config
