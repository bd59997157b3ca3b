// Package config loads dlchat configuration from ~/.config/dlchat/config.yaml
// with environment variable overrides for credentials and identifiers.
package config
