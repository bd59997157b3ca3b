package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dlchat/pkg/logging"
)

const (
	userConfigDir  = ".config/dlchat"
	configFileName = "config.yaml"
)

// DefaultServePort is the port the web chat server binds when unset.
const DefaultServePort = 8480

// GetDefaultConfigPathOrPanic returns ~/.config/dlchat.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() Config {
	return Config{
		DirectLine: DirectLineConfig{},
		Serve: ServeConfig{
			Port: DefaultServePort,
			Host: "localhost",
		},
		LogLevel: "warn",
	}
}

// LoadConfig loads configuration from the specified directory. A missing
// config.yaml is not an error: defaults plus environment variables are a
// complete configuration on their own. Environment variables always win over
// file values so secrets can stay out of the file entirely.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)

	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides layers environment variables over the loaded file.
func applyEnvOverrides(config *Config) {
	setIfPresent(&config.Entra.TenantID, "ENTRA_TENANT_ID")
	setIfPresent(&config.Entra.ClientID, "ENTRA_CLIENT_ID")
	setIfPresent(&config.Entra.ClientSecret, "ENTRA_CLIENT_SECRET")
	setIfPresent(&config.DirectLine.Secret, "DIRECT_LINE_SECRET")
	setIfPresent(&config.DirectLine.Endpoint, "DIRECT_LINE_ENDPOINT")
	setIfPresent(&config.DirectLine.UserID, "DIRECT_LINE_USER_ID")
	setIfPresent(&config.LogLevel, "LOG_LEVEL")
}

func setIfPresent(target *string, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		*target = value
	}
}
