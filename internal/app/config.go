package app

import (
	"qwenauth/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Custom configuration directory (optional)
	ConfigPath string

	// CredentialsPath overrides the credential file from config.yaml (optional)
	CredentialsPath string

	// Version is reported in the outbound user agent
	Version string

	// Loaded configuration, set during bootstrap
	QwenAuthConfig *config.QwenAuthConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, credentialsPath, version string) *Config {
	return &Config{
		Debug:           debug,
		ConfigPath:      configPath,
		CredentialsPath: credentialsPath,
		Version:         version,
	}
}
