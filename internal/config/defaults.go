package config

import "time"

const (
	// DefaultCredentialsPath is shared with the Qwen Code CLI.
	DefaultCredentialsPath = "~/.qwen/oauth_creds.json"

	// DefaultListen keeps the proxy on the loopback interface.
	DefaultListen = "127.0.0.1:8788"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() QwenAuthConfig {
	return QwenAuthConfig{
		CredentialsPath: DefaultCredentialsPath,
		Listen:          DefaultListen,
		Governor: GovernorConfig{
			MinInterval: time.Second,
			JitterMin:   500 * time.Millisecond,
			JitterMax:   1500 * time.Millisecond,
		},
	}
}
