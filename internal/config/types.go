package config

import "time"

// QwenAuthConfig is the top-level configuration structure for qwenauth.
type QwenAuthConfig struct {
	// CredentialsPath is the credential file shared with other Qwen tools.
	CredentialsPath string `yaml:"credentialsPath,omitempty"`
	// Listen is the address the local proxy binds to.
	Listen string `yaml:"listen,omitempty"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Governor GovernorConfig `yaml:"governor"`
}

// GovernorConfig controls outbound request pacing.
type GovernorConfig struct {
	MinInterval time.Duration `yaml:"minInterval"`
	JitterMin   time.Duration `yaml:"jitterMin"`
	JitterMax   time.Duration `yaml:"jitterMax"`
}
