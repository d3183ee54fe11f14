// Package config provides CLI configuration for keyforge-admin.
package config

// CLIConfig is the configuration for keyforge-admin.
type CLIConfig struct {
	// Server is the Keyforge server base URL.
	Server string `yaml:"server"`

	// Token is the saved login token from the last `auth login`.
	Token string `yaml:"token,omitempty"`

	// Output is the default output format: table, json, yaml.
	Output string `yaml:"output"`

	// Socket is the local management socket path for system commands.
	Socket string `yaml:"socket"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://localhost:5090",
		Output: "table",
		Socket: "/var/run/keyforge-server/keyforge-server.sock",
	}
}
