// Package config provides CLI configuration for keyforge-admin.
//
// This package defines CLI-specific configuration:
//
//   - spec.go: CLIConfig struct (~/.keyforge/cli.yaml)
//   - loader.go: Configuration loading and saving
//
// Configuration includes:
//
//   - Server address and saved login token
//   - Output format preference
//   - Local management socket path
package config
