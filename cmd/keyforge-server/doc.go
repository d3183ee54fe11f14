// Package main provides the entry point for keyforge-server.
//
// The server is the core Keyforge service that provides:
//
//   - HTTP/HTTPS API for accounts, credits, products, and keys
//   - Key activation and connection verification for client software
//   - Local Unix socket for management access (no login required)
//   - Background sweeping of expired keys and storage GC
//
// Usage:
//
//	keyforge-server [flags]
//	keyforge-server --config /path/to/config.yaml
//
// The server loads configuration, initializes infrastructure components,
// and starts all configured listeners.
package main
