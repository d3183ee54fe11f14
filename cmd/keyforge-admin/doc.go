// Package main provides the entry point for keyforge-admin.
//
// The CLI tool provides command-line access to a Keyforge server for:
//
//   - Account registration and login
//   - Credit purchases, grants, and transfers
//   - Product and team management
//   - Key issuance, activation, and revocation
//   - Server maintenance over the local admin socket
//
// Usage:
//
//	keyforge-admin [command] [flags]
//	keyforge-admin key list --output json
//	keyforge-admin auth login --login frodo --server http://localhost:5090
//
// The CLI supports both single-command mode and interactive REPL mode.
package main
