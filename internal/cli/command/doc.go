// Package command provides CLI command definitions for keyforge-admin.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, mode detection
//   - auth.go: Account registration and login
//   - user.go: User administration subcommand group
//   - credits.go: Credit ledger subcommand group
//   - product.go: Product subcommand group
//   - key.go: Key subcommand group
//   - system.go: Local management socket commands
//   - secret.go: Secret generation helpers
//
// Commands follow a consistent pattern of parsing flags,
// calling the server API, and formatting output.
package command
