// Package config defines the server configuration structure.
package config

import "strings"

// Sanitize returns a copy of cfg safe to log: every secret in the
// security section is masked down to its first and last two characters.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.Security.TokenSecret = mask(out.Security.TokenSecret)
	out.Security.RootSecret = mask(out.Security.RootSecret)
	out.Security.BackupKey = mask(out.Security.BackupKey)
	return &out
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
	}
}
