package repl

import "strings"

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"auth", "auth register", "auth login", "auth logout", "auth whoami",
			"user", "user info", "user search", "user elevate", "user demote", "user delete",
			"credits", "credits balance", "credits buy", "credits grant", "credits transfer",
			"product", "product create", "product info", "product rename", "product describe",
			"product invite", "product remove", "product transfer", "product clear-keys", "product delete",
			"key", "key issue", "key list", "key info", "key reveal", "key activate", "key connect", "key delete",
			"system", "system status", "system health", "system sweep", "system gc",
			"system backup", "system restore",
			"secret", "secret generate",
			"help", "exit", "quit",
		},
	}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
