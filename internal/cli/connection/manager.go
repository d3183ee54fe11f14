// Package connection provides connection management for keyforge-admin.
package connection

import (
	"github.com/keyforge/keyforge-go/internal/cli/config"
)

// Manager holds the CLI session: which server to talk to and the saved
// login token. Changes persist through the CLI config file.
type Manager struct {
	cfg  *config.CLIConfig
	path string
}

// NewManager loads session state from the given config path (empty for
// the default location).
func NewManager(path string) (*Manager, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, path: path}, nil
}

// Config returns the current session configuration.
func (m *Manager) Config() *config.CLIConfig {
	return m.cfg
}

// SetServer changes the server address for this and future invocations.
func (m *Manager) SetServer(server string) error {
	m.cfg.Server = server
	return config.Save(m.cfg, m.path)
}

// SetToken stores the login token from a successful authentication.
func (m *Manager) SetToken(token string) error {
	m.cfg.Token = token
	return config.Save(m.cfg, m.path)
}

// ClearToken forgets the saved login token.
func (m *Manager) ClearToken() error {
	m.cfg.Token = ""
	return config.Save(m.cfg, m.path)
}

// IsLoggedIn reports whether a login token is saved.
func (m *Manager) IsLoggedIn() bool {
	return m.cfg.Token != ""
}
