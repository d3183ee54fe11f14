// Package connection provides connection management for keyforge-admin.
package connection

import (
	"io"
	"net"
	"strings"
	"time"
)

// SocketClient speaks the local management protocol: one command line
// per connection, plain text response until the server closes.
type SocketClient struct {
	path    string
	timeout time.Duration
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		path:    socketPath,
		timeout: 5 * time.Minute,
	}
}

// Execute sends one command and returns the full response.
func (c *SocketClient) Execute(cmd string) (string, error) {
	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(resp), "\n"), nil
}
