// Package connection provides connection management for keyforge-admin.
//
// This package handles both transports the CLI speaks:
//
//   - http.go: JSON API client with Bearer token authentication
//   - socket.go: local management socket client
//   - manager.go: persistent session state (server, saved token)
package connection
