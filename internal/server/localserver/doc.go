// Package localserver provides the Unix socket server for local
// management.
//
// This package implements a local-only administrative interface via Unix
// domain socket. It carries no token authentication; file system
// permissions on the socket control access:
//
//   - Server status and build information
//   - On-demand expiry sweep
//   - Value log garbage collection
//   - Encrypted backup export and restore
//
// The protocol is line-oriented: the client writes one command line,
// the server answers in plain text and closes the connection.
package localserver
