// Package tlsroots provides TLS certificate hot-reload for Keyforge.
//
// The watcher monitors the server certificate and key files with
// fsnotify and swaps the loaded pair in place, so certificate renewal
// never requires a restart. GetCertificate plugs straight into
// tls.Config.
package tlsroots
