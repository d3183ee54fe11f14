// Package httpserver provides the HTTP/HTTPS server for Keyforge.
package httpserver

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/keyforge/keyforge-go/internal/infra/tlsroots"
)

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	certWatcher *tlsroots.Watcher
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: handler,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ListenAndServeTLS starts the HTTPS server. Certificates are hot-reloaded
// when the files change on disk.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	watcher, err := tlsroots.NewWatcher(certFile, keyFile)
	if err != nil {
		return err
	}
	s.certWatcher = watcher
	watcher.StartAsync()

	s.httpServer.TLSConfig = &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: watcher.GetCertificate,
	}

	// Cert and key paths stay empty here; GetCertificate serves the
	// watcher's current pair.
	return s.httpServer.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.certWatcher != nil {
		s.certWatcher.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
