package localserver

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

// commandTimeout bounds a single command, including backup I/O.
const commandTimeout = 5 * time.Minute

// Server is the local management server.
type Server struct {
	handler  *Handler
	listener net.Listener
	path     string
	log      logger.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new local server listening on socketPath.
func New(socketPath string, handler *Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		handler: handler,
		path:    socketPath,
		log:     log,
	}
}

// ListenAndServe starts the local server. A stale socket file from a
// previous run is removed first.
func (s *Server) ListenAndServe() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var err error
	s.listener, err = net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		s.listener.Close()
		return err
	}

	s.running.Store(true)
	s.log.Info("local management socket listening", "path", s.path)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Shutdown gracefully shuts down the server and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		os.Remove(s.path)
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleConnection serves one command per connection: read a line,
// execute, answer, close.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(commandTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	s.log.Info("local command", "cmd", fields[0])
	if err := s.handler.Execute(ctx, conn, fields[0], fields[1:]); err != nil {
		s.log.Error("local command failed", "cmd", fields[0], "error", err)
	}
}
