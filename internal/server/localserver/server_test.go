package localserver

import (
	"bufio"
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/storage"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	log := logger.Default()

	engine, err := storage.New(storage.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	tokens, err := service.NewTokenService("test-signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	root := service.NewRootGate("", log)
	ledger := service.NewLedgerService(engine.Users(), root)
	keys := service.NewKeyService(engine.Keys(), engine.KeyTokens(), engine.Products(), engine.Users(), ledger, tokens, log)
	sweeper := service.NewSweeper(engine.Keys(), keys, time.Hour, log)

	handler := NewHandler(engine, sweeper, "test-backup-pass")
	socketPath := filepath.Join(t.TempDir(), "keyforge-test.sock")
	srv := New(socketPath, handler, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	// Wait for the socket to appear
	deadline := time.Now().Add(2 * time.Second)
	for {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never came up")
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
		if err := <-errCh; err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	})

	return srv, socketPath
}

// send writes one command and returns the full response.
func send(t *testing.T, socketPath, command string) string {
	t.Helper()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(resp)
}

func TestStatusCommand(t *testing.T) {
	_, socketPath := newTestServer(t)

	resp := send(t, socketPath, "status")
	if !strings.HasPrefix(resp, "OK") {
		t.Fatalf("status response = %q, want OK prefix", resp)
	}
	if !strings.Contains(resp, "uptime:") {
		t.Errorf("status response missing uptime: %q", resp)
	}
}

func TestSweepCommand(t *testing.T) {
	_, socketPath := newTestServer(t)

	resp := send(t, socketPath, "sweep")
	if !strings.HasPrefix(resp, "OK") {
		t.Fatalf("sweep response = %q, want OK prefix", resp)
	}
	if !strings.Contains(resp, "marked: 0") || !strings.Contains(resp, "deleted: 0") {
		t.Errorf("sweep on empty store = %q, want zero counts", resp)
	}
}

func TestBackupCommand(t *testing.T) {
	_, socketPath := newTestServer(t)

	path := filepath.Join(t.TempDir(), "out.kfbk")
	resp := send(t, socketPath, "backup "+path)
	if !strings.HasPrefix(resp, "OK") {
		t.Fatalf("backup response = %q, want OK prefix", resp)
	}

	resp = send(t, socketPath, "backup")
	if !strings.HasPrefix(resp, "ERR usage") {
		t.Errorf("backup without path = %q, want usage error", resp)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, socketPath := newTestServer(t)

	resp := send(t, socketPath, "frobnicate")
	if !strings.HasPrefix(resp, "ERR unknown command") {
		t.Errorf("response = %q, want unknown command error", resp)
	}
}
