package command

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
)

// mockServer is a test HTTP server with per-prefix handlers.
type mockServer struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for pattern, handler := range m.handlers {
			if strings.HasPrefix(r.URL.Path, pattern) {
				handler(w, r)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.handlers[pattern] = handler
}

// okEnvelope writes a success envelope the way the server does.
func okEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "test-req",
		"timestamp":  time.Now().Unix(),
		"data":       data,
	})
}

// errEnvelope writes an error envelope with a service error code.
func errEnvelope(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "test-req",
		"timestamp":  time.Now().Unix(),
	})
}

// testContext builds a cli.Context wired to the mock server. extraFlags
// declares command-local flags (name to default) so Actions can read
// them; args are positional arguments plus any flag values.
func testContext(t *testing.T, server *mockServer, extraFlags map[string]any, args ...string) *cli.Context {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "cli.yaml")
	mgr, err := connection.NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	app := &cli.App{
		Name:     "test",
		Flags:    globalFlags(),
		Metadata: map[string]any{"connMgr": mgr},
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	for name, val := range extraFlags {
		var f cli.Flag
		switch v := val.(type) {
		case string:
			f = &cli.StringFlag{Name: name, Value: v}
		case int:
			f = &cli.IntFlag{Name: name, Value: v}
		case int64:
			f = &cli.Int64Flag{Name: name, Value: v}
		case bool:
			f = &cli.BoolFlag{Name: name, Value: v}
		default:
			t.Fatalf("unsupported flag type for %q", name)
		}
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag %q: %v", name, err)
		}
	}

	fullArgs := append([]string{"--server", server.URL}, args...)
	if err := set.Parse(fullArgs); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	return cli.NewContext(app, set, nil)
}
