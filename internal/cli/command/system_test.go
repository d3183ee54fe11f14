package command

import (
	"bufio"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
)

// fakeAdminSocket serves canned replies over a unix socket, one command
// per connection like the real local server.
func fakeAdminSocket(t *testing.T, replies map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "admin.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				cmd := strings.Fields(strings.TrimSpace(line))[0]
				reply, ok := replies[cmd]
				if !ok {
					reply = "ERR unknown command\n"
				}
				conn.Write([]byte(reply))
			}(conn)
		}
	}()

	return path
}

func TestSystemHealth(t *testing.T) {
	server := newMockServer(t)
	server.handle("/health", func(w http.ResponseWriter, r *http.Request) {
		okEnvelope(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	c := testContext(t, server, nil)
	if err := systemHealth(c); err != nil {
		t.Fatalf("systemHealth: %v", err)
	}
}

func TestSystemStatusOverSocket(t *testing.T) {
	path := fakeAdminSocket(t, map[string]string{
		"status": "OK\nversion: dev\nuptime: 5m\n",
	})

	server := newMockServer(t)
	c := testContext(t, server, nil, "--socket", path)
	if err := systemStatus(c); err != nil {
		t.Fatalf("systemStatus: %v", err)
	}
}

func TestSystemSweepReportsServerError(t *testing.T) {
	path := fakeAdminSocket(t, map[string]string{
		"sweep": "ERR sweeper unavailable\n",
	})

	server := newMockServer(t)
	c := testContext(t, server, nil, "--socket", path)
	err := systemSweep(c)
	if err == nil {
		t.Fatal("expected error from socket reply")
	}
	if !strings.Contains(err.Error(), "sweeper unavailable") {
		t.Errorf("error = %q, want the server message", err.Error())
	}
}

func TestSystemBackupRequiresPath(t *testing.T) {
	server := newMockServer(t)
	c := testContext(t, server, nil)
	if err := systemBackup(c); err == nil {
		t.Fatal("expected usage error without PATH argument")
	}
}

func TestSocketExecStripsOKPrefix(t *testing.T) {
	path := fakeAdminSocket(t, map[string]string{
		"gc": "OK\nvalue log compacted\n",
	})

	server := newMockServer(t)
	c := testContext(t, server, nil, "--socket", path)
	reply, err := socketExec(c, "gc")
	if err != nil {
		t.Fatalf("socketExec: %v", err)
	}
	if reply != "value log compacted" {
		t.Errorf("reply = %q, want %q", reply, "value log compacted")
	}
}

func TestSocketExecMissingSocket(t *testing.T) {
	server := newMockServer(t)
	c := testContext(t, server, nil, "--socket", filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := socketExec(c, "status"); err == nil {
		t.Fatal("expected error for missing socket")
	}
}
