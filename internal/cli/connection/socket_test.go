package connection

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

// fakeSocketServer answers every connection with the given response.
func fakeSocketServer(t *testing.T, response string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				bufio.NewReader(c).ReadString('\n')
				c.Write([]byte(response))
			}(conn)
		}
	}()

	return path
}

func TestSocketExecute(t *testing.T) {
	path := fakeSocketServer(t, "OK\nversion: dev\n")

	client := NewSocketClient(path)
	resp, err := client.Execute("status")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(resp, "OK") {
		t.Errorf("response = %q, want OK prefix", resp)
	}
	if strings.HasSuffix(resp, "\n") {
		t.Error("response not trimmed")
	}
}

func TestSocketExecuteNoServer(t *testing.T) {
	client := NewSocketClient(filepath.Join(t.TempDir(), "absent.sock"))
	if _, err := client.Execute("status"); err == nil {
		t.Error("Execute() against missing socket succeeded")
	}
}
