package connection

import (
	"path/filepath"
	"testing"
)

func TestManagerPersistsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr.IsLoggedIn() {
		t.Error("fresh manager reports logged in")
	}

	if err := mgr.SetToken("login-token"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	// A new manager sees the saved session
	mgr2, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	if !mgr2.IsLoggedIn() {
		t.Fatal("reloaded manager not logged in")
	}
	if mgr2.Config().Token != "login-token" {
		t.Errorf("token = %q, want login-token", mgr2.Config().Token)
	}

	if err := mgr2.ClearToken(); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	mgr3, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() after clear error = %v", err)
	}
	if mgr3.IsLoggedIn() {
		t.Error("manager still logged in after ClearToken")
	}
}

func TestManagerSetServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := mgr.SetServer("https://keyforge.example:5443"); err != nil {
		t.Fatalf("SetServer() error = %v", err)
	}

	mgr2, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	if got := mgr2.Config().Server; got != "https://keyforge.example:5443" {
		t.Errorf("server = %q, want the saved address", got)
	}
}
