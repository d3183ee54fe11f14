package repl

import (
	"os"
	"path/filepath"
	"testing"
)

func tempHistory(t *testing.T, maxSize int) *History {
	t.Helper()
	return &History{
		maxSize: maxSize,
		file:    filepath.Join(t.TempDir(), "history"),
	}
}

func TestHistoryAddAndGet(t *testing.T) {
	h := tempHistory(t, historyLimit)
	h.Add("user list")
	h.Add("key list")
	h.Add("credits")

	if got := h.Get(0); got != "credits" {
		t.Errorf("Get(0) = %q, want credits", got)
	}
	if got := h.Get(2); got != "user list" {
		t.Errorf("Get(2) = %q, want \"user list\"", got)
	}
	if got := h.Get(3); got != "" {
		t.Errorf("Get(3) = %q, want empty", got)
	}
	if got := h.Get(-1); got != "" {
		t.Errorf("Get(-1) = %q, want empty", got)
	}
}

func TestHistoryCollapsesRepeats(t *testing.T) {
	h := tempHistory(t, historyLimit)
	h.Add("status")
	h.Add("status")
	h.Add("status")

	if len(h.entries) != 1 {
		t.Errorf("len(entries) = %d after repeated Add, want 1", len(h.entries))
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := tempHistory(t, 3)
	for _, cmd := range []string{"a", "b", "c", "d"} {
		h.Add(cmd)
	}

	if len(h.entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(h.entries))
	}
	if h.entries[0] != "b" {
		t.Errorf("oldest entry = %q, want b", h.entries[0])
	}
}

func TestHistorySaveLoadRoundTrip(t *testing.T) {
	h := tempHistory(t, historyLimit)
	h.Add("product create raptor")
	h.Add("key issue kfpd-1")

	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := &History{maxSize: historyLimit, file: h.file}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(reloaded.entries) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(reloaded.entries))
	}
	if got := reloaded.Get(0); got != "key issue kfpd-1" {
		t.Errorf("Get(0) after reload = %q", got)
	}
}

func TestHistoryLoadMissingFile(t *testing.T) {
	h := tempHistory(t, historyLimit)
	if err := h.Load(); err != nil {
		t.Errorf("Load() on missing file returned error: %v", err)
	}
	if len(h.entries) != 0 {
		t.Errorf("entries = %d after loading missing file, want 0", len(h.entries))
	}
}

func TestHistoryLoadTrimsOverLimit(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history")
	if err := os.WriteFile(file, []byte("a\nb\nc\nd\n"), 0o600); err != nil {
		t.Fatalf("write history file: %v", err)
	}

	h := &History{maxSize: 2, file: file}
	if err := h.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(h.entries) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(h.entries))
	}
	if h.Get(0) != "d" || h.Get(1) != "c" {
		t.Errorf("kept entries = %v, want newest two", h.entries)
	}
}
