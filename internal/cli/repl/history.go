package repl

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const historyLimit = 1000

// History keeps the REPL command history, persisted under
// ~/.keyforge/history between sessions.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory returns a History backed by the default file location.
func NewHistory() *History {
	home, _ := os.UserHomeDir()
	return &History{
		maxSize: historyLimit,
		file:    filepath.Join(home, ".keyforge", "history"),
	}
}

// Add appends a command. Immediate repeats are collapsed and the
// oldest entries fall off past the size limit.
func (h *History) Add(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Get returns the entry at index counted back from the most recent,
// or "" when out of range.
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Load reads the history file. A missing file is not an error.
func (h *History) Load() error {
	f, err := os.Open(h.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
	return sc.Err()
}

// Save writes the history file, creating its directory when needed.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}

	var b strings.Builder
	for _, entry := range h.entries {
		b.WriteString(entry)
		b.WriteByte('\n')
	}
	return os.WriteFile(h.file, []byte(b.String()), 0o600)
}
