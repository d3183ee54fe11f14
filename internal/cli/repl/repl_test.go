package repl

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// newTestREPL builds a REPL with isolated history and captured output.
func newTestREPL(t *testing.T, input string, run Runner) (*REPL, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	history := NewHistory()
	history.file = filepath.Join(t.TempDir(), "history")

	return &REPL{
		input:     strings.NewReader(input),
		output:    output,
		completer: NewCompleter(),
		history:   history,
		run:       run,
	}, output
}

func TestRunExit(t *testing.T) {
	for _, input := range []string{"exit\n", "quit\n", ""} {
		r, _ := newTestREPL(t, input, nil)
		if err := r.Run(); err != nil {
			t.Errorf("Run(%q) error = %v", input, err)
		}
	}
}

func TestRunDispatchesCommands(t *testing.T) {
	var got [][]string
	r, _ := newTestREPL(t, "key list\nsystem status\nexit\n", func(args []string) error {
		got = append(got, args)
		return nil
	})

	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("dispatched %d commands, want 2", len(got))
	}
	if strings.Join(got[0], " ") != "key list" {
		t.Errorf("first command = %v, want [key list]", got[0])
	}
}

func TestRunKeepsGoingAfterCommandError(t *testing.T) {
	calls := 0
	r, output := newTestREPL(t, "bad\ngood\nexit\n", func(args []string) error {
		calls++
		if args[0] == "bad" {
			return errDummy
		}
		return nil
	})

	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (loop must survive an error)", calls)
	}
	if !strings.Contains(output.String(), "Error: dummy") {
		t.Errorf("output missing error report: %q", output.String())
	}
}

type dummyError struct{}

func (dummyError) Error() string { return "dummy" }

var errDummy = dummyError{}

func TestRunSkipsEmptyLinesAndRecordsHistory(t *testing.T) {
	r, output := newTestREPL(t, "\n\n  key list  \nexit\n", func([]string) error { return nil })

	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if prompts := strings.Count(output.String(), "keyforge>"); prompts < 4 {
		t.Errorf("prompt count = %d, want at least 4", prompts)
	}
	if r.history.Get(1) != "key list" {
		t.Errorf("history entry = %q, want trimmed command", r.history.Get(1))
	}
}
