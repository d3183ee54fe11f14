package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards concurrent writes from the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerSuccess(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "backing up")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Success("backup written")

	out := buf.String()
	if !strings.Contains(out, "backing up") {
		t.Errorf("animation message missing: %q", out)
	}
	if !strings.Contains(out, "✓ backup written\n") {
		t.Errorf("success line missing: %q", out)
	}
}

func TestSpinnerFail(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "restoring")
	s.Start()
	s.Fail("restore failed")

	if !strings.Contains(buf.String(), "✗ restore failed\n") {
		t.Errorf("failure line missing: %q", buf.String())
	}
}

func TestSpinnerStopClearsLine(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "working")
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "\r\033[K") {
		t.Errorf("clear sequence missing: %q", buf.String())
	}
}
