package tlsroots

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

const (
	defaultDebounce = 500 * time.Millisecond

	// Writers that replace a certificate atomically still need a
	// moment between the rename and the key file landing.
	settleDelay = 100 * time.Millisecond
)

// Watcher keeps a TLS key pair loaded from disk and refreshes it when
// either file changes. The zero value is not usable; construct with
// NewWatcher, which loads the pair eagerly so a bad certificate fails
// at startup rather than on the first handshake.
type Watcher struct {
	certFile string
	keyFile  string
	log      logger.Logger
	debounce time.Duration

	mu   sync.RWMutex
	pair *tls.Certificate

	refreshMu   sync.Mutex
	lastRefresh time.Time

	done chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(log logger.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// WithDebounce sets the minimum interval between reloads.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher loads certFile and keyFile and returns a watcher serving
// that pair. Call Start or StartAsync to pick up file changes.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		log:      logger.Default(),
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.refresh(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return w, nil
}

// GetCertificate returns the currently loaded pair. It satisfies the
// tls.Config.GetCertificate signature.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pair, nil
}

// Start blocks, reloading the key pair whenever the cert or key file
// is written or recreated, until Stop is called.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}

	// Watching the parent directories instead of the files themselves
	// survives editors and cert-managers that rename over the target.
	dirs := []string{filepath.Dir(w.certFile)}
	if keyDir := filepath.Dir(w.keyFile); keyDir != dirs[0] {
		dirs = append(dirs, keyDir)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	w.log.Info("certificate watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile,
	)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("certificate file changed", "file", ev.Name, "op", ev.Op.String())
			if err := w.refreshDebounced(); err != nil {
				w.log.Error("certificate reload failed",
					"error", err,
					"cert_file", w.certFile,
				)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("certificate watcher error", "error", err)
		case <-w.done:
			return fsw.Close()
		}
	}
}

// StartAsync runs Start in a goroutine, logging any error.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.log.Error("certificate watcher stopped with error", "error", err)
		}
	}()
}

// Stop terminates a running Start loop.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	base := filepath.Base(ev.Name)
	return base == filepath.Base(w.certFile) || base == filepath.Base(w.keyFile)
}

func (w *Watcher) refreshDebounced() error {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	now := time.Now()
	if now.Sub(w.lastRefresh) < w.debounce {
		return nil
	}
	w.lastRefresh = now

	time.Sleep(settleDelay)
	return w.refresh()
}

func (w *Watcher) refresh() error {
	pair, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	w.mu.Lock()
	w.pair = &pair
	w.mu.Unlock()

	w.log.Info("certificate reloaded", "cert_file", w.certFile)
	return nil
}
