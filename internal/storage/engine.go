// Package storage provides the durable storage engine for Keyforge.
//
// The engine pairs the in-memory stores (the working set that serves all
// reads and enforces uniqueness and versioning) with a Badger database
// that records every accepted mutation. On startup Recover reloads the
// working set from Badger, so the memory stores never diverge across a
// restart.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/storage/memory"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

// Record key prefixes. Every record is stored under prefix + record ID
// with a JSON-encoded value.
const (
	prefixUser     = "us/"
	prefixProduct  = "pd/"
	prefixKey      = "ky/"
	prefixKeyToken = "kt/"
)

// Default engine tuning.
const (
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the Badger database directory. Required unless InMemory.
	DataDir string

	// InMemory keeps everything in Badger's in-memory mode. Used by tests
	// and ephemeral deployments; nothing survives a restart.
	InMemory bool

	// SyncWrites fsyncs every write. Slower, but no acknowledged mutation
	// can be lost to a crash.
	SyncWrites bool

	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration

	// GCThreshold is the value log GC discard ratio (0.0-1.0).
	GCThreshold float64

	// Logger is the structured logger.
	Logger logger.Logger
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:     dataDir,
		GCInterval:  DefaultGCInterval,
		GCThreshold: DefaultGCThreshold,
	}
}

// Engine is the storage engine combining the memory stores and Badger.
type Engine struct {
	cfg Config
	db  *badger.DB

	users    *memory.UserStore
	products *memory.ProductStore
	keys     *memory.KeyStore
	tokens   *memory.KeyTokenStore

	log logger.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a new storage engine.
//
// This opens the database but does NOT load existing records.
// Call Recover() after New() to populate the working set.
func New(cfg Config) (*Engine, error) {
	if cfg.DataDir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("storage: data_dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultGCInterval
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = DefaultGCThreshold
	}

	opts := badger.DefaultOptions(cfg.DataDir)
	opts.InMemory = cfg.InMemory
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = &badgerLogger{log: cfg.Logger.With("component", "badger")}
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}

	engine := &Engine{
		cfg:      cfg,
		db:       db,
		users:    memory.NewUserStore(),
		products: memory.NewProductStore(),
		keys:     memory.NewKeyStore(),
		tokens:   memory.NewKeyTokenStore(),
		log:      cfg.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go engine.gcLoop()

	cfg.Logger.Info("storage engine started",
		"dir", cfg.DataDir,
		"in_memory", cfg.InMemory,
		"sync_writes", cfg.SyncWrites)

	return engine, nil
}

// storedUser is the database form of a user record. The domain struct
// excludes PasswordHash from JSON so it can never leak through an API
// payload; the database record must carry it or no credential survives
// a restart.
type storedUser struct {
	*domain.User
	PasswordHash string `json:"password_hash"`
}

func newStoredUser(u *domain.User) *storedUser {
	return &storedUser{User: u, PasswordHash: u.PasswordHash}
}

// Recover reloads the working set from the database.
//
// Every record family is scanned in full and loaded into its memory
// store, which rebuilds the secondary indexes as a side effect.
func (e *Engine) Recover(ctx context.Context) error {
	startTime := time.Now()
	e.log.Info("storage recovery started")

	var userRecords []*storedUser
	if err := scanPrefix(e.db, prefixUser, &userRecords); err != nil {
		return fmt.Errorf("recover users: %w", err)
	}
	users := make([]*domain.User, 0, len(userRecords))
	for _, record := range userRecords {
		if record.User == nil {
			continue
		}
		record.User.PasswordHash = record.PasswordHash
		users = append(users, record.User)
	}
	e.users.Load(users)

	var products []*domain.Product
	if err := scanPrefix(e.db, prefixProduct, &products); err != nil {
		return fmt.Errorf("recover products: %w", err)
	}
	e.products.Load(products)

	var keys []*domain.Key
	if err := scanPrefix(e.db, prefixKey, &keys); err != nil {
		return fmt.Errorf("recover keys: %w", err)
	}
	e.keys.Load(keys)

	var tokens []*domain.KeyToken
	if err := scanPrefix(e.db, prefixKeyToken, &tokens); err != nil {
		return fmt.Errorf("recover key tokens: %w", err)
	}
	e.tokens.Load(tokens)

	e.log.Info("recovery completed",
		"users", len(users),
		"products", len(products),
		"keys", len(keys),
		"key_tokens", len(tokens),
		"elapsed", time.Since(startTime))

	return nil
}

// scanPrefix collects all JSON records under a prefix into out, which
// must be a pointer to a slice of record pointers.
func scanPrefix[T any](db *badger.DB, prefix string, out *[]*T) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record := new(T)
				if err := json.Unmarshal(val, record); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				*out = append(*out, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// put writes a JSON record under prefix + id.
func (e *Engine) put(prefix, id string, record any) error {
	value, err := json.Marshal(record)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	err = e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+id), value)
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// del removes the record under prefix + id.
func (e *Engine) del(prefix, id string) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefix + id))
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Backup streams a full backup of the database to w.
func (e *Engine) Backup(_ context.Context, w io.Writer) error {
	if _, err := e.db.Backup(w, 0); err != nil {
		return fmt.Errorf("storage: backup: %w", err)
	}
	return nil
}

// Restore loads a backup stream into the database and reloads the
// working set. Existing records are overwritten where the backup has a
// newer version of the same key.
func (e *Engine) Restore(ctx context.Context, r io.Reader) error {
	if err := e.db.Load(r, 16); err != nil {
		return fmt.Errorf("storage: restore: %w", err)
	}
	return e.Recover(ctx)
}

// BackupToFile writes a full backup to the given path.
func (e *Engine) BackupToFile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create backup file: %w", err)
	}
	defer f.Close()

	if err := e.Backup(ctx, f); err != nil {
		return err
	}
	return f.Sync()
}

// GC runs value log garbage collection until nothing more is reclaimed.
func (e *Engine) GC() error {
	for {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				return nil
			}
			return fmt.Errorf("storage: gc: %w", err)
		}
	}
}

// gcLoop runs periodic garbage collection.
func (e *Engine) gcLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.GC(); err != nil {
				e.log.Error("auto gc failed", "error", err)
			}
		case <-e.stopCh:
			return
		}
	}
}

// Close gracefully shuts down the storage engine.
func (e *Engine) Close() error {
	e.log.Info("shutting down storage engine")

	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("storage: close db: %w", err)
	}

	e.log.Info("storage engine shutdown complete")
	return nil
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
