package localserver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/infra/buildinfo"
	"github.com/keyforge/keyforge-go/internal/storage"
)

// Handler executes local management commands.
type Handler struct {
	engine     *storage.Engine
	sweeper    *service.Sweeper
	backupPass string
	started    time.Time
}

// NewHandler creates a new Handler. backupPass may be empty, in which
// case backup and restore commands are refused.
func NewHandler(engine *storage.Engine, sweeper *service.Sweeper, backupPass string) *Handler {
	return &Handler{
		engine:     engine,
		sweeper:    sweeper,
		backupPass: backupPass,
		started:    time.Now(),
	}
}

// Execute runs a single management command and writes the result to w.
func (h *Handler) Execute(ctx context.Context, w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "status":
		return h.handleStatus(w)
	case "sweep":
		return h.handleSweep(ctx, w)
	case "gc":
		return h.handleGC(w)
	case "backup":
		return h.handleBackup(ctx, w, args)
	case "restore":
		return h.handleRestore(ctx, w, args)
	case "help":
		return h.handleHelp(w)
	default:
		_, err := fmt.Fprintf(w, "ERR unknown command: %s (try help)\n", cmd)
		return err
	}
}

func (h *Handler) handleStatus(w io.Writer) error {
	info := buildinfo.Get()
	_, err := fmt.Fprintf(w, "OK\nversion: %s\ncommit: %s\ngo: %s\nuptime: %s\n",
		info.Version, info.Commit, info.GoVersion, time.Since(h.started).Round(time.Second))
	return err
}

func (h *Handler) handleSweep(ctx context.Context, w io.Writer) error {
	marked, deleted, err := h.sweeper.Sweep(ctx)
	if err != nil {
		_, werr := fmt.Fprintf(w, "ERR sweep failed: %v\n", err)
		return werr
	}
	_, err = fmt.Fprintf(w, "OK\nmarked: %d\ndeleted: %d\n", marked, deleted)
	return err
}

func (h *Handler) handleGC(w io.Writer) error {
	if err := h.engine.GC(); err != nil {
		_, werr := fmt.Fprintf(w, "ERR gc failed: %v\n", err)
		return werr
	}
	_, err := fmt.Fprintln(w, "OK")
	return err
}

func (h *Handler) handleBackup(ctx context.Context, w io.Writer, args []string) error {
	if h.backupPass == "" {
		_, err := fmt.Fprintln(w, "ERR no backup passphrase configured")
		return err
	}
	if len(args) != 1 {
		_, err := fmt.Fprintln(w, "ERR usage: backup <path>")
		return err
	}
	if err := h.engine.BackupEncryptedToFile(ctx, args[0], h.backupPass); err != nil {
		_, werr := fmt.Fprintf(w, "ERR backup failed: %v\n", err)
		return werr
	}
	_, err := fmt.Fprintf(w, "OK\npath: %s\n", args[0])
	return err
}

func (h *Handler) handleRestore(ctx context.Context, w io.Writer, args []string) error {
	if h.backupPass == "" {
		_, err := fmt.Fprintln(w, "ERR no backup passphrase configured")
		return err
	}
	if len(args) != 1 {
		_, err := fmt.Fprintln(w, "ERR usage: restore <path>")
		return err
	}
	if err := h.engine.RestoreEncryptedFromFile(ctx, args[0], h.backupPass); err != nil {
		_, werr := fmt.Fprintf(w, "ERR restore failed: %v\n", err)
		return werr
	}
	_, err := fmt.Fprintln(w, "OK")
	return err
}

func (h *Handler) handleHelp(w io.Writer) error {
	_, err := fmt.Fprint(w, "OK\ncommands: status, sweep, gc, backup <path>, restore <path>, help\n")
	return err
}
