package service

import (
	"context"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
	"github.com/keyforge/keyforge-go/internal/telemetry/metric"
)

// DefaultSweepInterval is how often the sweeper runs when not configured.
const DefaultSweepInterval = time.Hour

// Sweeper reaps expired keys in the background. Each cycle runs two
// passes: a mark pass that flags keys whose deadline has passed, then a
// delete pass that tears flagged keys down. The mark pass is the only
// producer of the Expired flag; activation rejects passed deadlines
// independently, so nothing redeemable slips through between sweeps.
type Sweeper struct {
	repo     KeyRepository
	keys     *KeyService
	interval time.Duration
	log      logger.Logger
}

// NewSweeper creates a Sweeper. interval <= 0 selects the default.
func NewSweeper(repo KeyRepository, keys *KeyService, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		repo:     repo,
		keys:     keys,
		interval: interval,
		log:      log,
	}
}

// Run sweeps on the configured interval until the context is canceled.
// One sweep runs immediately on startup.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	marked, deleted, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("sweep cycle failed", "error", err)
		return
	}
	if marked > 0 || deleted > 0 {
		s.log.Info("sweep cycle complete", "marked", marked, "deleted", deleted)
	}
}

// Sweep runs one mark pass and one delete pass. Returns how many keys
// were newly flagged and how many were deleted. Per-key failures are
// logged and skipped; only a full scan failure is returned.
func (s *Sweeper) Sweep(ctx context.Context) (marked, deleted int, err error) {
	now := timeNow()

	// Mark pass. Conditional update on the version: losing the race to an
	// activation or another writer just means skipping the key this cycle.
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, 0, domain.ErrStorageError.WithCause(err)
	}
	for _, key := range all {
		if key.Expired || !key.IsExpiredAt(now) {
			continue
		}
		version := key.Version
		flagged := key.Clone()
		flagged.Expired = true
		flagged.IncrVersion()
		if err := s.repo.Update(ctx, flagged, version); err != nil {
			s.log.Warn("mark pass skipped key", "key_id", key.ID, "error", err)
			continue
		}
		marked++
	}

	// Delete pass over everything flagged, including leftovers from
	// earlier cycles.
	all, err = s.repo.ListAll(ctx)
	if err != nil {
		return marked, 0, domain.ErrStorageError.WithCause(err)
	}
	for _, key := range all {
		if !key.Expired {
			continue
		}
		if err := s.keys.DeleteCascade(ctx, key.ID, false); err != nil {
			s.log.Warn("delete pass skipped key", "key_id", key.ID, "error", err)
			continue
		}
		deleted++
	}

	metric.KeysSwept.Add(float64(deleted))
	return marked, deleted, nil
}
