package service

import (
	"crypto/subtle"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

// RootGate guards the operations that need the out-of-band root capability
// secret (demotions, credit grants, third-party transfers, admin account
// deletion). The secret comes from config and is not tied to any user
// record. Every use, granted or refused, leaves an audit log entry; the
// secret itself is never logged.
type RootGate struct {
	secret string
	log    logger.Logger
}

// NewRootGate creates the gate. An empty secret disables it: every check
// fails until one is configured.
func NewRootGate(secret string, log logger.Logger) *RootGate {
	return &RootGate{secret: secret, log: log}
}

// verify compares the provided secret in constant time.
func (g *RootGate) verify(actorID, operation, provided string) error {
	if g.secret == "" {
		g.log.Warn("root capability use refused, no secret configured",
			"actor_id", actorID, "operation", operation)
		return domain.ErrRootSecretRequired.WithDetails("root capability not configured")
	}

	ok := subtle.ConstantTimeCompare([]byte(provided), []byte(g.secret)) == 1
	if !ok {
		g.log.Warn("root capability use refused",
			"actor_id", actorID, "operation", operation)
		return domain.ErrRootSecretRequired
	}

	g.log.Info("root capability used",
		"actor_id", actorID, "operation", operation)
	return nil
}
