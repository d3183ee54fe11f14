// Package httpserver provides the HTTP/HTTPS server for Keyforge.
package httpserver

import (
	"net/http"

	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/server/httpserver/handler"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

// RouterConfig holds everything the HTTP surface needs.
type RouterConfig struct {
	Users    *service.UserService
	Products *service.ProductService
	Keys     *service.KeyService
	Ledger   *service.LedgerService

	Logger logger.Logger

	// CORSOrigins lists allowed origins; empty disables CORS handling.
	CORSOrigins []string

	// RateLimit is the per-client request rate; zero disables limiting.
	RateLimit float64
	RateBurst int

	// EnableAudit turns on per-request logging and metrics.
	EnableAudit bool
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
// Services and logger must still be set by the caller.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		CORSOrigins: []string{"*"},
		RateLimit:   25.0,
		RateBurst:   50,
		EnableAudit: true,
	}
}

// NewRouter assembles the full HTTP handler: business handlers wrapped
// in the middleware chains. Public endpoints (health, metrics, account
// entry points, key redemption) skip authentication; everything else
// requires a Bearer login token.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	h := handler.New(cfg.Users, cfg.Products, cfg.Keys, cfg.Ledger, log)
	mw := &MiddlewareConfig{Users: cfg.Users, Logger: log}

	// Base chain applied to every route, innermost last.
	base := []Middleware{RequestID(), Recover(log)}
	if len(cfg.CORSOrigins) > 0 {
		base = append(base, CORS(cfg.CORSOrigins))
	}
	if cfg.RateLimit > 0 {
		base = append(base, RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.EnableAudit {
		base = append(base, Audit(log))
	}

	public := Chain(h, base...)
	authed := Chain(h, append(append([]Middleware{}, base...), Auth(mw))...)
	admin := Chain(h, append(append([]Middleware{}, base...), AdminAuth(mw))...)

	mux := http.NewServeMux()

	// Unauthenticated surface. The scratch-card key and the connection
	// token are credentials in their own right.
	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)
	mux.Handle("GET /metrics", public)
	mux.Handle("POST /auth/register", public)
	mux.Handle("POST /auth/login", public)
	mux.Handle("POST /keys/activate", public)
	mux.Handle("POST /connect", public)

	// Admin-gated surface.
	mux.Handle("POST /credits/grant", admin)
	mux.Handle("POST /users/{id}/elevate", admin)
	mux.Handle("POST /users/{id}/demote", admin)

	// Everything else requires a logged-in actor.
	mux.Handle("/", authed)

	return mux
}
