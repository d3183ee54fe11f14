// Package httpserver provides the HTTP/HTTPS server for Keyforge.
//
// It uses the Go standard library net/http for routing and serving,
// exposing RESTful API endpoints for accounts, credits, products and
// license keys. Cross-cutting concerns (request IDs, panic recovery,
// CORS, rate limiting, authentication, audit logging) are implemented
// as composable middleware in this package; the endpoint logic lives
// in the handler subpackage.
package httpserver
