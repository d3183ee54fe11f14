// Package handler provides HTTP request handlers for Keyforge.
//
// This package implements the HTTP API endpoints for account management,
// the credit ledger, products and license keys:
//
//   - handler.go: dispatch, response envelope, error mapping
//   - auth.go: registration and login
//   - user.go: profile, search and authority management
//   - credits.go: balance, purchase, grants and transfers
//   - product.go: product lifecycle and membership
//   - key.go: key issuance, activation, connection and teardown
//
// All JSON responses use the envelope defined in types.go. The /metrics
// endpoint is the one exception; it speaks the Prometheus text format.
package handler
