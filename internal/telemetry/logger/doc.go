// Package logger provides structured logging for Keyforge.
//
// The implementation is built on log/slog:
//
//   - logger.go: Logger interface and slog handler setup
//   - context.go: request-scoped loggers and request ID propagation
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Level filtering shared across all constructed loggers
//   - Automatic masking of token, hash and credential values
package logger
