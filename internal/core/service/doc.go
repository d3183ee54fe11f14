// Package service provides domain services for Keyforge.
//
// Services own the business rules; storage is reached through repository
// interfaces defined alongside each service, so stores are swappable
// (memory, badger) and mockable in tests.
//
// Cross-record writes are sequential and best-effort. Where a later write
// can fail after an earlier one succeeded, the create paths compensate
// (undo the earlier write) and the cascade paths surface an integrity
// error naming the failed step.
package service
