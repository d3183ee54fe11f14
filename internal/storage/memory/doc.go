// Package memory provides in-memory storage for Keyforge.
//
// Each record family (users, products, keys, key tokens) gets its own
// store backed by a sharded concurrent map plus the secondary indexes
// its repository interface needs. A per-store mutex covers operations
// that must observe the primary map and its indexes atomically.
//
// All stores hand out clones; callers never see the stored pointer.
package memory
