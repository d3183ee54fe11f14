package benchmark

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/storage/memory"
)

// KeyCounts defines the key counts for benchmarking.
var KeyCounts = []int{5000, 10000, 50000, 100000, 200000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 5000, 10000}

// creatorPool is a fixed pool of creator IDs so ListByCreator has
// realistic fan-out.
var (
	creatorPoolOnce sync.Once
	creatorPool     []string
)

func creatorID(b *testing.B, i int) string {
	b.Helper()
	creatorPoolOnce.Do(func() {
		creatorPool = make([]string, 1000)
		for j := range creatorPool {
			id, err := domain.NewUserID()
			if err != nil {
				b.Fatalf("NewUserID failed: %v", err)
			}
			creatorPool[j] = id
		}
	})
	return creatorPool[i%len(creatorPool)]
}

// benchPasswordHash is computed once; hashing per prefilled user would
// dominate setup time.
var (
	benchHashOnce     sync.Once
	benchPasswordHash string
)

func passwordHash(b *testing.B) string {
	b.Helper()
	benchHashOnce.Do(func() {
		hash, err := domain.HashPassword("benchmark-password-1")
		if err != nil {
			b.Fatalf("HashPassword failed: %v", err)
		}
		benchPasswordHash = hash
	})
	return benchPasswordHash
}

// newBenchKey creates a test key.
func newBenchKey(b *testing.B, productID string, i int) *domain.Key {
	b.Helper()
	creator := creatorID(b, i)
	key, err := domain.NewKey(productID, creator, creator, 24*time.Hour)
	if err != nil {
		b.Fatalf("NewKey failed: %v", err)
	}
	return key
}

// newBenchProductID mints a valid product ID.
func newBenchProductID(b *testing.B) string {
	b.Helper()
	id, err := domain.NewProductID()
	if err != nil {
		b.Fatalf("NewProductID failed: %v", err)
	}
	return id
}

// prefillKeyStore prefills a key store.
func prefillKeyStore(ctx context.Context, b *testing.B, store *memory.KeyStore, productID string, count int) []*domain.Key {
	b.Helper()
	keys := make([]*domain.Key, count)
	for i := 0; i < count; i++ {
		keys[i] = newBenchKey(b, productID, i)
		if err := store.Create(ctx, keys[i]); err != nil {
			b.Fatalf("Create failed: %v", err)
		}
	}
	return keys
}

// prefillUserStore prefills a user store with registered accounts.
func prefillUserStore(ctx context.Context, b *testing.B, store *memory.UserStore, count int) []*domain.User {
	b.Helper()
	hash := passwordHash(b)
	users := make([]*domain.User, count)
	for i := 0; i < count; i++ {
		id, err := domain.NewUserID()
		if err != nil {
			b.Fatalf("NewUserID failed: %v", err)
		}
		users[i] = &domain.User{
			ID:           id,
			Username:     fmt.Sprintf("benchuser%06d", i),
			Email:        fmt.Sprintf("bench%06d@example.com", i),
			PasswordHash: hash,
			Authority:    domain.RoleUser,
			CreatedAt:    time.Now().UnixMilli(),
			Version:      1,
		}
		if err := store.Create(ctx, users[i]); err != nil {
			b.Fatalf("Create failed: %v", err)
		}
	}
	return users
}
