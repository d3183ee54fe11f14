package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/pkg/cmap"
)

// KeyStore provides in-memory key storage with UUID and creator indexes.
type KeyStore struct {
	// Primary index: KeyID -> Key
	keys *cmap.Map[*domain.Key]

	// Secondary index: UUID -> KeyID
	byUUID *cmap.Map[string]

	// Secondary index: CreatorID -> set of KeyIDs
	byCreator *RefIndex

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// NewKeyStore creates a new in-memory key store.
func NewKeyStore() *KeyStore {
	return &KeyStore{
		keys:      cmap.New[*domain.Key](),
		byUUID:    cmap.New[string](),
		byCreator: NewRefIndex(),
	}
}

// Create stores a new key.
func (s *KeyStore) Create(_ context.Context, key *domain.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys.Has(key.ID) {
		return domain.ErrStorageError.WithDetails("duplicate key ID: " + key.ID)
	}
	if s.byUUID.Has(key.UUID) {
		return domain.ErrStorageError.WithDetails("duplicate key UUID: " + key.UUID)
	}

	s.keys.Set(key.ID, key.Clone())
	s.byUUID.Set(key.UUID, key.ID)
	s.byCreator.Add(key.CreatorID, key.ID)

	return nil
}

// Get retrieves a key by ID.
func (s *KeyStore) Get(_ context.Context, id string) (*domain.Key, error) {
	key, ok := s.keys.Get(id)
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return key.Clone(), nil
}

// GetByUUID retrieves a key by its UUID.
func (s *KeyStore) GetByUUID(ctx context.Context, uuid string) (*domain.Key, error) {
	id, ok := s.byUUID.Get(uuid)
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return s.Get(ctx, id)
}

// Update updates an existing key with optimistic locking.
func (s *KeyStore) Update(_ context.Context, key *domain.Key, expectedVersion uint64) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.keys.Get(key.ID)
	if !ok {
		return domain.ErrKeyNotFound
	}

	// Optimistic locking: check version
	if existing.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	s.keys.Set(key.ID, key.Clone())

	return nil
}

// Activate flips the key to used and locks the hardware fingerprint in
// one step under the store lock. A key can pass this gate exactly once.
func (s *KeyStore) Activate(_ context.Context, id, fingerprint string, now int64) (*domain.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.keys.Get(id)
	if !ok {
		return nil, domain.ErrKeyNotFound
	}

	if existing.Used {
		return nil, domain.ErrKeyAlreadyUsed
	}
	if existing.Expired || (existing.ExpiresAt > 0 && existing.ExpiresAt <= now) {
		return nil, domain.ErrKeyExpired
	}

	activated := existing.Clone()
	activated.Activate(fingerprint)
	activated.IncrVersion()

	s.keys.Set(id, activated)

	return activated.Clone(), nil
}

// Delete removes a key and its index entries.
func (s *KeyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys.Pop(id)
	if !ok {
		return domain.ErrKeyNotFound
	}

	s.byUUID.Delete(key.UUID)
	s.byCreator.Remove(key.CreatorID, id)

	return nil
}

// ListByCreator retrieves all keys created by a user, oldest first.
func (s *KeyStore) ListByCreator(_ context.Context, creatorID string) ([]*domain.Key, error) {
	ids := s.byCreator.Get(creatorID)
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]*domain.Key, 0, len(ids))
	for _, id := range ids {
		key, ok := s.keys.Get(id)
		if !ok {
			continue // Skip if key was deleted
		}
		keys = append(keys, key.Clone())
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt < keys[j].CreatedAt
	})

	return keys, nil
}

// ListAll retrieves every key.
func (s *KeyStore) ListAll(_ context.Context) ([]*domain.Key, error) {
	keys := make([]*domain.Key, 0, s.keys.Count())
	s.keys.Range(func(_ string, key *domain.Key) bool {
		keys = append(keys, key.Clone())
		return true
	})
	return keys, nil
}

// Count returns the total number of keys.
func (s *KeyStore) Count() int {
	return s.keys.Count()
}

// Load rebuilds the store from a list of keys.
// This clears existing data and rebuilds all indexes.
func (s *KeyStore) Load(keys []*domain.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys.Clear()
	s.byUUID.Clear()
	s.byCreator = NewRefIndex()

	for _, key := range keys {
		s.keys.Set(key.ID, key.Clone())
		s.byUUID.Set(key.UUID, key.ID)
		s.byCreator.Add(key.CreatorID, key.ID)
	}
}
