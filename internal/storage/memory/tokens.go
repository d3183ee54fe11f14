package memory

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/pkg/cmap"
)

// KeyTokenStore provides in-memory connection token storage.
type KeyTokenStore struct {
	// Primary index: KeyTokenID -> KeyToken
	tokens *cmap.Map[*domain.KeyToken]

	// Secondary index: token string -> KeyTokenID
	byToken *cmap.Map[string]

	// Secondary index: KeyID -> KeyTokenID
	byKey *cmap.Map[string]

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// NewKeyTokenStore creates a new in-memory key token store.
func NewKeyTokenStore() *KeyTokenStore {
	return &KeyTokenStore{
		tokens:  cmap.New[*domain.KeyToken](),
		byToken: cmap.New[string](),
		byKey:   cmap.New[string](),
	}
}

// Create stores a new key token. A key holds at most one token.
func (s *KeyTokenStore) Create(_ context.Context, token *domain.KeyToken) error {
	if err := token.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens.Has(token.ID) {
		return domain.ErrStorageError.WithDetails("duplicate token ID: " + token.ID)
	}
	if s.byToken.Has(token.Token) {
		return domain.ErrStorageError.WithDetails("duplicate token string")
	}
	if s.byKey.Has(token.KeyID) {
		return domain.ErrStorageError.WithDetails("key already has a token: " + token.KeyID)
	}

	s.tokens.Set(token.ID, token.Clone())
	s.byToken.Set(token.Token, token.ID)
	s.byKey.Set(token.KeyID, token.ID)

	return nil
}

// GetByToken retrieves a record by the literal token string.
func (s *KeyTokenStore) GetByToken(_ context.Context, tokenStr string) (*domain.KeyToken, error) {
	id, ok := s.byToken.Get(tokenStr)
	if !ok {
		return nil, domain.ErrKeyTokenNotFound
	}

	token, ok := s.tokens.Get(id)
	if !ok {
		// Index inconsistency - clean up the orphaned entry
		s.byToken.Delete(tokenStr)
		return nil, domain.ErrKeyTokenNotFound
	}

	return token.Clone(), nil
}

// GetByKeyID retrieves the record minted for a key, if any.
func (s *KeyTokenStore) GetByKeyID(_ context.Context, keyID string) (*domain.KeyToken, error) {
	id, ok := s.byKey.Get(keyID)
	if !ok {
		return nil, domain.ErrKeyTokenNotFound
	}

	token, ok := s.tokens.Get(id)
	if !ok {
		s.byKey.Delete(keyID)
		return nil, domain.ErrKeyTokenNotFound
	}

	return token.Clone(), nil
}

// Delete removes a key token and its index entries.
func (s *KeyTokenStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens.Pop(id)
	if !ok {
		return domain.ErrKeyTokenNotFound
	}

	s.byToken.Delete(token.Token)
	s.byKey.Delete(token.KeyID)

	return nil
}

// Count returns the total number of key tokens.
func (s *KeyTokenStore) Count() int {
	return s.tokens.Count()
}

// Load rebuilds the store from a list of key tokens.
// This clears existing data and rebuilds all indexes.
func (s *KeyTokenStore) Load(tokens []*domain.KeyToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens.Clear()
	s.byToken.Clear()
	s.byKey.Clear()

	for _, token := range tokens {
		s.tokens.Set(token.ID, token.Clone())
		s.byToken.Set(token.Token, token.ID)
		s.byKey.Set(token.KeyID, token.ID)
	}
}
