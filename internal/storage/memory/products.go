package memory

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/pkg/cmap"
)

// ProductStore provides in-memory product storage with a per-owner name index.
type ProductStore struct {
	// Primary index: ProductID -> Product
	products *cmap.Map[*domain.Product]

	// Secondary index: ownerID + name -> ProductID
	byOwnerName *cmap.Map[string]

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// NewProductStore creates a new in-memory product store.
func NewProductStore() *ProductStore {
	return &ProductStore{
		products:    cmap.New[*domain.Product](),
		byOwnerName: cmap.New[string](),
	}
}

// ownerNameKey builds the composite index key. The NUL separator cannot
// appear in a validated product name.
func ownerNameKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

// Create stores a new product, enforcing per-owner name uniqueness.
func (s *ProductStore) Create(_ context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.products.Has(product.ID) {
		return domain.ErrStorageError.WithDetails("duplicate product ID: " + product.ID)
	}

	nameKey := ownerNameKey(product.OwnerID, product.Name)
	if s.byOwnerName.Has(nameKey) {
		return domain.ErrProductNameTaken
	}

	s.products.Set(product.ID, product.Clone())
	s.byOwnerName.Set(nameKey, product.ID)

	return nil
}

// Get retrieves a product by ID.
func (s *ProductStore) Get(_ context.Context, id string) (*domain.Product, error) {
	product, ok := s.products.Get(id)
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return product.Clone(), nil
}

// GetByOwnerAndName retrieves a product by owner ID and exact name.
func (s *ProductStore) GetByOwnerAndName(ctx context.Context, ownerID, name string) (*domain.Product, error) {
	id, ok := s.byOwnerName.Get(ownerNameKey(ownerID, name))
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return s.Get(ctx, id)
}

// Update updates an existing product with optimistic locking.
// The name index follows renames and ownership transfers.
func (s *ProductStore) Update(_ context.Context, product *domain.Product, expectedVersion uint64) error {
	if err := product.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products.Get(product.ID)
	if !ok {
		return domain.ErrProductNotFound
	}

	// Optimistic locking: check version
	if existing.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	oldKey := ownerNameKey(existing.OwnerID, existing.Name)
	newKey := ownerNameKey(product.OwnerID, product.Name)
	if oldKey != newKey {
		if s.byOwnerName.Has(newKey) {
			return domain.ErrProductNameTaken
		}
		s.byOwnerName.Delete(oldKey)
		s.byOwnerName.Set(newKey, product.ID)
	}

	s.products.Set(product.ID, product.Clone())

	return nil
}

// Delete removes a product and its index entry.
func (s *ProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products.Pop(id)
	if !ok {
		return domain.ErrProductNotFound
	}

	s.byOwnerName.Delete(ownerNameKey(product.OwnerID, product.Name))

	return nil
}

// Count returns the total number of products.
func (s *ProductStore) Count() int {
	return s.products.Count()
}

// All returns all products as a slice. Used for snapshot creation.
func (s *ProductStore) All() []*domain.Product {
	products := make([]*domain.Product, 0, s.products.Count())
	s.products.Range(func(_ string, product *domain.Product) bool {
		products = append(products, product.Clone())
		return true
	})
	return products
}

// Load rebuilds the store from a list of products.
// This clears existing data and rebuilds the name index.
func (s *ProductStore) Load(products []*domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products.Clear()
	s.byOwnerName.Clear()

	for _, product := range products {
		s.products.Set(product.ID, product.Clone())
		s.byOwnerName.Set(ownerNameKey(product.OwnerID, product.Name), product.ID)
	}
}
