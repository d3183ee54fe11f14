package memory

import (
	"sync"

	"github.com/keyforge/keyforge-go/pkg/cmap"
)

// IDSet is a concurrent-safe set of record IDs.
type IDSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewIDSet creates a new ID set.
func NewIDSet() *IDSet {
	return &IDSet{
		items: make(map[string]struct{}),
	}
}

// Add adds an ID to the set.
func (s *IDSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// Remove removes an ID from the set.
func (s *IDSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Contains checks if an ID is in the set.
func (s *IDSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items in the set.
func (s *IDSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all IDs.
func (s *IDSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for id := range s.items {
		items = append(items, id)
	}
	return items
}

// RefIndex maps an owning record ID to the set of IDs referencing it.
// The key store uses one to answer "all keys created by this user"
// without scanning the primary map.
type RefIndex struct {
	index *cmap.Map[*IDSet]
}

// NewRefIndex creates a new reference index.
func NewRefIndex() *RefIndex {
	return &RefIndex{
		index: cmap.New[*IDSet](),
	}
}

// Add adds a referencing ID under the owner.
func (i *RefIndex) Add(ownerID, id string) {
	set, _ := i.index.GetOrSet(ownerID, NewIDSet())
	set.Add(id)
}

// Remove removes a referencing ID from the owner's set.
func (i *RefIndex) Remove(ownerID, id string) {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return
	}

	set.Remove(id)

	// Clean up empty sets
	if set.Len() == 0 {
		i.index.Delete(ownerID)
	}
}

// Get returns all IDs referencing the owner.
func (i *RefIndex) Get(ownerID string) []string {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of IDs referencing the owner.
func (i *RefIndex) Count(ownerID string) int {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return 0
	}
	return set.Len()
}

// Clear removes every reference held for the owner.
func (i *RefIndex) Clear(ownerID string) {
	i.index.Delete(ownerID)
}
