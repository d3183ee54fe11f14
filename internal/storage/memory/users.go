package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/pkg/cmap"
)

// UserStore provides in-memory user storage with username and email indexes.
type UserStore struct {
	// Primary index: UserID -> User
	users *cmap.Map[*domain.User]

	// Secondary index: Username -> UserID
	byUsername *cmap.Map[string]

	// Secondary index: lowercased Email -> UserID
	byEmail *cmap.Map[string]

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:      cmap.New[*domain.User](),
		byUsername: cmap.New[string](),
		byEmail:    cmap.New[string](),
	}
}

// Create stores a new user, enforcing username and email uniqueness.
func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users.Has(user.ID) {
		return domain.ErrStorageError.WithDetails("duplicate user ID: " + user.ID)
	}
	if s.byUsername.Has(user.Username) {
		return domain.ErrUsernameTaken
	}

	email := strings.ToLower(user.Email)
	if s.byEmail.Has(email) {
		return domain.ErrEmailTaken
	}

	// Store a clone to prevent external modification
	s.users.Set(user.ID, user.Clone())
	s.byUsername.Set(user.Username, user.ID)
	s.byEmail.Set(email, user.ID)

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(_ context.Context, id string) (*domain.User, error) {
	user, ok := s.users.Get(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

// GetByUsername retrieves a user by exact username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, ok := s.byUsername.Get(username)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.Get(ctx, id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := s.byEmail.Get(strings.ToLower(email))
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.Get(ctx, id)
}

// Update updates an existing user with optimistic locking.
// Username and email index entries follow any rename.
func (s *UserStore) Update(_ context.Context, user *domain.User, expectedVersion uint64) error {
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users.Get(user.ID)
	if !ok {
		return domain.ErrUserNotFound
	}

	// Optimistic locking: check version
	if existing.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	if existing.Username != user.Username {
		if s.byUsername.Has(user.Username) {
			return domain.ErrUsernameTaken
		}
		s.byUsername.Delete(existing.Username)
		s.byUsername.Set(user.Username, user.ID)
	}

	oldEmail := strings.ToLower(existing.Email)
	newEmail := strings.ToLower(user.Email)
	if oldEmail != newEmail {
		if s.byEmail.Has(newEmail) {
			return domain.ErrEmailTaken
		}
		s.byEmail.Delete(oldEmail)
		s.byEmail.Set(newEmail, user.ID)
	}

	s.users.Set(user.ID, user.Clone())

	return nil
}

// Delete removes a user and its index entries.
func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users.Pop(id)
	if !ok {
		return domain.ErrUserNotFound
	}

	s.byUsername.Delete(user.Username)
	s.byEmail.Delete(strings.ToLower(user.Email))

	return nil
}

// Search returns users whose username contains the query, case-insensitively,
// sorted by username and capped at limit.
func (s *UserStore) Search(_ context.Context, query string, limit int) ([]*domain.User, error) {
	needle := strings.ToLower(query)

	var matched []*domain.User
	s.users.Range(func(_ string, user *domain.User) bool {
		if strings.Contains(strings.ToLower(user.Username), needle) {
			matched = append(matched, user.Clone())
		}
		return true
	})

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Username < matched[j].Username
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// Count returns the total number of users.
func (s *UserStore) Count() int {
	return s.users.Count()
}

// All returns all users as a slice. Used for snapshot creation.
func (s *UserStore) All() []*domain.User {
	users := make([]*domain.User, 0, s.users.Count())
	s.users.Range(func(_ string, user *domain.User) bool {
		users = append(users, user.Clone())
		return true
	})
	return users
}

// Load rebuilds the store from a list of users.
// This clears existing data and rebuilds all indexes.
func (s *UserStore) Load(users []*domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users.Clear()
	s.byUsername.Clear()
	s.byEmail.Clear()

	for _, user := range users {
		s.users.Set(user.ID, user.Clone())
		s.byUsername.Set(user.Username, user.ID)
		s.byEmail.Set(strings.ToLower(user.Email), user.ID)
	}
}
