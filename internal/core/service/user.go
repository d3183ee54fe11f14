package service

import (
	"context"
	"strings"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

// UserRepository defines the storage interface for user records.
type UserRepository interface {
	// Create stores a new user. Username and email uniqueness is enforced
	// by the store.
	Create(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by lowercased email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user (with optimistic locking).
	Update(ctx context.Context, user *domain.User, expectedVersion uint64) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id string) error

	// Search returns users whose username contains the query, up to limit.
	Search(ctx context.Context, query string, limit int) ([]*domain.User, error)
}

// ProductCascader tears down a product and every record hanging off it.
// Implemented by ProductService; consumed by user deletion.
type ProductCascader interface {
	DeleteCascade(ctx context.Context, productID string) error
	DetachMember(ctx context.Context, productID, userID string) error
}

// KeyCascader tears down a single key and its connection token.
// Implemented by KeyService; consumed by user deletion.
type KeyCascader interface {
	DeleteCascade(ctx context.Context, keyID string, refund bool) error
	ListIDsByCreator(ctx context.Context, creatorID string) ([]string, error)
}

// UserService handles registration, authentication and account lifecycle.
type UserService struct {
	repo     UserRepository
	tokens   *TokenService
	root     *RootGate
	products ProductCascader
	keys     KeyCascader
}

// NewUserService creates a new UserService. The cascaders are wired after
// construction (SetCascaders) because they live in services built later.
func NewUserService(repo UserRepository, tokens *TokenService, root *RootGate) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		root:   root,
	}
}

// SetCascaders wires the product and key teardown dependencies.
func (s *UserService) SetCascaders(products ProductCascader, keys KeyCascader) {
	s.products = products
	s.keys = keys
}

// ============================================================================
// Registration and authentication
// ============================================================================

// RegisterRequest contains parameters for account registration.
type RegisterRequest struct {
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// RegisterResponse contains the result of registration.
type RegisterResponse struct {
	User  *domain.User
	Token string // signed auth token, logged in immediately
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	// 1. Validate inputs
	if err := domain.ValidateUsername(req.Username); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	if err := domain.ValidateEmail(req.Email); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	if req.Password != req.PasswordConfirmation {
		return nil, domain.ErrInvalidArgument.WithDetails("passwords do not match")
	}
	if err := domain.ValidatePasswordStrength(req.Password); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}

	// 2. Uniqueness checks (the store enforces them again on insert)
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	}
	if _, err := s.repo.GetByEmail(ctx, strings.ToLower(req.Email)); err == nil {
		return nil, domain.ErrEmailTaken
	}

	// 3. Create and persist
	user, err := domain.NewUser(req.Username, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// 4. Log the account in
	token, err := s.tokens.MintAuthToken(user)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	return &RegisterResponse{User: user, Token: token}, nil
}

// AuthenticateRequest contains login parameters. Login holds either the
// username or the email; an '@' selects the email lookup.
type AuthenticateRequest struct {
	Login    string
	Password string
}

// AuthenticateResponse contains the result of a login.
type AuthenticateResponse struct {
	User  *domain.User
	Token string
}

// Authenticate verifies credentials and mints an auth token.
func (s *UserService) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthenticateResponse, error) {
	if req.Login == "" || req.Password == "" {
		return nil, domain.ErrMissingArgument.WithDetails("login and password are required")
	}

	var user *domain.User
	var err error
	if strings.Contains(req.Login, "@") {
		user, err = s.repo.GetByEmail(ctx, strings.ToLower(req.Login))
	} else {
		user, err = s.repo.GetByUsername(ctx, req.Login)
	}
	if err != nil {
		// Same answer as a bad password, no account enumeration.
		return nil, domain.ErrInvalidCredentials
	}

	if !domain.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.MintAuthToken(user)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	return &AuthenticateResponse{User: user, Token: token}, nil
}

// VerifyAuthToken resolves a bearer token to the live user record.
func (s *UserService) VerifyAuthToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAuthToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Get(ctx, claims.Subject)
	if err != nil {
		return nil, domain.ErrUnauthenticated.WithDetails("account no longer exists")
	}
	return user, nil
}

// ============================================================================
// Queries
// ============================================================================

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("user id is required")
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}
	return user, nil
}

// SearchRequest contains parameters for user search.
type SearchRequest struct {
	ActorID string // excluded from results
	Query   string
	Limit   int // default 20, max 100
}

// Search finds users by username fragment, excluding the caller.
func (s *UserService) Search(ctx context.Context, req *SearchRequest) ([]*domain.User, error) {
	if req.Query == "" {
		return nil, domain.ErrMissingArgument.WithDetails("query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	// Fetch one extra so excluding the caller still fills the page.
	found, err := s.repo.Search(ctx, req.Query, limit+1)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	results := make([]*domain.User, 0, len(found))
	for _, u := range found {
		if u.ID == req.ActorID {
			continue
		}
		results = append(results, u)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// ============================================================================
// Profile updates
// ============================================================================

// UpdateProfileRequest contains the fields to change. Empty fields keep
// their current value.
type UpdateProfileRequest struct {
	UserID   string
	Username string
	Email    string
	Password string
}

// UpdateProfile updates the caller's own account fields.
func (s *UserService) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*domain.User, error) {
	user, err := s.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	oldVersion := user.Version
	user = user.Clone()

	if req.Username != "" && req.Username != user.Username {
		if err := domain.ValidateUsername(req.Username); err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
		}
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return nil, domain.ErrUsernameTaken
		}
		user.Username = req.Username
	}

	if req.Email != "" {
		email := strings.ToLower(req.Email)
		if email != user.Email {
			if err := domain.ValidateEmail(email); err != nil {
				return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
			}
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return nil, domain.ErrEmailTaken
			}
			user.Email = email
		}
	}

	if req.Password != "" {
		if err := domain.ValidatePasswordStrength(req.Password); err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
		}
		hash, err := domain.HashPassword(req.Password)
		if err != nil {
			return nil, domain.ErrInternalServer.WithCause(err)
		}
		user.PasswordHash = hash
	}

	user.IncrVersion()
	if err := s.repo.Update(ctx, user, oldVersion); err != nil {
		return nil, err
	}
	return user, nil
}

// ============================================================================
// Authority changes
// ============================================================================

// Elevate grants admin authority to the target. Actor must be an admin.
func (s *UserService) Elevate(ctx context.Context, actorID, targetID string) (*domain.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Authority.IsAdmin() {
		return nil, domain.ErrAlreadyAdmin
	}

	oldVersion := target.Version
	target = target.Clone()
	target.Authority = domain.RoleAdmin
	target.IncrVersion()

	if err := s.repo.Update(ctx, target, oldVersion); err != nil {
		return nil, err
	}
	return target, nil
}

// Demote revokes admin authority. Actor must be an admin and present the
// root capability secret.
func (s *UserService) Demote(ctx context.Context, actorID, targetID, rootSecret string) (*domain.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.root.verify(actorID, "user.demote", rootSecret); err != nil {
		return nil, err
	}

	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.Authority.IsAdmin() {
		return nil, domain.ErrNotAdmin
	}

	oldVersion := target.Version
	target = target.Clone()
	target.Authority = domain.RoleUser
	target.IncrVersion()

	if err := s.repo.Update(ctx, target, oldVersion); err != nil {
		return nil, err
	}
	return target, nil
}

// requireAdmin loads the actor and checks admin authority.
func (s *UserService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Authority.IsAdmin() {
		return domain.ErrForbidden.WithDetails("admin authority required")
	}
	return nil
}
