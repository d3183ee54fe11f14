package storage

import (
	"context"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/core/service"
)

// The repository wrappers apply every mutation to the memory store first,
// where uniqueness and version checks live, and persist to Badger only
// after the memory store accepted it. A failed persist of a Create is
// rolled back; a failed persist of an Update or Delete leaves the working
// set ahead of the database until the next restart, which is logged and
// surfaced as a storage error.

// Users returns the durable user repository.
func (e *Engine) Users() service.UserRepository {
	return &userRepo{e: e}
}

// Products returns the durable product repository.
func (e *Engine) Products() service.ProductRepository {
	return &productRepo{e: e}
}

// Keys returns the durable key repository.
func (e *Engine) Keys() service.KeyRepository {
	return &keyRepo{e: e}
}

// KeyTokens returns the durable key token repository.
func (e *Engine) KeyTokens() service.KeyTokenRepository {
	return &keyTokenRepo{e: e}
}

// ============================================================================
// UserRepository
// ============================================================================

type userRepo struct {
	e *Engine
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	if err := r.e.users.Create(ctx, user); err != nil {
		return err
	}
	if err := r.e.put(prefixUser, user.ID, newStoredUser(user)); err != nil {
		if rbErr := r.e.users.Delete(ctx, user.ID); rbErr != nil {
			r.e.log.Error("rollback of unpersisted user failed",
				"user_id", user.ID, "error", rbErr)
		}
		return err
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.e.users.Get(ctx, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.e.users.GetByUsername(ctx, username)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.e.users.GetByEmail(ctx, email)
}

func (r *userRepo) Update(ctx context.Context, user *domain.User, expectedVersion uint64) error {
	if err := r.e.users.Update(ctx, user, expectedVersion); err != nil {
		return err
	}
	if err := r.e.put(prefixUser, user.ID, newStoredUser(user)); err != nil {
		r.e.log.Error("user update not persisted", "user_id", user.ID, "error", err)
		return err
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	if err := r.e.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.e.del(prefixUser, id); err != nil {
		r.e.log.Error("user delete not persisted", "user_id", id, "error", err)
		return err
	}
	return nil
}

func (r *userRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	return r.e.users.Search(ctx, query, limit)
}

// ============================================================================
// ProductRepository
// ============================================================================

type productRepo struct {
	e *Engine
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	if err := r.e.products.Create(ctx, product); err != nil {
		return err
	}
	if err := r.e.put(prefixProduct, product.ID, product); err != nil {
		if rbErr := r.e.products.Delete(ctx, product.ID); rbErr != nil {
			r.e.log.Error("rollback of unpersisted product failed",
				"product_id", product.ID, "error", rbErr)
		}
		return err
	}
	return nil
}

func (r *productRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	return r.e.products.Get(ctx, id)
}

func (r *productRepo) GetByOwnerAndName(ctx context.Context, ownerID, name string) (*domain.Product, error) {
	return r.e.products.GetByOwnerAndName(ctx, ownerID, name)
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product, expectedVersion uint64) error {
	if err := r.e.products.Update(ctx, product, expectedVersion); err != nil {
		return err
	}
	if err := r.e.put(prefixProduct, product.ID, product); err != nil {
		r.e.log.Error("product update not persisted", "product_id", product.ID, "error", err)
		return err
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	if err := r.e.products.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.e.del(prefixProduct, id); err != nil {
		r.e.log.Error("product delete not persisted", "product_id", id, "error", err)
		return err
	}
	return nil
}

// ============================================================================
// KeyRepository
// ============================================================================

type keyRepo struct {
	e *Engine
}

func (r *keyRepo) Create(ctx context.Context, key *domain.Key) error {
	if err := r.e.keys.Create(ctx, key); err != nil {
		return err
	}
	if err := r.e.put(prefixKey, key.ID, key); err != nil {
		if rbErr := r.e.keys.Delete(ctx, key.ID); rbErr != nil {
			r.e.log.Error("rollback of unpersisted key failed",
				"key_id", key.ID, "error", rbErr)
		}
		return err
	}
	return nil
}

func (r *keyRepo) Get(ctx context.Context, id string) (*domain.Key, error) {
	return r.e.keys.Get(ctx, id)
}

func (r *keyRepo) GetByUUID(ctx context.Context, uuid string) (*domain.Key, error) {
	return r.e.keys.GetByUUID(ctx, uuid)
}

func (r *keyRepo) Update(ctx context.Context, key *domain.Key, expectedVersion uint64) error {
	if err := r.e.keys.Update(ctx, key, expectedVersion); err != nil {
		return err
	}
	if err := r.e.put(prefixKey, key.ID, key); err != nil {
		r.e.log.Error("key update not persisted", "key_id", key.ID, "error", err)
		return err
	}
	return nil
}

func (r *keyRepo) Activate(ctx context.Context, id, fingerprint string, now int64) (*domain.Key, error) {
	activated, err := r.e.keys.Activate(ctx, id, fingerprint, now)
	if err != nil {
		return nil, err
	}
	if err := r.e.put(prefixKey, activated.ID, activated); err != nil {
		r.e.log.Error("key activation not persisted", "key_id", id, "error", err)
		return nil, err
	}
	return activated, nil
}

func (r *keyRepo) Delete(ctx context.Context, id string) error {
	if err := r.e.keys.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.e.del(prefixKey, id); err != nil {
		r.e.log.Error("key delete not persisted", "key_id", id, "error", err)
		return err
	}
	return nil
}

func (r *keyRepo) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Key, error) {
	return r.e.keys.ListByCreator(ctx, creatorID)
}

func (r *keyRepo) ListAll(ctx context.Context) ([]*domain.Key, error) {
	return r.e.keys.ListAll(ctx)
}

// ============================================================================
// KeyTokenRepository
// ============================================================================

type keyTokenRepo struct {
	e *Engine
}

func (r *keyTokenRepo) Create(ctx context.Context, token *domain.KeyToken) error {
	if err := r.e.tokens.Create(ctx, token); err != nil {
		return err
	}
	if err := r.e.put(prefixKeyToken, token.ID, token); err != nil {
		if rbErr := r.e.tokens.Delete(ctx, token.ID); rbErr != nil {
			r.e.log.Error("rollback of unpersisted key token failed",
				"token_id", token.ID, "error", rbErr)
		}
		return err
	}
	return nil
}

func (r *keyTokenRepo) GetByToken(ctx context.Context, token string) (*domain.KeyToken, error) {
	return r.e.tokens.GetByToken(ctx, token)
}

func (r *keyTokenRepo) GetByKeyID(ctx context.Context, keyID string) (*domain.KeyToken, error) {
	return r.e.tokens.GetByKeyID(ctx, keyID)
}

func (r *keyTokenRepo) Delete(ctx context.Context, id string) error {
	if err := r.e.tokens.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.e.del(prefixKeyToken, id); err != nil {
		r.e.log.Error("key token delete not persisted", "token_id", id, "error", err)
		return err
	}
	return nil
}
