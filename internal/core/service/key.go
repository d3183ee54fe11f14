package service

import (
	"context"
	"fmt"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
	"github.com/keyforge/keyforge-go/internal/telemetry/metric"
	"github.com/keyforge/keyforge-go/pkg/keycodec"
)

// KeyRepository defines the storage interface for key records.
type KeyRepository interface {
	// Create stores a new key.
	Create(ctx context.Context, key *domain.Key) error

	// Get retrieves a key by ID.
	Get(ctx context.Context, id string) (*domain.Key, error)

	// GetByUUID retrieves a key by its UUID.
	GetByUUID(ctx context.Context, uuid string) (*domain.Key, error)

	// Update updates an existing key (with optimistic locking).
	Update(ctx context.Context, key *domain.Key, expectedVersion uint64) error

	// Activate flips used from false to true and locks the HWID in one
	// atomic storage update. Fails with ErrKeyAlreadyUsed when the key is
	// already used and ErrKeyExpired when it is flagged expired or its
	// deadline has passed at now.
	Activate(ctx context.Context, id, fingerprint string, now int64) (*domain.Key, error)

	// Delete deletes a key by ID.
	Delete(ctx context.Context, id string) error

	// ListByCreator retrieves all keys created by a user.
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Key, error)

	// ListAll retrieves every key. Used by the sweeper.
	ListAll(ctx context.Context) ([]*domain.Key, error)
}

// KeyTokenRepository defines the storage interface for connection tokens.
type KeyTokenRepository interface {
	// Create stores a new key token.
	Create(ctx context.Context, token *domain.KeyToken) error

	// GetByToken retrieves a record by the literal token string.
	GetByToken(ctx context.Context, token string) (*domain.KeyToken, error)

	// GetByKeyID retrieves the record minted for a key, if any.
	GetByKeyID(ctx context.Context, keyID string) (*domain.KeyToken, error)

	// Delete deletes a key token by ID.
	Delete(ctx context.Context, id string) error
}

// KeyService handles the key lifecycle: issuance, activation, connection
// verification and teardown.
type KeyService struct {
	repo      KeyRepository
	tokenRepo KeyTokenRepository
	products  ProductRepository
	users     UserRepository
	ledger    *LedgerService
	tokens    *TokenService
	log       logger.Logger
}

// NewKeyService creates a new KeyService.
func NewKeyService(
	repo KeyRepository,
	tokenRepo KeyTokenRepository,
	products ProductRepository,
	users UserRepository,
	ledger *LedgerService,
	tokens *TokenService,
	log logger.Logger,
) *KeyService {
	return &KeyService{
		repo:      repo,
		tokenRepo: tokenRepo,
		products:  products,
		users:     users,
		ledger:    ledger,
		tokens:    tokens,
		log:       log,
	}
}

// ============================================================================
// Issuance
// ============================================================================

// CreateKeyRequest contains parameters for key creation.
type CreateKeyRequest struct {
	ActorID   string
	ProductID string
	Days      int    // optional TTL in days, default 7
	ForUserID string // optional beneficiary, admin only
}

// CreateKeyResponse contains the result of key creation.
type CreateKeyResponse struct {
	Key            *domain.Key
	RedeemableForm string // the scratch-card form handed to the customer
}

// Create issues a new key against a product. The beneficiary pays the key
// cost up front; any failure after the debit is compensated so neither an
// orphan key nor a lost debit survives.
func (s *KeyService) Create(ctx context.Context, req *CreateKeyRequest) (*CreateKeyResponse, error) {
	// 1. Validate the TTL
	if req.Days < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("days must be a positive integer")
	}
	ttl := domain.DefaultKeyTTL
	if req.Days > 0 {
		ttl = time.Duration(req.Days) * 24 * time.Hour
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, domain.ErrProductNotFound.WithCause(err)
	}

	// 2. Authorization and beneficiary resolution. Owners issue for
	// themselves; admins may issue for a named owner or member.
	beneficiaryID := req.ActorID
	if req.ForUserID != "" && req.ForUserID != req.ActorID {
		actor, err := s.users.Get(ctx, req.ActorID)
		if err != nil {
			return nil, domain.ErrUserNotFound.WithCause(err)
		}
		if !actor.Authority.IsAdmin() {
			return nil, domain.ErrForbidden.WithDetails("only admins may issue keys for another user")
		}
		if req.ForUserID != product.OwnerID && !product.HasMember(req.ForUserID) {
			return nil, domain.ErrForbidden.WithDetails("beneficiary must be the product owner or a member")
		}
		beneficiaryID = req.ForUserID
	} else if product.OwnerID != req.ActorID {
		return nil, domain.ErrForbidden.WithDetails("only the product owner may issue keys")
	}

	// 3. The beneficiary pays. Fails closed on insufficient balance.
	if _, err := s.ledger.Debit(ctx, beneficiaryID, domain.KeyCost); err != nil {
		return nil, err
	}

	// 4. Persist the key; refund on failure
	key, err := domain.NewKey(req.ProductID, req.ActorID, beneficiaryID, ttl)
	if err != nil {
		s.compensateDebit(ctx, beneficiaryID)
		return nil, err
	}
	if err := key.Validate(); err != nil {
		s.compensateDebit(ctx, beneficiaryID)
		return nil, err
	}
	if err := s.repo.Create(ctx, key); err != nil {
		s.compensateDebit(ctx, beneficiaryID)
		return nil, err
	}

	// 5. Attach to the product; remove the key and refund on failure
	productVersion := product.Version
	product = product.Clone()
	product.AddKey(key.ID)
	product.IncrVersion()
	if err := s.products.Update(ctx, product, productVersion); err != nil {
		if delErr := s.repo.Delete(ctx, key.ID); delErr != nil {
			return nil, domain.ErrIntegrity.WithDetails(
				"key created but product attach and compensating delete both failed").WithCause(delErr)
		}
		s.compensateDebit(ctx, beneficiaryID)
		return nil, domain.ErrStorageError.WithCause(err)
	}

	form, err := keycodec.Encode(key.UUID)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	metric.KeysIssued.Inc()
	return &CreateKeyResponse{Key: key, RedeemableForm: form}, nil
}

// compensateDebit refunds a key-cost debit after a failed create.
func (s *KeyService) compensateDebit(ctx context.Context, beneficiaryID string) {
	if _, err := s.ledger.Refund(ctx, beneficiaryID, domain.KeyCost); err != nil {
		s.log.Error("compensating refund failed",
			"user_id", beneficiaryID, "amount", domain.KeyCost, "error", err)
	}
}

// ============================================================================
// Activation and connection
// ============================================================================

// ActivateRequest contains parameters for key activation.
type ActivateRequest struct {
	RedeemableForm string // the scratch-card key string
	HWIDInfo       string // machine fingerprint to lock onto
}

// ActivateResponse contains the result of an activation.
type ActivateResponse struct {
	Key             *domain.Key
	ConnectionToken string
}

// Activate redeems a key exactly once, binding it to the presented machine
// fingerprint and minting the connection token.
func (s *KeyService) Activate(ctx context.Context, req *ActivateRequest) (*ActivateResponse, error) {
	if req.HWIDInfo == "" {
		return nil, domain.ErrMissingArgument.WithDetails("hwid info is required")
	}

	// 1. Decode the public form back to the UUID
	keyUUID, err := keycodec.Decode(req.RedeemableForm)
	if err != nil {
		return nil, domain.ErrKeyMalformed.WithCause(err)
	}

	key, err := s.repo.GetByUUID(ctx, keyUUID)
	if err != nil {
		return nil, domain.ErrKeyNotFound.WithCause(err)
	}

	// 2. Conditional flip used=false -> true. The store does the check and
	// the write in one atomic update, so a concurrent activation or a
	// sweeper mark cannot slip in between.
	key, err = s.repo.Activate(ctx, key.ID, req.HWIDInfo, timeNow().UnixMilli())
	if err != nil {
		return nil, err
	}

	// 3. Mint and persist the connection token. The key is already burned
	// at this point, so a failure here is a server fault, not a retryable
	// client error.
	tokenString, err := s.tokens.MintConnectionToken(key)
	if err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			"key activated but connection token mint failed").WithCause(err)
	}
	record, err := domain.NewKeyToken(tokenString, key.ID, key.ProductID, key.CreatorID)
	if err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			"key activated but connection token record failed").WithCause(err)
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			"key activated but connection token not persisted").WithCause(err)
	}

	metric.KeysActivated.Inc()
	return &ActivateResponse{Key: key, ConnectionToken: tokenString}, nil
}

// Connect verifies a connection token presented by client software. Every
// failure is reported uniformly as connection unauthorized; a caller
// probing with a stolen or stale token learns nothing about why it died.
func (s *KeyService) Connect(ctx context.Context, connectionToken string) (*domain.KeyToken, error) {
	claims, err := s.tokens.VerifyConnectionToken(connectionToken)
	if err != nil {
		return nil, err
	}

	// The literal token must still be on record; deleting the record is
	// how a token is revoked.
	record, err := s.tokenRepo.GetByToken(ctx, connectionToken)
	if err != nil {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("token revoked")
	}

	// Cross-check all three anchors still exist.
	if _, err := s.products.Get(ctx, claims.ProductID); err != nil {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("product gone")
	}
	if _, err := s.users.Get(ctx, claims.CreatorID); err != nil {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("creator gone")
	}
	key, err := s.repo.Get(ctx, claims.KeyID)
	if err != nil {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("key gone")
	}
	if key.ID != record.KeyID {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("token does not match key")
	}

	return record, nil
}

// ============================================================================
// Queries and teardown
// ============================================================================

// Get retrieves a key record by ID.
func (s *KeyService) Get(ctx context.Context, id string) (*domain.Key, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("key id is required")
	}
	key, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, domain.ErrKeyNotFound.WithCause(err)
	}
	return key, nil
}

// Reveal returns the scratch-card form of a key. The encoded form is the
// redeemable secret, so only the issuing actor or the beneficiary whose
// credits paid for the key may see it.
func (s *KeyService) Reveal(ctx context.Context, actorID, keyID string) (string, error) {
	key, err := s.Get(ctx, keyID)
	if err != nil {
		return "", err
	}
	if key.CreatorID != actorID && key.BeneficiaryID != actorID {
		return "", domain.ErrForbidden.WithDetails("only the key creator or beneficiary may reveal it")
	}
	return keycodec.Encode(key.UUID)
}

// Delete removes a single key. Creator, product owner or admin. Unused
// keys refund their cost to the payer.
func (s *KeyService) Delete(ctx context.Context, actorID, keyID string) error {
	key, err := s.Get(ctx, keyID)
	if err != nil {
		return err
	}

	if err := s.authorizeDelete(ctx, actorID, key); err != nil {
		return err
	}
	return s.DeleteCascade(ctx, keyID, true)
}

func (s *KeyService) authorizeDelete(ctx context.Context, actorID string, key *domain.Key) error {
	if key.CreatorID == actorID {
		return nil
	}
	if product, err := s.products.Get(ctx, key.ProductID); err == nil && product.OwnerID == actorID {
		return nil
	}
	actor, err := s.users.Get(ctx, actorID)
	if err != nil {
		return domain.ErrUserNotFound.WithCause(err)
	}
	if !actor.Authority.IsAdmin() {
		return domain.ErrForbidden.WithDetails("creator, product owner or admin required")
	}
	return nil
}

// DeleteCascade removes a key, its connection token and its product
// back-reference without authorization checks. refund controls whether an
// unused key returns its cost to the payer; the sweeper passes false.
func (s *KeyService) DeleteCascade(ctx context.Context, keyID string, refund bool) error {
	key, err := s.repo.Get(ctx, keyID)
	if err != nil {
		return nil // already gone
	}

	// Detach from the product; a missing product is tolerated.
	if product, err := s.products.Get(ctx, key.ProductID); err == nil && product.HasKey(keyID) {
		version := product.Version
		product = product.Clone()
		product.RemoveKey(keyID)
		product.IncrVersion()
		if err := s.products.Update(ctx, product, version); err != nil {
			s.log.Warn("key detach from product failed, continuing",
				"key_id", keyID, "product_id", key.ProductID, "error", err)
		}
	}

	// Drop the connection token, if one was ever minted.
	if record, err := s.tokenRepo.GetByKeyID(ctx, keyID); err == nil {
		if err := s.tokenRepo.Delete(ctx, record.ID); err != nil {
			s.log.Warn("key token delete failed, continuing",
				"key_id", keyID, "token_id", record.ID, "error", err)
		}
	}

	// Only a key that was never consumed gets its cost back. The expired
	// flag does not forfeit the refund on an authorized delete; the
	// sweeper's own delete pass passes refund=false.
	if refund && !key.Used {
		if _, err := s.ledger.Refund(ctx, key.BeneficiaryID, domain.KeyCost); err != nil {
			s.log.Warn("refund failed, continuing",
				"key_id", keyID, "user_id", key.BeneficiaryID, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, keyID); err != nil {
		return domain.ErrIntegrity.WithDetails(
			fmt.Sprintf("cascade finished but key %s not deleted", keyID)).WithCause(err)
	}
	return nil
}

// ListByCreator returns every key a user created, oldest first.
func (s *KeyService) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Key, error) {
	keys, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return keys, nil
}

// ListIDsByCreator returns the IDs of every key a user created.
func (s *KeyService) ListIDsByCreator(ctx context.Context, creatorID string) ([]string, error) {
	keys, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
	}
	return ids, nil
}
