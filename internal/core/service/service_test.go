package service

import (
	"context"
	"testing"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/storage/memory"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

const testRootSecret = "correct horse battery staple"

// testStack wires the full service graph over the in-memory stores,
// mirroring the production construction order.
type testStack struct {
	userStore    *memory.UserStore
	productStore *memory.ProductStore
	keyStore     *memory.KeyStore
	tokenStore   *memory.KeyTokenStore

	tokens   *TokenService
	root     *RootGate
	ledger   *LedgerService
	users    *UserService
	products *ProductService
	keys     *KeyService
	sweeper  *Sweeper
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	log := logger.Default()

	tokens, err := NewTokenService("test-signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	st := &testStack{
		userStore:    memory.NewUserStore(),
		productStore: memory.NewProductStore(),
		keyStore:     memory.NewKeyStore(),
		tokenStore:   memory.NewKeyTokenStore(),
		tokens:       tokens,
		root:         NewRootGate(testRootSecret, log),
	}

	st.ledger = NewLedgerService(st.userStore, st.root)
	st.users = NewUserService(st.userStore, tokens, st.root)
	st.products = NewProductService(st.productStore, st.userStore, log)
	st.keys = NewKeyService(st.keyStore, st.tokenStore, st.productStore, st.userStore, st.ledger, tokens, log)
	st.users.SetCascaders(st.products, st.keys)
	st.products.SetKeyCascader(st.keys)
	st.sweeper = NewSweeper(st.keyStore, st.keys, time.Hour, log)

	return st
}

// register creates an account through the service and returns the user.
func (st *testStack) register(t *testing.T, username, email string) *domain.User {
	t.Helper()

	resp, err := st.users.Register(context.Background(), &RegisterRequest{
		Username:             username,
		Email:                email,
		Password:             "Sup3r$ecret",
		PasswordConfirmation: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return resp.User
}

// fund puts credits on a balance, bypassing the credit API.
func (st *testStack) fund(t *testing.T, userID string, amount int64) {
	t.Helper()

	if _, err := st.ledger.Credit(context.Background(), userID, amount); err != nil {
		t.Fatalf("Credit(%s, %d) error = %v", userID, amount, err)
	}
}

// promote flips a user to admin directly in the store.
func (st *testStack) promote(t *testing.T, userID string) {
	t.Helper()

	ctx := context.Background()
	user, err := st.userStore.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", userID, err)
	}
	version := user.Version
	user = user.Clone()
	user.Authority = domain.RoleAdmin
	user.IncrVersion()
	if err := st.userStore.Update(ctx, user, version); err != nil {
		t.Fatalf("Update(%s) error = %v", userID, err)
	}
}

// balance reads a user's current credit balance.
func (st *testStack) balance(t *testing.T, userID string) int64 {
	t.Helper()

	user, err := st.userStore.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", userID, err)
	}
	return user.Credits
}

// createProduct creates a product owned by ownerID.
func (st *testStack) createProduct(t *testing.T, ownerID, name string) *domain.Product {
	t.Helper()

	product, err := st.products.Create(context.Background(), &CreateProductRequest{
		OwnerID: ownerID,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return product
}

// issueKey funds the actor and issues a key against the product.
func (st *testStack) issueKey(t *testing.T, actorID, productID string) *CreateKeyResponse {
	t.Helper()

	st.fund(t, actorID, domain.KeyCost)
	resp, err := st.keys.Create(context.Background(), &CreateKeyRequest{
		ActorID:   actorID,
		ProductID: productID,
	})
	if err != nil {
		t.Fatalf("keys.Create() error = %v", err)
	}
	return resp
}
