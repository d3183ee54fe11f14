package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/server/httpserver/handler"
	"github.com/keyforge/keyforge-go/internal/storage/memory"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

const testRootSecret = "test-root-secret"

// envelope mirrors the response wrapper with the payload left raw so each
// test can decode it into the right type.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type routerStack struct {
	userStore *memory.UserStore
	users     *service.UserService
	router    http.Handler
}

func newRouterStack(t *testing.T) *routerStack {
	t.Helper()

	log := logger.Default()

	tokens, err := service.NewTokenService("test-signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	userStore := memory.NewUserStore()
	productStore := memory.NewProductStore()
	keyStore := memory.NewKeyStore()
	tokenStore := memory.NewKeyTokenStore()

	root := service.NewRootGate(testRootSecret, log)
	ledger := service.NewLedgerService(userStore, root)
	users := service.NewUserService(userStore, tokens, root)
	products := service.NewProductService(productStore, userStore, log)
	keys := service.NewKeyService(keyStore, tokenStore, productStore, userStore, ledger, tokens, log)
	users.SetCascaders(products, keys)
	products.SetKeyCascader(keys)

	router := NewRouter(&RouterConfig{
		Users:    users,
		Products: products,
		Keys:     keys,
		Ledger:   ledger,
		Logger:   log,
	})

	return &routerStack{
		userStore: userStore,
		users:     users,
		router:    router,
	}
}

// do issues a request against the router. An empty authToken leaves the
// Authorization header off.
func (st *routerStack) do(t *testing.T, method, path, authToken string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	st.router.ServeHTTP(rec, req)
	return rec
}

// decode asserts the status code and unmarshals the envelope payload.
func decode(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, out any) envelope {
	t.Helper()

	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, wantStatus, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v; body = %s", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("unmarshal data: %v; data = %s", err, env.Data)
		}
	}
	return env
}

// register creates an account over HTTP and returns the user ID and token.
func (st *routerStack) register(t *testing.T, username, email string) (string, string) {
	t.Helper()

	rec := st.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username":              username,
		"email":                 email,
		"password":              "Sup3r$ecret",
		"password_confirmation": "Sup3r$ecret",
	}, nil)

	var resp handler.RegisterResponse
	decode(t, rec, http.StatusCreated, &resp)
	if resp.Token == "" {
		t.Fatal("register returned empty token")
	}
	return resp.User.ID, resp.Token
}

// promote flips a user to admin directly in the store.
func (st *routerStack) promote(t *testing.T, userID string) {
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

func TestHealthEndpoints(t *testing.T) {
	st := newRouterStack(t)

	for _, path := range []string{"/health", "/ready"} {
		rec := st.do(t, http.MethodGet, path, "", nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}

	rec := st.do(t, http.MethodGet, "/metrics", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	st := newRouterStack(t)

	_, _ = st.register(t, "frodo1", "frodo@shire.example")

	// Login with the username
	rec := st.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"login":    "frodo1",
		"password": "Sup3r$ecret",
	}, nil)
	var login handler.LoginResponse
	decode(t, rec, http.StatusOK, &login)

	// The token works against an authenticated route
	rec = st.do(t, http.MethodGet, "/users/me", login.Token, nil, nil)
	var me handler.UserResponse
	decode(t, rec, http.StatusOK, &me)
	if me.Username != "frodo1" {
		t.Errorf("username = %q, want frodo1", me.Username)
	}

	// Wrong password is a 401
	rec = st.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"login":    "frodo1",
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	st := newRouterStack(t)

	rec := st.do(t, http.MethodGet, "/users/me", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rec.Code)
	}

	rec = st.do(t, http.MethodGet, "/users/me", "not-a-jwt", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	st := newRouterStack(t)

	_, token := st.register(t, "gandalf", "gandalf@shire.example")

	// Fund the account
	rec := st.do(t, http.MethodPost, "/credits/buy", token, handler.BuyCreditsRequest{Amount: 50}, nil)
	var change handler.BalanceChangeResponse
	decode(t, rec, http.StatusOK, &change)
	if change.NewBalance != 50 {
		t.Fatalf("balance after buy = %d, want 50", change.NewBalance)
	}

	// Create a product
	rec = st.do(t, http.MethodPost, "/products", token, handler.CreateProductRequest{Name: "palantir"}, nil)
	var product handler.ProductResponse
	decode(t, rec, http.StatusCreated, &product)

	// Issue a key against it
	rec = st.do(t, http.MethodPost, "/products/"+product.ID+"/keys", token, handler.CreateKeyRequest{}, nil)
	var created handler.CreateKeyResponse
	decode(t, rec, http.StatusCreated, &created)
	if created.KeyForm == "" {
		t.Fatal("create key returned empty key form")
	}

	// The issuance cost came off the balance
	rec = st.do(t, http.MethodGet, "/credits", token, nil, nil)
	var balance handler.BalanceResponse
	decode(t, rec, http.StatusOK, &balance)
	if balance.Credits != 50-domain.KeyCost {
		t.Errorf("balance after issue = %d, want %d", balance.Credits, 50-domain.KeyCost)
	}

	// The key shows up in the creator's list
	rec = st.do(t, http.MethodGet, "/keys", token, nil, nil)
	var list handler.ListKeysResponse
	decode(t, rec, http.StatusOK, &list)
	if len(list.Keys) != 1 || list.Keys[0].ID != created.Key.ID {
		t.Fatalf("list = %+v, want the created key", list.Keys)
	}

	// Reveal returns the same scratch-card form
	rec = st.do(t, http.MethodGet, "/keys/"+created.Key.ID+"/reveal", token, nil, nil)
	var reveal handler.RevealKeyResponse
	decode(t, rec, http.StatusOK, &reveal)
	if reveal.KeyForm != created.KeyForm {
		t.Errorf("reveal = %q, want %q", reveal.KeyForm, created.KeyForm)
	}

	// Activate it, unauthenticated, with a machine fingerprint
	rec = st.do(t, http.MethodPost, "/keys/activate", "", handler.ActivateKeyRequest{
		Key:  created.KeyForm,
		HWID: "hwid-machine-1",
	}, nil)
	var activated handler.ActivateKeyResponse
	decode(t, rec, http.StatusOK, &activated)
	if activated.ConnectionToken == "" {
		t.Fatal("activate returned empty connection token")
	}

	// Connect with the minted token
	rec = st.do(t, http.MethodPost, "/connect", "", handler.ConnectRequest{
		ConnectionToken: activated.ConnectionToken,
	}, nil)
	var conn handler.ConnectResponse
	decode(t, rec, http.StatusOK, &conn)
	if conn.KeyID != created.Key.ID || conn.ProductID != product.ID {
		t.Errorf("connect = %+v, want key %s product %s", conn, created.Key.ID, product.ID)
	}

	// A second activation is refused
	rec = st.do(t, http.MethodPost, "/keys/activate", "", handler.ActivateKeyRequest{
		Key:  created.KeyForm,
		HWID: "hwid-machine-2",
	}, nil)
	env := decode(t, rec, http.StatusConflict, nil)
	if env.Code != "KF-KEY-4090" {
		t.Errorf("second activate code = %q, want KF-KEY-4090", env.Code)
	}
}

func TestAdminGateOnGrant(t *testing.T) {
	st := newRouterStack(t)

	userID, userToken := st.register(t, "pippin", "pippin@shire.example")
	adminID, _ := st.register(t, "elrond", "elrond@rivendell.example")
	st.promote(t, adminID)

	// Fresh token so the admin claim is in the JWT
	rec := st.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"login":    "elrond",
		"password": "Sup3r$ecret",
	}, nil)
	var login handler.LoginResponse
	decode(t, rec, http.StatusOK, &login)

	// Non-admin is stopped at the middleware
	rec = st.do(t, http.MethodPost, "/credits/grant", userToken,
		handler.GrantCreditsRequest{UserID: userID, Amount: 100}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin grant status = %d, want 403", rec.Code)
	}

	// Admin without the root secret is refused
	rec = st.do(t, http.MethodPost, "/credits/grant", login.Token,
		handler.GrantCreditsRequest{UserID: userID, Amount: 100}, nil)
	env := decode(t, rec, http.StatusForbidden, nil)
	if env.Code != "KF-AUTH-4031" {
		t.Errorf("grant without secret code = %q, want KF-AUTH-4031", env.Code)
	}

	// Admin with the root secret succeeds
	rec = st.do(t, http.MethodPost, "/credits/grant", login.Token,
		handler.GrantCreditsRequest{UserID: userID, Amount: 100},
		map[string]string{"X-Root-Secret": testRootSecret})
	var change handler.BalanceChangeResponse
	decode(t, rec, http.StatusOK, &change)
	if change.UserID != userID || change.NewBalance != 100 {
		t.Errorf("grant = %+v, want user %s at 100", change, userID)
	}
}

func TestErrorStatuses(t *testing.T) {
	st := newRouterStack(t)

	_, token := st.register(t, "samwise", "sam@shire.example")

	// Unknown product is a 404
	rec := st.do(t, http.MethodGet, "/products/kfpd-01arz3ndektsv4rrffq69g5fav", token, nil, nil)
	env := decode(t, rec, http.StatusNotFound, nil)
	if env.Code != "KF-PROD-4040" {
		t.Errorf("missing product code = %q, want KF-PROD-4040", env.Code)
	}

	// Malformed body is a 400
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	st.router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec2.Code)
	}

	// Issuing a key without credits is a 402
	rec = st.do(t, http.MethodPost, "/products", token, handler.CreateProductRequest{Name: "mithril"}, nil)
	var product handler.ProductResponse
	decode(t, rec, http.StatusCreated, &product)

	rec = st.do(t, http.MethodPost, "/products/"+product.ID+"/keys", token, handler.CreateKeyRequest{}, nil)
	env = decode(t, rec, http.StatusPaymentRequired, nil)
	if env.Code != "KF-CRED-4020" {
		t.Errorf("broke issue code = %q, want KF-CRED-4020", env.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	st := newRouterStack(t)

	rec := st.do(t, http.MethodGet, "/health", "", nil, map[string]string{
		"X-Request-ID": "req-fixed-for-test",
	})
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.RequestID != "req-fixed-for-test" {
		t.Errorf("request_id = %q, want the caller-supplied one", env.RequestID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-fixed-for-test" {
		t.Errorf("X-Request-ID header = %q, want the caller-supplied one", got)
	}

	// Without a caller-supplied ID one is generated
	rec = st.do(t, http.MethodGet, "/health", "", nil, nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing on generated path")
	}
}
