package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()

	cfg := DefaultConfig(dir)
	engine, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine
}

func seedTestUser(t *testing.T, engine *Engine, username, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(username, email, "Sup3r$ecret")
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if err := engine.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user
}

func TestEngineRequiresDataDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without data dir succeeded")
	}
}

func TestEngineSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestEngine(t, dir)

	user := seedTestUser(t, engine, "durable-user", "durable@example.com")

	product, err := domain.NewProduct("durable-product", "Survives process restarts.", user.ID)
	if err != nil {
		t.Fatalf("NewProduct() error = %v", err)
	}
	if err := engine.Products().Create(ctx, product); err != nil {
		t.Fatalf("Products().Create() error = %v", err)
	}

	key, err := domain.NewKey(product.ID, user.ID, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	if err := engine.Keys().Create(ctx, key); err != nil {
		t.Fatalf("Keys().Create() error = %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen from the same directory
	engine = newTestEngine(t, dir)
	defer engine.Close()

	if err := engine.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	// Recovered records must round-trip field for field, not just by
	// identity. A recovered credential in particular must still verify,
	// or no one can log in after a restart.
	gotUser, err := engine.Users().GetByUsername(ctx, "durable-user")
	if err != nil {
		t.Fatalf("GetByUsername() after restart error = %v", err)
	}
	if gotUser.ID != user.ID {
		t.Errorf("user ID = %q, want %q", gotUser.ID, user.ID)
	}
	if gotUser.PasswordHash == "" {
		t.Fatal("password hash empty after recovery")
	}
	if !domain.VerifyPassword("Sup3r$ecret", gotUser.PasswordHash) {
		t.Error("recovered password hash does not verify")
	}
	if gotUser.Email != user.Email {
		t.Errorf("user email = %q, want %q", gotUser.Email, user.Email)
	}
	if gotUser.Authority != user.Authority {
		t.Errorf("user authority = %v, want %v", gotUser.Authority, user.Authority)
	}
	if gotUser.Credits != user.Credits {
		t.Errorf("user credits = %d, want %d", gotUser.Credits, user.Credits)
	}
	if gotUser.Version != user.Version {
		t.Errorf("user version = %d, want %d", gotUser.Version, user.Version)
	}

	gotProduct, err := engine.Products().GetByOwnerAndName(ctx, user.ID, "durable-product")
	if err != nil {
		t.Fatalf("GetByOwnerAndName() after restart error = %v", err)
	}
	if gotProduct.ID != product.ID {
		t.Errorf("product ID = %q, want %q", gotProduct.ID, product.ID)
	}
	if gotProduct.OwnerID != user.ID {
		t.Errorf("product owner = %q, want %q", gotProduct.OwnerID, user.ID)
	}
	if gotProduct.Description != product.Description {
		t.Errorf("product description = %q, want %q", gotProduct.Description, product.Description)
	}

	gotKey, err := engine.Keys().GetByUUID(ctx, key.UUID)
	if err != nil {
		t.Fatalf("GetByUUID() after restart error = %v", err)
	}
	if gotKey.ID != key.ID {
		t.Errorf("key ID = %q, want %q", gotKey.ID, key.ID)
	}
	if gotKey.ProductID != product.ID {
		t.Errorf("key product = %q, want %q", gotKey.ProductID, product.ID)
	}
	if gotKey.CreatorID != user.ID || gotKey.BeneficiaryID != user.ID {
		t.Errorf("key creator/beneficiary = %q/%q, want %q", gotKey.CreatorID, gotKey.BeneficiaryID, user.ID)
	}
	if gotKey.ExpiresAt != key.ExpiresAt {
		t.Errorf("key expires_at = %d, want %d", gotKey.ExpiresAt, key.ExpiresAt)
	}
	if gotKey.Used || gotKey.Expired {
		t.Errorf("key flags used=%t expired=%t after recovery, want false/false", gotKey.Used, gotKey.Expired)
	}
}

func TestRecoveredCredentialSurvivesUpdate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestEngine(t, dir)
	user := seedTestUser(t, engine, "update-after-boot", "uab@example.com")
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	engine = newTestEngine(t, dir)
	if err := engine.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	// A recovered user must pass validation on its next mutation; an
	// empty recovered hash would reject every credit and invite write.
	got, err := engine.Users().Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get() after restart error = %v", err)
	}
	version := got.Version
	got = got.Clone()
	got.Credits += 25
	got.IncrVersion()
	if err := got.Validate(); err != nil {
		t.Fatalf("recovered user fails validation: %v", err)
	}
	if err := engine.Users().Update(ctx, got, version); err != nil {
		t.Fatalf("Update() of recovered user error = %v", err)
	}

	// The rewritten record must still carry the credential.
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	engine = newTestEngine(t, dir)
	defer engine.Close()
	if err := engine.Recover(ctx); err != nil {
		t.Fatalf("second Recover() error = %v", err)
	}
	final, err := engine.Users().Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get() after second restart error = %v", err)
	}
	if final.Credits != 25 {
		t.Errorf("credits = %d after restart, want 25", final.Credits)
	}
	if !domain.VerifyPassword("Sup3r$ecret", final.PasswordHash) {
		t.Error("password hash lost across update and restart")
	}
}

func TestEngineActivationIsDurable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestEngine(t, dir)

	user := seedTestUser(t, engine, "activator1", "act@example.com")
	product, err := domain.NewProduct("activatable", "Product with an activated key.", user.ID)
	if err != nil {
		t.Fatalf("NewProduct() error = %v", err)
	}
	if err := engine.Products().Create(ctx, product); err != nil {
		t.Fatalf("Products().Create() error = %v", err)
	}

	key, err := domain.NewKey(product.ID, user.ID, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	if err := engine.Keys().Create(ctx, key); err != nil {
		t.Fatalf("Keys().Create() error = %v", err)
	}

	if _, err := engine.Keys().Activate(ctx, key.ID, "fp-durable", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	engine = newTestEngine(t, dir)
	defer engine.Close()
	if err := engine.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	got, err := engine.Keys().Get(ctx, key.ID)
	if err != nil {
		t.Fatalf("Get() after restart error = %v", err)
	}
	if !got.Used {
		t.Error("activation lost across restart")
	}
	if got.HWID.Fingerprint != "fp-durable" {
		t.Errorf("fingerprint = %q, want %q", got.HWID.Fingerprint, "fp-durable")
	}

	// The flag must still gate a second activation after recovery
	if _, err := engine.Keys().Activate(ctx, key.ID, "fp-other", time.Now().UnixMilli()); !domain.IsDomainError(err, "KF-KEY-4090") {
		t.Errorf("Activate() after restart error = %v, want already used", err)
	}
}

func TestEngineDeleteIsDurable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestEngine(t, dir)
	user := seedTestUser(t, engine, "deleted-soon", "gone@example.com")

	if err := engine.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	engine = newTestEngine(t, dir)
	defer engine.Close()
	if err := engine.Recover(ctx); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	if _, err := engine.Users().Get(ctx, user.ID); !domain.IsDomainError(err, "KF-USER-4040") {
		t.Errorf("deleted user resurrected, err = %v", err)
	}
}

func TestEngineInMemory(t *testing.T) {
	ctx := context.Background()

	engine, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer engine.Close()

	user := seedTestUser(t, engine, "ephemeral1", "eph@example.com")
	if _, err := engine.Users().Get(ctx, user.ID); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

func TestEngineBackupRestore(t *testing.T) {
	ctx := context.Background()

	source, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer source.Close()

	user := seedTestUser(t, source, "backed-up1", "bk@example.com")

	var buf bytes.Buffer
	if err := source.Backup(ctx, &buf); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	dest, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer dest.Close()

	if err := dest.Restore(ctx, &buf); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	got, err := dest.Users().Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get() from restored engine error = %v", err)
	}
	if got.Username != "backed-up1" {
		t.Errorf("Username = %q, want %q", got.Username, "backed-up1")
	}
}
