package service

import (
	"context"
	"testing"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

func TestRegister(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()

	resp, err := st.users.Register(ctx, &RegisterRequest{
		Username:             "first-user",
		Email:                "First@Example.com",
		Password:             "Sup3r$ecret",
		PasswordConfirmation: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Register() returned no auth token")
	}
	if resp.User.Email != "first@example.com" {
		t.Errorf("Email = %q, want lowercased", resp.User.Email)
	}
	if resp.User.Credits != 0 {
		t.Errorf("Credits = %d, want 0", resp.User.Credits)
	}
	if resp.User.Authority != domain.RoleUser {
		t.Errorf("Authority = %v, want regular user", resp.User.Authority)
	}

	// The returned token is immediately usable
	user, err := st.users.VerifyAuthToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("VerifyAuthToken() error = %v", err)
	}
	if user.ID != resp.User.ID {
		t.Errorf("token subject = %q, want %q", user.ID, resp.User.ID)
	}
}

func TestRegisterRejections(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.register(t, "taken-name", "taken@example.com")

	tests := []struct {
		name     string
		req      *RegisterRequest
		wantCode string
	}{
		{
			name: "username too short",
			req: &RegisterRequest{
				Username: "abc", Email: "a@example.com",
				Password: "Sup3r$ecret", PasswordConfirmation: "Sup3r$ecret",
			},
			wantCode: "KF-ARG-4000",
		},
		{
			name: "username with at sign",
			req: &RegisterRequest{
				Username: "looks@like.email", Email: "b@example.com",
				Password: "Sup3r$ecret", PasswordConfirmation: "Sup3r$ecret",
			},
			wantCode: "KF-ARG-4000",
		},
		{
			name: "bad email",
			req: &RegisterRequest{
				Username: "valid-name", Email: "not-an-email",
				Password: "Sup3r$ecret", PasswordConfirmation: "Sup3r$ecret",
			},
			wantCode: "KF-ARG-4000",
		},
		{
			name: "password mismatch",
			req: &RegisterRequest{
				Username: "valid-name", Email: "c@example.com",
				Password: "Sup3r$ecret", PasswordConfirmation: "Different1!",
			},
			wantCode: "KF-ARG-4000",
		},
		{
			name: "weak password",
			req: &RegisterRequest{
				Username: "valid-name", Email: "d@example.com",
				Password: "alllowercase", PasswordConfirmation: "alllowercase",
			},
			wantCode: "KF-ARG-4000",
		},
		{
			name: "username taken",
			req: &RegisterRequest{
				Username: "taken-name", Email: "fresh@example.com",
				Password: "Sup3r$ecret", PasswordConfirmation: "Sup3r$ecret",
			},
			wantCode: "KF-USER-4090",
		},
		{
			name: "email taken",
			req: &RegisterRequest{
				Username: "fresh-name", Email: "TAKEN@example.com",
				Password: "Sup3r$ecret", PasswordConfirmation: "Sup3r$ecret",
			},
			wantCode: "KF-USER-4091",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.users.Register(ctx, tt.req)
			if !domain.IsDomainError(err, tt.wantCode) {
				t.Errorf("Register() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	user := st.register(t, "login-user", "login@example.com")

	// By username
	resp, err := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "login-user", Password: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("Authenticate() by username error = %v", err)
	}
	if resp.User.ID != user.ID {
		t.Errorf("user ID = %q, want %q", resp.User.ID, user.ID)
	}

	// By email, case folded
	if _, err := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "LOGIN@example.com", Password: "Sup3r$ecret",
	}); err != nil {
		t.Errorf("Authenticate() by email error = %v", err)
	}

	// Wrong password and unknown account answer identically
	_, badPass := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "login-user", Password: "Wr0ng$ecret",
	})
	_, noUser := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "nobody-here", Password: "Sup3r$ecret",
	})
	if !domain.IsDomainError(badPass, "KF-AUTH-4010") {
		t.Errorf("wrong password error = %v, want invalid credentials", badPass)
	}
	if !domain.IsDomainError(noUser, "KF-AUTH-4010") {
		t.Errorf("unknown account error = %v, want invalid credentials", noUser)
	}
	if domain.GetErrorCode(badPass) != domain.GetErrorCode(noUser) {
		t.Error("wrong password and unknown account are distinguishable")
	}
}

func TestVerifyAuthTokenDeadAccount(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()

	user := st.register(t, "short-lived", "short@example.com")
	resp, err := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "short-lived", Password: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if err := st.users.Delete(ctx, &DeleteAccountRequest{ActorID: user.ID}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Valid signature, dead subject
	if _, err := st.users.VerifyAuthToken(ctx, resp.Token); !domain.IsDomainError(err, "KF-AUTH-4011") {
		t.Errorf("VerifyAuthToken() error = %v, want unauthenticated", err)
	}
}

func TestSearchExcludesActor(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()

	actor := st.register(t, "search-actor", "actor@example.com")
	st.register(t, "search-match", "match@example.com")
	st.register(t, "unrelated-x", "unrelated@example.com")

	results, err := st.users.Search(ctx, &SearchRequest{ActorID: actor.ID, Query: "search"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d users, want 1", len(results))
	}
	if results[0].Username != "search-match" {
		t.Errorf("result = %q, want search-match", results[0].Username)
	}

	if _, err := st.users.Search(ctx, &SearchRequest{ActorID: actor.ID}); !domain.IsDomainError(err, "KF-ARG-4001") {
		t.Errorf("Search() without query error = %v, want missing argument", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()

	user := st.register(t, "profile-one", "p1@example.com")
	st.register(t, "profile-two", "p2@example.com")

	updated, err := st.users.UpdateProfile(ctx, &UpdateProfileRequest{
		UserID: user.ID, Username: "profile-new",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Username != "profile-new" {
		t.Errorf("Username = %q, want profile-new", updated.Username)
	}
	if updated.Version != user.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, user.Version+1)
	}

	// Collisions with another account are rejected
	if _, err := st.users.UpdateProfile(ctx, &UpdateProfileRequest{
		UserID: user.ID, Username: "profile-two",
	}); !domain.IsDomainError(err, "KF-USER-4090") {
		t.Errorf("UpdateProfile() username collision error = %v", err)
	}
	if _, err := st.users.UpdateProfile(ctx, &UpdateProfileRequest{
		UserID: user.ID, Email: "p2@example.com",
	}); !domain.IsDomainError(err, "KF-USER-4091") {
		t.Errorf("UpdateProfile() email collision error = %v", err)
	}

	// Password change takes effect
	if _, err := st.users.UpdateProfile(ctx, &UpdateProfileRequest{
		UserID: user.ID, Password: "N3w$ecret!",
	}); err != nil {
		t.Fatalf("UpdateProfile() password error = %v", err)
	}
	if _, err := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "profile-new", Password: "N3w$ecret!",
	}); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}
	if _, err := st.users.Authenticate(ctx, &AuthenticateRequest{
		Login: "profile-new", Password: "Sup3r$ecret",
	}); !domain.IsDomainError(err, "KF-AUTH-4010") {
		t.Errorf("old password still works, err = %v", err)
	}
}

func TestElevateAndDemote(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()

	admin := st.register(t, "the-admin1", "admin@example.com")
	st.promote(t, admin.ID)
	target := st.register(t, "the-target", "target@example.com")

	// Non-admin cannot elevate
	if _, err := st.users.Elevate(ctx, target.ID, target.ID); !domain.IsDomainError(err, "KF-AUTH-4030") {
		t.Errorf("Elevate() by non-admin error = %v, want forbidden", err)
	}

	elevated, err := st.users.Elevate(ctx, admin.ID, target.ID)
	if err != nil {
		t.Fatalf("Elevate() error = %v", err)
	}
	if !elevated.Authority.IsAdmin() {
		t.Error("target not admin after elevation")
	}

	if _, err := st.users.Elevate(ctx, admin.ID, target.ID); !domain.IsDomainError(err, "KF-USER-4092") {
		t.Errorf("second Elevate() error = %v, want already admin", err)
	}

	// Demotion needs the root secret
	if _, err := st.users.Demote(ctx, admin.ID, target.ID, "wrong-secret"); !domain.IsDomainError(err, "KF-AUTH-4031") {
		t.Errorf("Demote() with bad secret error = %v, want root secret required", err)
	}

	demoted, err := st.users.Demote(ctx, admin.ID, target.ID, testRootSecret)
	if err != nil {
		t.Fatalf("Demote() error = %v", err)
	}
	if demoted.Authority.IsAdmin() {
		t.Error("target still admin after demotion")
	}

	if _, err := st.users.Demote(ctx, admin.ID, target.ID, testRootSecret); !domain.IsDomainError(err, "KF-USER-4093") {
		t.Errorf("second Demote() error = %v, want not admin", err)
	}
}
