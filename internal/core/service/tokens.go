package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

// DefaultAuthTokenTTL is how long a login token stays valid.
const DefaultAuthTokenTTL = 24 * time.Hour

// AuthClaims are the claims carried by a login token.
type AuthClaims struct {
	jwt.RegisteredClaims
	Authority int `json:"authority"`
}

// ConnectionClaims are the claims carried by a connection token minted at
// key activation. They anchor the token to the key, its creator and its
// product so Connect can cross-check all three still exist.
type ConnectionClaims struct {
	jwt.RegisteredClaims
	KeyID     string `json:"key_id"`
	CreatorID string `json:"creator_id"`
	ProductID string `json:"product_id"`
}

// TokenService mints and verifies the two JWT flavors: short-lived auth
// tokens for the HTTP API and long-lived connection tokens for activated
// keys. Both are HS256 over a shared secret.
type TokenService struct {
	secret  []byte
	authTTL time.Duration
}

// NewTokenService creates a TokenService. authTTL <= 0 selects the default.
func NewTokenService(secret string, authTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	if authTTL <= 0 {
		authTTL = DefaultAuthTokenTTL
	}
	return &TokenService{
		secret:  []byte(secret),
		authTTL: authTTL,
	}, nil
}

// MintAuthToken creates a signed login token for the user.
func (s *TokenService) MintAuthToken(user *domain.User) (string, error) {
	now := timeNow()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.authTTL)),
		},
		Authority: int(user.Authority),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyAuthToken parses and verifies a login token, returning its claims.
func (s *TokenService) VerifyAuthToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthenticated.WithCause(err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrUnauthenticated.WithDetails("token carries no subject")
	}
	return claims, nil
}

// MintConnectionToken creates the signed token handed out when a key is
// activated. Connection tokens carry no expiry; they die with the key,
// product or creator record instead.
func (s *TokenService) MintConnectionToken(key *domain.Key) (string, error) {
	claims := ConnectionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(timeNow()),
		},
		KeyID:     key.ID,
		CreatorID: key.CreatorID,
		ProductID: key.ProductID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyConnectionToken parses and verifies a connection token, returning
// its claims. Failures are reported uniformly as connection unauthorized.
func (s *TokenService) VerifyConnectionToken(tokenString string) (*ConnectionClaims, error) {
	claims := &ConnectionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrConnectionUnauthorized.WithCause(err)
	}
	if claims.KeyID == "" || claims.CreatorID == "" || claims.ProductID == "" {
		return nil, domain.ErrConnectionUnauthorized.WithDetails("token claims incomplete")
	}
	return claims, nil
}

func (s *TokenService) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}

// timeNow is a hook for testing.
var timeNow = time.Now
