// Package authsvc issues and validates application JWTs and hashed API
// keys. Ported bit-exact from original_source/metadata_backend/api/
// services/auth.py (constants, hashing scheme, key format), using
// github.com/golang-jwt/jwt/v5 the way the teacher's auth/token.go uses
// the same library for Claims-based tokens.
package authsvc

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

const (
	jwtAlgorithm = "HS256"
	// JWTIssuer is the constant issuer claim every token is stamped with
	// and every validation checks, per spec.md §6.
	JWTIssuer        = "SD Submit"
	jwtExpiry        = 7 * 24 * time.Hour
	apiKeyIDLength   = 6  // hex-encoded -> 12 chars
	apiKeySecretLen  = 32 // alphanumeric
	apiKeySaltBytes  = 16
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// User is the resolved identity attached to a request after successful
// JWT or API-key authentication.
type User struct {
	UserID   string
	UserName string
}

// Claims is the JWT payload: sub, user_name, iat, exp, iss exactly as
// spec.md §6 and the original Python implementation define them.
type Claims struct {
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

// Service wraps an ApiKeyRepository and a shared JWT secret.
type Service struct {
	secret []byte
	keys   store.ApiKeyRepository
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret), keys: store.ApiKeyRepository{}}
}

// GenerateToken builds a 7-day HS256 JWT with issuer "SD Submit".
func (s *Service) GenerateToken(userID, userName string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry)),
			Issuer:    JWTIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies signature, issuer, and expiry and returns the
// resolved user, or an UnauthorizedUser error.
func (s *Service) ValidateToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(JWTIssuer), jwt.WithValidMethods([]string{jwtAlgorithm}))
	if err != nil || !token.Valid {
		return nil, apperr.NewUnauthorized("invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperr.NewUnauthorized("invalid token claims")
	}
	return &User{UserID: claims.Subject, UserName: claims.UserName}, nil
}

// CreateAPIKey generates a new key for userID under the caller-chosen
// keyID, persists its hash, and returns the plaintext "{id}.{secret}"
// exactly once.
func (s *Service) CreateAPIKey(ctx context.Context, userID, keyID string) (string, error) {
	generatedKeyID, err := randomHex(apiKeyIDLength)
	if err != nil {
		return "", apperr.Wrap(apperr.KindSystem, "generate key id", err)
	}
	secret, err := randomAlnum(apiKeySecretLen)
	if err != nil {
		return "", apperr.Wrap(apperr.KindSystem, "generate key secret", err)
	}
	salt, err := randomHex(apiKeySaltBytes)
	if err != nil {
		return "", apperr.Wrap(apperr.KindSystem, "generate salt", err)
	}

	entity := &store.ApiKey{
		GeneratedKeyID: generatedKeyID,
		KeyID:          keyID,
		UserID:         userID,
		Salt:           salt,
		HashedSecret:   hashSecret(secret, salt),
		CreatedAt:      time.Now(),
	}
	if err := s.keys.Create(ctx, entity); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", generatedKeyID, secret), nil
}

// ValidateAPIKey splits "{id}.{secret}", looks up the row by id, and
// constant-time compares the recomputed hash. A malformed key, an unknown
// id or a hash mismatch resolves to nil (unauthorized upstream) — mirrors
// AuthService.validate_api_key returning None. An error from the key store
// lookup itself is returned.
func (s *Service) ValidateAPIKey(ctx context.Context, apiKey string) (*User, error) {
	id, secret, ok := splitAPIKey(apiKey)
	if !ok {
		return nil, nil
	}
	row, err := s.keys.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	expected := hashSecret(secret, row.Salt)
	if !hmac.Equal([]byte(expected), []byte(row.HashedSecret)) {
		return nil, nil
	}
	return &User{UserID: row.UserID, UserName: row.UserID}, nil
}

func (s *Service) ListAPIKeys(ctx context.Context, userID string) ([]store.ApiKey, error) {
	return s.keys.List(ctx, userID)
}

func (s *Service) RevokeAPIKey(ctx context.Context, userID, keyID string) error {
	return s.keys.Delete(ctx, userID, keyID)
}

func splitAPIKey(apiKey string) (id, secret string, ok bool) {
	for i := 0; i < len(apiKey); i++ {
		if apiKey[i] == '.' {
			return apiKey[:i], apiKey[i+1:], true
		}
	}
	return "", "", false
}

func hashSecret(secret, salt string) string {
	sum := sha256.Sum256([]byte(secret + salt))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomAlnum(n int) (string, error) {
	b := make([]byte, n)
	idx := make([]byte, n)
	if _, err := rand.Read(idx); err != nil {
		return "", err
	}
	for i, v := range idx {
		b[i] = alnum[int(v)%len(alnum)]
	}
	return string(b), nil
}
