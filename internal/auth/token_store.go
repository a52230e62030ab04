package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shipdesk/internal/cache"
)

const (
	verificationKeyPrefix = "verify_token:"
	revokedKeyPrefix      = "revoked:access_token:"
)

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreVerificationToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	ConsumeVerificationToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore keeps email verification tokens and revoked access-token IDs in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// StoreVerificationToken maps a one-time verification token to its user.
func (s *TokenStore) StoreVerificationToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return s.cache.Set(ctx, verificationKeyPrefix+token, []byte(userID.String()), ttl)
}

// ConsumeVerificationToken resolves and deletes a verification token.
func (s *TokenStore) ConsumeVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	key := verificationKeyPrefix + token
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		return uuid.Nil, fmt.Errorf("verification token not found")
	}
	userID, err := uuid.ParseBytes(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse verification token data: %w", err)
	}
	_ = s.cache.Delete(ctx, key)
	return userID, nil
}

// RevokeToken marks an access token ID as spent for refresh until ttl elapses.
func (s *TokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.cache.Set(ctx, revokedKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsTokenRevoked checks if an access token ID has been revoked.
func (s *TokenStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not revoked if error (fail safe)
	}
	return data != nil, nil
}
