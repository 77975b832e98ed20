package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/logger"
)

const (
	prefixBlacklist = "blacklist"
	prefixSession   = "session"
	prefixReset     = "pwreset"
)

// TokenStore manages the JWT blacklist and active-session tracking.
// Refresh tokens themselves live in Postgres; Redis only holds the
// short-lived state checked on every request.
type TokenStore struct {
	client *Client
	logger *logger.Logger
}

// NewTokenStore creates a new token store.
func NewTokenStore(client *Client, log *logger.Logger) (*TokenStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &TokenStore{
		client: client,
		logger: log,
	}, nil
}

// MustNewTokenStore creates a token store or panics on error.
func MustNewTokenStore(client *Client, log *logger.Logger) *TokenStore {
	ts, err := NewTokenStore(client, log)
	if err != nil {
		panic(fmt.Sprintf("failed to create token store: %v", err))
	}
	return ts
}

// BlacklistToken records a revoked access token by jti until its natural
// expiry. Logout and password changes blacklist outstanding tokens.
func (s *TokenStore) BlacklistToken(ctx context.Context, jti string, expiry time.Duration) error {
	if jti == "" {
		return errors.New("jti is required")
	}
	if expiry <= 0 {
		// Token already expired; nothing to blacklist.
		return nil
	}

	key := fmt.Sprintf("%s:%s", prefixBlacklist, jti)
	if err := s.client.Set(ctx, key, "1", expiry); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted checks if an access token jti has been revoked.
func (s *TokenStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, errors.New("jti is required")
	}

	key := fmt.Sprintf("%s:%s", prefixBlacklist, jti)
	exists, err := s.client.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists, nil
}

// StoreSession records an active session for a user.
func (s *TokenStore) StoreSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	if userID == "" || sessionID == "" {
		return errors.New("userID and sessionID are required")
	}

	key := fmt.Sprintf("%s:%s:%s", prefixSession, userID, sessionID)
	if err := s.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// SessionExists checks if a session is still active.
func (s *TokenStore) SessionExists(ctx context.Context, userID, sessionID string) (bool, error) {
	if userID == "" || sessionID == "" {
		return false, errors.New("userID and sessionID are required")
	}

	key := fmt.Sprintf("%s:%s:%s", prefixSession, userID, sessionID)
	exists, err := s.client.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return exists, nil
}

// DeleteSession removes a single session.
func (s *TokenStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return errors.New("userID and sessionID are required")
	}

	key := fmt.Sprintf("%s:%s:%s", prefixSession, userID, sessionID)
	if err := s.client.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllUserSessions removes every session of a user. Used on
// password change.
func (s *TokenStore) DeleteAllUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID is required")
	}

	pattern := fmt.Sprintf("%s:%s:*", prefixSession, userID)
	keys, err := s.client.Scan(ctx, pattern, 100)
	if err != nil {
		return fmt.Errorf("failed to scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	s.logger.Debug("deleted user sessions", "user_id", userID, "count", len(keys))
	return nil
}

// StoreResetToken records a one-shot password reset token hash for a
// user. Only the SHA-256 hash of the token is stored.
func (s *TokenStore) StoreResetToken(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	if tokenHash == "" || userID == "" {
		return errors.New("tokenHash and userID are required")
	}

	key := fmt.Sprintf("%s:%s", prefixReset, tokenHash)
	if err := s.client.Set(ctx, key, userID, ttl); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken returns the user ID behind a reset token hash and
// deletes it so the token cannot be replayed. Returns ErrKeyNotFound
// for unknown or already-used tokens.
func (s *TokenStore) ConsumeResetToken(ctx context.Context, tokenHash string) (string, error) {
	if tokenHash == "" {
		return "", errors.New("tokenHash is required")
	}

	key := fmt.Sprintf("%s:%s", prefixReset, tokenHash)
	userID, err := s.client.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if err := s.client.Del(ctx, key); err != nil {
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}

// CountActiveSessions returns the number of live sessions for a user.
func (s *TokenStore) CountActiveSessions(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("userID is required")
	}

	pattern := fmt.Sprintf("%s:%s:*", prefixSession, userID)
	keys, err := s.client.Scan(ctx, pattern, 100)
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return int64(len(keys)), nil
}
