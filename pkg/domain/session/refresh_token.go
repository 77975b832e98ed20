// Package session provides refresh-token session tracking for local auth.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// RefreshToken represents a long-lived credential exchanged for new
// access tokens. Only the SHA-256 hash is stored; the raw token is
// returned to the client exactly once.
type RefreshToken struct {
	id        shared.ID
	userID    shared.ID
	tokenHash string
	userAgent string
	ipAddress string
	expiresAt time.Time
	revokedAt *time.Time
	createdAt time.Time
}

// Issue creates a new refresh token and returns the entity together with
// the raw token value.
func Issue(userID shared.ID, userAgent, ipAddress string, ttl time.Duration) (*RefreshToken, string, error) {
	if userID.IsZero() {
		return nil, "", fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	if ttl <= 0 {
		return nil, "", fmt.Errorf("%w: ttl must be positive", shared.ErrValidation)
	}

	raw, err := generateRaw()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	return &RefreshToken{
		id:        shared.NewID(),
		userID:    userID,
		tokenHash: HashToken(raw),
		userAgent: userAgent,
		ipAddress: ipAddress,
		expiresAt: now.Add(ttl),
		createdAt: now,
	}, raw, nil
}

// Reconstitute recreates a RefreshToken from persistence.
func Reconstitute(
	id shared.ID,
	userID shared.ID,
	tokenHash, userAgent, ipAddress string,
	expiresAt time.Time,
	revokedAt *time.Time,
	createdAt time.Time,
) *RefreshToken {
	return &RefreshToken{
		id:        id,
		userID:    userID,
		tokenHash: tokenHash,
		userAgent: userAgent,
		ipAddress: ipAddress,
		expiresAt: expiresAt,
		revokedAt: revokedAt,
		createdAt: createdAt,
	}
}

// ID returns the token ID.
func (t *RefreshToken) ID() shared.ID { return t.id }

// UserID returns the owning user's ID.
func (t *RefreshToken) UserID() shared.ID { return t.userID }

// TokenHash returns the SHA-256 hash of the raw token.
func (t *RefreshToken) TokenHash() string { return t.tokenHash }

// UserAgent returns the issuing client's user agent.
func (t *RefreshToken) UserAgent() string { return t.userAgent }

// IPAddress returns the issuing client's IP address.
func (t *RefreshToken) IPAddress() string { return t.ipAddress }

// ExpiresAt returns the expiry time.
func (t *RefreshToken) ExpiresAt() time.Time { return t.expiresAt }

// RevokedAt returns when the token was revoked, or nil.
func (t *RefreshToken) RevokedAt() *time.Time { return t.revokedAt }

// CreatedAt returns the creation timestamp.
func (t *RefreshToken) CreatedAt() time.Time { return t.createdAt }

// IsValid checks if the token may still be exchanged.
func (t *RefreshToken) IsValid() bool {
	return t.revokedAt == nil && time.Now().UTC().Before(t.expiresAt)
}

// Revoke marks the token as revoked. Idempotent.
func (t *RefreshToken) Revoke() {
	if t.revokedAt != nil {
		return
	}
	now := time.Now().UTC()
	t.revokedAt = &now
}

// HashToken returns the hex-encoded SHA-256 hash of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRaw() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
