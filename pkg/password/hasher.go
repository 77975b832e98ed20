// Package password hashes credentials and enforces the password
// policy applied at registration and password change.
package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")
	ErrPasswordMismatch    = errors.New("password does not match")
	ErrInvalidHash         = errors.New("invalid password hash")
)

// DefaultCost is the bcrypt cost used in production. Lower it in
// tests through WithCost when hashing time matters.
const DefaultCost = 12

// Policy defines what a password must contain.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// DefaultPolicy requires 8+ characters with mixed case and a digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
}

// Hasher hashes and verifies passwords against a policy.
type Hasher struct {
	cost   int
	policy Policy
}

// Option configures the Hasher.
type Option func(*Hasher)

// WithCost overrides the bcrypt cost. Out-of-range values are ignored.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithPolicy overrides the password policy.
func WithPolicy(policy Policy) Option {
	return func(h *Hasher) { h.policy = policy }
}

// New creates a Hasher with the default cost and policy.
func New(opts ...Option) *Hasher {
	h := &Hasher{cost: DefaultCost, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password against a stored hash.
func (h *Hasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// Validate checks a password against the hasher's policy.
func (h *Hasher) Validate(password string) error {
	return ValidateWithPolicy(password, h.policy)
}

// ValidateWithPolicy checks a password against an explicit policy.
func ValidateWithPolicy(password string, policy Policy) error {
	if len(password) < policy.MinLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsNumber(c):
			hasNumber = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}

	switch {
	case policy.RequireUpper && !hasUpper:
		return ErrPasswordNoUppercase
	case policy.RequireLower && !hasLower:
		return ErrPasswordNoLowercase
	case policy.RequireNumber && !hasNumber:
		return ErrPasswordNoNumber
	case policy.RequireSpecial && !hasSpecial:
		return ErrPasswordNoSpecial
	}
	return nil
}

// GenerateResetToken returns a 256-bit URL-safe token for password
// reset links. The store keeps only a hash of it.
func GenerateResetToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
