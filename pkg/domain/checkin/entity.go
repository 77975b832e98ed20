// Package checkin provides the check-in domain model: a timestamped
// progress update against a key result.
package checkin

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// CheckIn represents a single progress update on a key result.
type CheckIn struct {
	id          shared.ID
	tenantID    shared.ID
	keyResultID shared.ID
	authorID    shared.ID
	value       float64
	confidence  int
	note        string
	createdAt   time.Time
}

// New creates a new CheckIn.
func New(tenantID, keyResultID, authorID shared.ID, value float64, confidence int, note string) (*CheckIn, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if keyResultID.IsZero() {
		return nil, fmt.Errorf("%w: keyResultID is required", shared.ErrValidation)
	}
	if authorID.IsZero() {
		return nil, fmt.Errorf("%w: authorID is required", shared.ErrValidation)
	}
	if confidence < 0 || confidence > 10 {
		return nil, fmt.Errorf("%w: confidence must be between 0 and 10", shared.ErrValidation)
	}

	return &CheckIn{
		id:          shared.NewID(),
		tenantID:    tenantID,
		keyResultID: keyResultID,
		authorID:    authorID,
		value:       value,
		confidence:  confidence,
		note:        note,
		createdAt:   time.Now().UTC(),
	}, nil
}

// Reconstitute recreates a CheckIn from persistence.
func Reconstitute(
	id, tenantID, keyResultID, authorID shared.ID,
	value float64,
	confidence int,
	note string,
	createdAt time.Time,
) *CheckIn {
	return &CheckIn{
		id:          id,
		tenantID:    tenantID,
		keyResultID: keyResultID,
		authorID:    authorID,
		value:       value,
		confidence:  confidence,
		note:        note,
		createdAt:   createdAt,
	}
}

// ID returns the check-in ID.
func (c *CheckIn) ID() shared.ID { return c.id }

// TenantID returns the owning tenant's ID.
func (c *CheckIn) TenantID() shared.ID { return c.tenantID }

// KeyResultID returns the key result this check-in updates.
func (c *CheckIn) KeyResultID() shared.ID { return c.keyResultID }

// AuthorID returns the author's user ID.
func (c *CheckIn) AuthorID() shared.ID { return c.authorID }

// Value returns the recorded value.
func (c *CheckIn) Value() float64 { return c.value }

// Confidence returns the recorded 0..10 confidence.
func (c *CheckIn) Confidence() int { return c.confidence }

// Note returns the optional note.
func (c *CheckIn) Note() string { return c.note }

// CreatedAt returns the creation timestamp.
func (c *CheckIn) CreatedAt() time.Time { return c.createdAt }
