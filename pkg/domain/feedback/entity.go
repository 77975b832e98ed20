// Package feedback provides peer feedback between members of a tenant.
package feedback

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Visibility controls who can read a feedback entry.
type Visibility string

const (
	// VisibilityPublic is readable by any member of the tenant.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate is readable only by author and recipient.
	VisibilityPrivate Visibility = "private"
)

// IsValid checks if the visibility is a known value.
func (v Visibility) IsValid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

const maxMessageLength = 4000

// Feedback is a message from one tenant member to another.
type Feedback struct {
	id          shared.ID
	tenantID    shared.ID
	authorID    shared.ID
	recipientID shared.ID
	message     string
	visibility  Visibility
	createdAt   time.Time
}

// New creates a new Feedback entry.
func New(tenantID, authorID, recipientID shared.ID, message string, visibility Visibility) (*Feedback, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if authorID.IsZero() || recipientID.IsZero() {
		return nil, fmt.Errorf("%w: author and recipient are required", shared.ErrValidation)
	}
	if authorID == recipientID {
		return nil, fmt.Errorf("%w: cannot send feedback to yourself", shared.ErrValidation)
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", shared.ErrValidation)
	}
	if len(message) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", shared.ErrValidation, maxMessageLength)
	}
	if !visibility.IsValid() {
		return nil, fmt.Errorf("%w: invalid visibility %q", shared.ErrValidation, visibility)
	}

	return &Feedback{
		id:          shared.NewID(),
		tenantID:    tenantID,
		authorID:    authorID,
		recipientID: recipientID,
		message:     message,
		visibility:  visibility,
		createdAt:   time.Now().UTC(),
	}, nil
}

// Reconstitute recreates a Feedback from persistence.
func Reconstitute(
	id, tenantID, authorID, recipientID shared.ID,
	message string,
	visibility Visibility,
	createdAt time.Time,
) *Feedback {
	return &Feedback{
		id:          id,
		tenantID:    tenantID,
		authorID:    authorID,
		recipientID: recipientID,
		message:     message,
		visibility:  visibility,
		createdAt:   createdAt,
	}
}

// ID returns the feedback ID.
func (f *Feedback) ID() shared.ID { return f.id }

// TenantID returns the owning tenant's ID.
func (f *Feedback) TenantID() shared.ID { return f.tenantID }

// AuthorID returns the author's user ID.
func (f *Feedback) AuthorID() shared.ID { return f.authorID }

// RecipientID returns the recipient's user ID.
func (f *Feedback) RecipientID() shared.ID { return f.recipientID }

// Message returns the feedback text.
func (f *Feedback) Message() string { return f.message }

// Visibility returns the visibility setting.
func (f *Feedback) Visibility() Visibility { return f.visibility }

// CreatedAt returns the creation timestamp.
func (f *Feedback) CreatedAt() time.Time { return f.createdAt }

// VisibleTo reports whether the given user may read this entry.
func (f *Feedback) VisibleTo(userID shared.ID) bool {
	if f.visibility == VisibilityPublic {
		return true
	}
	return userID == f.authorID || userID == f.recipientID
}
