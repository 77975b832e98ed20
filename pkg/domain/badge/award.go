package badge

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Award records a badge given to a tenant member. The tenant ID is
// carried on the award itself so listings never need to join through
// the badge to apply the tenant predicate.
type Award struct {
	id          shared.ID
	tenantID    shared.ID
	badgeID     shared.ID
	recipientID shared.ID
	awardedBy   shared.ID
	note        string
	awardedAt   time.Time
}

// NewAward creates a new Award. The recipient must already be verified
// as a member of the tenant by the caller.
func NewAward(tenantID, badgeID, recipientID, awardedBy shared.ID, note string) (*Award, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if badgeID.IsZero() {
		return nil, fmt.Errorf("%w: badgeID is required", shared.ErrValidation)
	}
	if recipientID.IsZero() || awardedBy.IsZero() {
		return nil, fmt.Errorf("%w: recipient and awarder are required", shared.ErrValidation)
	}
	if recipientID == awardedBy {
		return nil, fmt.Errorf("%w: cannot award a badge to yourself", shared.ErrValidation)
	}

	return &Award{
		id:          shared.NewID(),
		tenantID:    tenantID,
		badgeID:     badgeID,
		recipientID: recipientID,
		awardedBy:   awardedBy,
		note:        note,
		awardedAt:   time.Now().UTC(),
	}, nil
}

// ReconstituteAward recreates an Award from persistence.
func ReconstituteAward(
	id, tenantID, badgeID, recipientID, awardedBy shared.ID,
	note string,
	awardedAt time.Time,
) *Award {
	return &Award{
		id:          id,
		tenantID:    tenantID,
		badgeID:     badgeID,
		recipientID: recipientID,
		awardedBy:   awardedBy,
		note:        note,
		awardedAt:   awardedAt,
	}
}

// ID returns the award ID.
func (a *Award) ID() shared.ID { return a.id }

// TenantID returns the owning tenant's ID.
func (a *Award) TenantID() shared.ID { return a.tenantID }

// BadgeID returns the awarded badge's ID.
func (a *Award) BadgeID() shared.ID { return a.badgeID }

// RecipientID returns the recipient's user ID.
func (a *Award) RecipientID() shared.ID { return a.recipientID }

// AwardedBy returns the awarding user's ID.
func (a *Award) AwardedBy() shared.ID { return a.awardedBy }

// Note returns the optional award note.
func (a *Award) Note() string { return a.note }

// AwardedAt returns the award timestamp.
func (a *Award) AwardedAt() time.Time { return a.awardedAt }
