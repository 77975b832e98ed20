package team

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Member represents a user's membership in a team. Team membership is
// flat; tenant-level roles govern who may edit the team itself.
type Member struct {
	teamID  shared.ID
	userID  shared.ID
	addedBy shared.ID
	addedAt time.Time
}

// NewMember creates a new team member edge.
func NewMember(teamID, userID, addedBy shared.ID) (*Member, error) {
	if teamID.IsZero() {
		return nil, fmt.Errorf("%w: teamID is required", shared.ErrValidation)
	}
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	return &Member{
		teamID:  teamID,
		userID:  userID,
		addedBy: addedBy,
		addedAt: time.Now().UTC(),
	}, nil
}

// ReconstituteMember recreates a Member from persistence.
func ReconstituteMember(teamID, userID, addedBy shared.ID, addedAt time.Time) *Member {
	return &Member{teamID: teamID, userID: userID, addedBy: addedBy, addedAt: addedAt}
}

// TeamID returns the team ID.
func (m *Member) TeamID() shared.ID { return m.teamID }

// UserID returns the user ID.
func (m *Member) UserID() shared.ID { return m.userID }

// AddedBy returns who added this member.
func (m *Member) AddedBy() shared.ID { return m.addedBy }

// AddedAt returns when the member was added.
func (m *Member) AddedAt() time.Time { return m.addedAt }
