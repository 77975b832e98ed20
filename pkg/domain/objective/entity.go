// Package objective provides the objective domain model. An objective is
// a tenant-scoped goal, optionally attached to a team and a timeframe,
// whose progress rolls up from its key results.
package objective

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Status represents the objective lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Objective represents a tenant-scoped goal.
type Objective struct {
	id          shared.ID
	tenantID    shared.ID
	title       string
	description string
	ownerID     shared.ID
	teamID      *shared.ID
	timeframeID *shared.ID
	status      Status
	progress    int // 0..100, rolled up from key results
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new Objective. The tenant ID always comes from the
// resolved request context, never from client input.
func New(tenantID shared.ID, title string, ownerID shared.ID) (*Objective, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if ownerID.IsZero() {
		return nil, fmt.Errorf("%w: ownerID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Objective{
		id:        shared.NewID(),
		tenantID:  tenantID,
		title:     title,
		ownerID:   ownerID,
		status:    StatusDraft,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates an Objective from persistence.
func Reconstitute(
	id, tenantID shared.ID,
	title, description string,
	ownerID shared.ID,
	teamID, timeframeID *shared.ID,
	status Status,
	progress int,
	createdAt, updatedAt time.Time,
) *Objective {
	return &Objective{
		id:          id,
		tenantID:    tenantID,
		title:       title,
		description: description,
		ownerID:     ownerID,
		teamID:      teamID,
		timeframeID: timeframeID,
		status:      status,
		progress:    progress,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the objective ID.
func (o *Objective) ID() shared.ID { return o.id }

// TenantID returns the owning tenant's ID.
func (o *Objective) TenantID() shared.ID { return o.tenantID }

// Title returns the title.
func (o *Objective) Title() string { return o.title }

// Description returns the description.
func (o *Objective) Description() string { return o.description }

// OwnerID returns the owning user's ID.
func (o *Objective) OwnerID() shared.ID { return o.ownerID }

// TeamID returns the attached team ID, or nil.
func (o *Objective) TeamID() *shared.ID { return o.teamID }

// TimeframeID returns the attached timeframe ID, or nil.
func (o *Objective) TimeframeID() *shared.ID { return o.timeframeID }

// Status returns the lifecycle status.
func (o *Objective) Status() Status { return o.status }

// Progress returns the rolled-up progress, 0..100.
func (o *Objective) Progress() int { return o.progress }

// CreatedAt returns the creation timestamp.
func (o *Objective) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt returns the last update timestamp.
func (o *Objective) UpdatedAt() time.Time { return o.updatedAt }

// UpdateTitle updates the title.
func (o *Objective) UpdateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	o.title = title
	o.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the description.
func (o *Objective) UpdateDescription(description string) {
	o.description = description
	o.updatedAt = time.Now().UTC()
}

// AssignOwner reassigns the objective to another user.
func (o *Objective) AssignOwner(ownerID shared.ID) error {
	if ownerID.IsZero() {
		return fmt.Errorf("%w: ownerID is required", shared.ErrValidation)
	}
	o.ownerID = ownerID
	o.updatedAt = time.Now().UTC()
	return nil
}

// AttachTeam attaches the objective to a team. Pass nil to detach.
func (o *Objective) AttachTeam(teamID *shared.ID) {
	o.teamID = teamID
	o.updatedAt = time.Now().UTC()
}

// AttachTimeframe attaches the objective to a timeframe. Pass nil to detach.
func (o *Objective) AttachTimeframe(timeframeID *shared.ID) {
	o.timeframeID = timeframeID
	o.updatedAt = time.Now().UTC()
}

// TransitionStatus applies a lifecycle status change.
func (o *Objective) TransitionStatus(status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid objective status", shared.ErrValidation)
	}
	o.status = status
	o.updatedAt = time.Now().UTC()
	return nil
}

// SetProgress sets the rolled-up progress. Values are clamped to 0..100.
func (o *Objective) SetProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	o.progress = progress
	o.updatedAt = time.Now().UTC()
}
