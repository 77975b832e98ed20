// Package team provides the team domain model: a tenant-scoped grouping
// of users that objectives can be attached to.
package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Team represents a tenant-scoped team.
type Team struct {
	id          shared.ID
	tenantID    shared.ID
	name        string
	slug        string
	description string
	leadID      *shared.ID
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new Team.
func New(tenantID shared.ID, name string) (*Team, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	slug := shared.GenerateSlug(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name does not produce a usable slug", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Team{
		id:        shared.NewID(),
		tenantID:  tenantID,
		name:      name,
		slug:      slug,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a Team from persistence.
func Reconstitute(
	id, tenantID shared.ID,
	name, slug, description string,
	leadID *shared.ID,
	createdAt, updatedAt time.Time,
) *Team {
	return &Team{
		id:          id,
		tenantID:    tenantID,
		name:        name,
		slug:        slug,
		description: description,
		leadID:      leadID,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the team ID.
func (t *Team) ID() shared.ID { return t.id }

// TenantID returns the owning tenant's ID.
func (t *Team) TenantID() shared.ID { return t.tenantID }

// Name returns the team name.
func (t *Team) Name() string { return t.name }

// Slug returns the team slug.
func (t *Team) Slug() string { return t.slug }

// Description returns the description.
func (t *Team) Description() string { return t.description }

// LeadID returns the team lead's user ID, or nil.
func (t *Team) LeadID() *shared.ID { return t.leadID }

// CreatedAt returns the creation timestamp.
func (t *Team) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last update timestamp.
func (t *Team) UpdatedAt() time.Time { return t.updatedAt }

// UpdateName updates the name and re-derives the slug.
func (t *Team) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	t.name = name
	t.slug = shared.GenerateSlug(name)
	t.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the description.
func (t *Team) UpdateDescription(description string) {
	t.description = strings.TrimSpace(description)
	t.updatedAt = time.Now().UTC()
}

// SetLead assigns the team lead. Pass nil to clear.
func (t *Team) SetLead(leadID *shared.ID) {
	t.leadID = leadID
	t.updatedAt = time.Now().UTC()
}
