// Package badge provides tenant-defined recognition badges and their
// awards to members.
package badge

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Badge is a tenant-defined recognition badge.
type Badge struct {
	id          shared.ID
	tenantID    shared.ID
	name        string
	description string
	icon        string
	createdBy   shared.ID
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new Badge.
func New(tenantID shared.ID, name, description, icon string, createdBy shared.ID) (*Badge, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name exceeds 100 characters", shared.ErrValidation)
	}
	if createdBy.IsZero() {
		return nil, fmt.Errorf("%w: createdBy is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Badge{
		id:          shared.NewID(),
		tenantID:    tenantID,
		name:        name,
		description: description,
		icon:        icon,
		createdBy:   createdBy,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute recreates a Badge from persistence.
func Reconstitute(
	id, tenantID shared.ID,
	name, description, icon string,
	createdBy shared.ID,
	createdAt, updatedAt time.Time,
) *Badge {
	return &Badge{
		id:          id,
		tenantID:    tenantID,
		name:        name,
		description: description,
		icon:        icon,
		createdBy:   createdBy,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the badge ID.
func (b *Badge) ID() shared.ID { return b.id }

// TenantID returns the owning tenant's ID.
func (b *Badge) TenantID() shared.ID { return b.tenantID }

// Name returns the badge name.
func (b *Badge) Name() string { return b.name }

// Description returns the description.
func (b *Badge) Description() string { return b.description }

// Icon returns the icon identifier.
func (b *Badge) Icon() string { return b.icon }

// CreatedBy returns the creating user's ID.
func (b *Badge) CreatedBy() shared.ID { return b.createdBy }

// CreatedAt returns the creation timestamp.
func (b *Badge) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last update timestamp.
func (b *Badge) UpdatedAt() time.Time { return b.updatedAt }

// Update changes the badge's name, description and icon.
func (b *Badge) Update(name, description, icon string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: name exceeds 100 characters", shared.ErrValidation)
	}
	b.name = name
	b.description = description
	b.icon = icon
	b.updatedAt = time.Now().UTC()
	return nil
}
