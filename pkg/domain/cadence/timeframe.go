package cadence

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Timeframe is a dated period belonging to a cadence, e.g. "Q3 2026".
// Objectives are attached to timeframes, never to the cadence directly.
type Timeframe struct {
	id        shared.ID
	tenantID  shared.ID
	cadenceID shared.ID
	name      string
	startsOn  time.Time
	endsOn    time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewTimeframe creates a new Timeframe under a cadence.
func NewTimeframe(tenantID, cadenceID shared.ID, name string, startsOn, endsOn time.Time) (*Timeframe, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if cadenceID.IsZero() {
		return nil, fmt.Errorf("%w: cadenceID is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !endsOn.After(startsOn) {
		return nil, fmt.Errorf("%w: end date must be after start date", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Timeframe{
		id:        shared.NewID(),
		tenantID:  tenantID,
		cadenceID: cadenceID,
		name:      name,
		startsOn:  startsOn,
		endsOn:    endsOn,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstituteTimeframe recreates a Timeframe from persistence.
func ReconstituteTimeframe(
	id, tenantID, cadenceID shared.ID,
	name string,
	startsOn, endsOn time.Time,
	createdAt, updatedAt time.Time,
) *Timeframe {
	return &Timeframe{
		id:        id,
		tenantID:  tenantID,
		cadenceID: cadenceID,
		name:      name,
		startsOn:  startsOn,
		endsOn:    endsOn,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the timeframe ID.
func (t *Timeframe) ID() shared.ID { return t.id }

// TenantID returns the owning tenant's ID.
func (t *Timeframe) TenantID() shared.ID { return t.tenantID }

// CadenceID returns the parent cadence's ID.
func (t *Timeframe) CadenceID() shared.ID { return t.cadenceID }

// Name returns the timeframe name.
func (t *Timeframe) Name() string { return t.name }

// StartsOn returns the start date.
func (t *Timeframe) StartsOn() time.Time { return t.startsOn }

// EndsOn returns the end date.
func (t *Timeframe) EndsOn() time.Time { return t.endsOn }

// CreatedAt returns the creation timestamp.
func (t *Timeframe) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last update timestamp.
func (t *Timeframe) UpdatedAt() time.Time { return t.updatedAt }

// IsCurrent reports whether the given instant falls inside the timeframe.
func (t *Timeframe) IsCurrent(at time.Time) bool {
	return !at.Before(t.startsOn) && at.Before(t.endsOn)
}

// Update changes the name and dates.
func (t *Timeframe) Update(name string, startsOn, endsOn time.Time) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !endsOn.After(startsOn) {
		return fmt.Errorf("%w: end date must be after start date", shared.ErrValidation)
	}
	t.name = name
	t.startsOn = startsOn
	t.endsOn = endsOn
	t.updatedAt = time.Now().UTC()
	return nil
}
