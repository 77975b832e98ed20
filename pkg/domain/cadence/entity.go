// Package cadence provides the cadence and timeframe domain models. A
// cadence is a tenant-scoped OKR rhythm (quarterly, monthly, ...) with
// an optional cron reminder schedule; timeframes are the concrete dated
// periods cut from it.
package cadence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// reminderParser accepts standard 5-field cron expressions plus the
// @every and descriptor forms.
var reminderParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Cadence represents a tenant-scoped OKR rhythm.
type Cadence struct {
	id               shared.ID
	tenantID         shared.ID
	name             string
	description      string
	reminderSchedule string // cron expression, empty = no reminders
	createdAt        time.Time
	updatedAt        time.Time
}

// New creates a new Cadence.
func New(tenantID shared.ID, name, reminderSchedule string) (*Cadence, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if reminderSchedule != "" {
		if _, err := reminderParser.Parse(reminderSchedule); err != nil {
			return nil, fmt.Errorf("%w: invalid reminder schedule: %v", shared.ErrValidation, err)
		}
	}

	now := time.Now().UTC()
	return &Cadence{
		id:               shared.NewID(),
		tenantID:         tenantID,
		name:             name,
		reminderSchedule: reminderSchedule,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstitute recreates a Cadence from persistence.
func Reconstitute(
	id, tenantID shared.ID,
	name, description, reminderSchedule string,
	createdAt, updatedAt time.Time,
) *Cadence {
	return &Cadence{
		id:               id,
		tenantID:         tenantID,
		name:             name,
		description:      description,
		reminderSchedule: reminderSchedule,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ID returns the cadence ID.
func (c *Cadence) ID() shared.ID { return c.id }

// TenantID returns the owning tenant's ID.
func (c *Cadence) TenantID() shared.ID { return c.tenantID }

// Name returns the cadence name.
func (c *Cadence) Name() string { return c.name }

// Description returns the description.
func (c *Cadence) Description() string { return c.description }

// ReminderSchedule returns the cron reminder expression, or empty.
func (c *Cadence) ReminderSchedule() string { return c.reminderSchedule }

// CreatedAt returns the creation timestamp.
func (c *Cadence) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last update timestamp.
func (c *Cadence) UpdatedAt() time.Time { return c.updatedAt }

// NextReminder returns the next reminder time after the given instant,
// or the zero time if no schedule is set.
func (c *Cadence) NextReminder(after time.Time) time.Time {
	if c.reminderSchedule == "" {
		return time.Time{}
	}
	sched, err := reminderParser.Parse(c.reminderSchedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(after)
}

// UpdateName updates the name.
func (c *Cadence) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	c.name = name
	c.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the description.
func (c *Cadence) UpdateDescription(description string) {
	c.description = description
	c.updatedAt = time.Now().UTC()
}

// UpdateReminderSchedule replaces the reminder cron expression.
// An empty expression disables reminders.
func (c *Cadence) UpdateReminderSchedule(expr string) error {
	if expr != "" {
		if _, err := reminderParser.Parse(expr); err != nil {
			return fmt.Errorf("%w: invalid reminder schedule: %v", shared.ErrValidation, err)
		}
	}
	c.reminderSchedule = expr
	c.updatedAt = time.Now().UTC()
	return nil
}
