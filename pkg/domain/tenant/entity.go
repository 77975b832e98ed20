// Package tenant provides the tenant (workspace) domain model: the unit
// of data partitioning for every OKR resource, plus the membership edges
// that grant users access to it.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Status represents the lifecycle status of a tenant.
// Billing webhooks move tenants between active, past_due, and cancelled;
// trial is the initial state for self-signup tenants.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusTrial, StatusPastDue, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Tenant represents an isolated organization/workspace.
type Tenant struct {
	id             shared.ID
	name           string
	slug           string
	description    string
	logoURL        string
	plan           Plan
	maxUsers       int // effective member quota; 0 means "use plan default"
	status         Status
	settings       map[string]any
	createdBy      shared.ID
	createdAt      time.Time
	updatedAt      time.Time
}

// New creates a new Tenant. The slug is always derived server-side from
// the name; clients never supply it.
func New(name string, createdBy shared.ID) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if createdBy.IsZero() {
		return nil, fmt.Errorf("%w: createdBy is required", shared.ErrValidation)
	}

	slug := shared.GenerateSlug(name)
	if !shared.IsValidSlug(slug) {
		return nil, fmt.Errorf("%w: name does not produce a usable slug", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Tenant{
		id:        shared.NewID(),
		name:      name,
		slug:      slug,
		plan:      PlanFree,
		status:    StatusTrial,
		settings:  make(map[string]any),
		createdBy: createdBy,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a Tenant from persistence.
func Reconstitute(
	id shared.ID,
	name, slug, description, logoURL string,
	plan Plan,
	maxUsers int,
	status Status,
	settings map[string]any,
	createdBy shared.ID,
	createdAt, updatedAt time.Time,
) *Tenant {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &Tenant{
		id:          id,
		name:        name,
		slug:        slug,
		description: description,
		logoURL:     logoURL,
		plan:        plan,
		maxUsers:    maxUsers,
		status:      status,
		settings:    settings,
		createdBy:   createdBy,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the tenant ID.
func (t *Tenant) ID() shared.ID { return t.id }

// Name returns the tenant display name.
func (t *Tenant) Name() string { return t.name }

// Slug returns the tenant slug (URL-friendly identifier).
func (t *Tenant) Slug() string { return t.slug }

// Description returns the tenant description.
func (t *Tenant) Description() string { return t.description }

// LogoURL returns the tenant logo URL.
func (t *Tenant) LogoURL() string { return t.logoURL }

// Plan returns the tenant's plan tier.
func (t *Tenant) Plan() Plan { return t.plan }

// Status returns the tenant lifecycle status.
func (t *Tenant) Status() Status { return t.status }

// MaxUsers returns the effective member quota for this tenant.
// A stored override takes precedence over the plan default; a value
// of -1 means unlimited.
func (t *Tenant) MaxUsers() int {
	if t.maxUsers != 0 {
		return t.maxUsers
	}
	return t.plan.Limits().MaxMembers
}

// Settings returns a copy of the tenant settings.
func (t *Tenant) Settings() map[string]any {
	result := make(map[string]any, len(t.settings))
	for k, v := range t.settings {
		result[k] = v
	}
	return result
}

// CreatedBy returns the user who created this tenant.
func (t *Tenant) CreatedBy() shared.ID { return t.createdBy }

// CreatedAt returns the creation timestamp.
func (t *Tenant) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last update timestamp.
func (t *Tenant) UpdatedAt() time.Time { return t.updatedAt }

// IsAccessible reports whether the tenant may serve requests.
// past_due tenants keep read access; cancelled tenants do not.
func (t *Tenant) IsAccessible() bool {
	return t.status != StatusCancelled
}

// UpdateName updates the tenant name. The slug is intentionally left
// untouched: it is part of existing URLs.
func (t *Tenant) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	t.name = name
	t.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the tenant description.
func (t *Tenant) UpdateDescription(description string) {
	t.description = description
	t.updatedAt = time.Now().UTC()
}

// UpdateLogoURL updates the tenant logo URL.
func (t *Tenant) UpdateLogoURL(logoURL string) {
	t.logoURL = logoURL
	t.updatedAt = time.Now().UTC()
}

// UpdateSlug updates the tenant slug.
// Caller must verify uniqueness before calling this method.
func (t *Tenant) UpdateSlug(slug string) error {
	if !shared.IsValidSlug(slug) {
		return fmt.Errorf("%w: slug must be 3-100 characters of lowercase letters, numbers, and hyphens", shared.ErrValidation)
	}
	t.slug = strings.ToLower(slug)
	t.updatedAt = time.Now().UTC()
	return nil
}

// ChangePlan moves the tenant to a new plan tier and resets any stored
// member-quota override. Driven by billing webhook events.
func (t *Tenant) ChangePlan(plan Plan) error {
	if !plan.IsValid() {
		return fmt.Errorf("%w: invalid plan", shared.ErrValidation)
	}
	t.plan = plan
	t.maxUsers = 0
	t.updatedAt = time.Now().UTC()
	return nil
}

// OverrideMaxUsers sets an explicit member quota, overriding the plan
// default. -1 means unlimited.
func (t *Tenant) OverrideMaxUsers(maxUsers int) error {
	if maxUsers < -1 || maxUsers == 0 {
		return fmt.Errorf("%w: maxUsers must be positive or -1 for unlimited", shared.ErrValidation)
	}
	t.maxUsers = maxUsers
	t.updatedAt = time.Now().UTC()
	return nil
}

// TransitionStatus applies a lifecycle status change.
func (t *Tenant) TransitionStatus(status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid tenant status", shared.ErrValidation)
	}
	t.status = status
	t.updatedAt = time.Now().UTC()
	return nil
}

// SetSetting sets a setting value.
func (t *Tenant) SetSetting(key string, value any) {
	if key == "" {
		return
	}
	t.settings[key] = value
	t.updatedAt = time.Now().UTC()
}

// GetSetting gets a setting value.
func (t *Tenant) GetSetting(key string) (any, bool) {
	v, ok := t.settings[key]
	return v, ok
}
