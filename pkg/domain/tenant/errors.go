package tenant

import (
	"fmt"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Business-rule errors surfaced by the tenant service and repositories.
var (
	// ErrLastOwner is returned when removing or demoting the only owner
	// of a tenant. Every tenant keeps at least one owner at all times.
	ErrLastOwner = fmt.Errorf("%w: cannot remove the only owner of a tenant", shared.ErrConflict)

	// ErrMemberQuotaExceeded is returned when adding a member would
	// exceed the tenant's plan quota.
	ErrMemberQuotaExceeded = fmt.Errorf("%w: member limit for the current plan reached", shared.ErrConflict)

	// ErrAlreadyMember is returned when adding a user who already has a
	// membership in the tenant.
	ErrAlreadyMember = fmt.Errorf("%w: user is already a member of this tenant", shared.ErrConflict)

	// ErrNotMember is returned when an operation targets a user without
	// a membership in the tenant.
	ErrNotMember = fmt.Errorf("%w: user is not a member of this tenant", shared.ErrForbidden)

	// ErrSlugTaken is returned when a derived or requested slug collides
	// with an existing tenant.
	ErrSlugTaken = fmt.Errorf("%w: tenant slug is already in use", shared.ErrAlreadyExists)
)
