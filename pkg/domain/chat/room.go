// Package chat provides tenant-scoped chat rooms and messages. Every
// room carries a tenant ID; there are no cross-tenant or global rooms.
package chat

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// RoomKind distinguishes the general tenant room from team rooms.
type RoomKind string

const (
	// RoomKindGeneral is the tenant-wide room, created with the tenant.
	RoomKindGeneral RoomKind = "general"
	// RoomKindTeam is a room bound to a team.
	RoomKindTeam RoomKind = "team"
)

// IsValid checks if the kind is a known value.
func (k RoomKind) IsValid() bool {
	return k == RoomKindGeneral || k == RoomKindTeam
}

// Room is a tenant-scoped chat room.
type Room struct {
	id        shared.ID
	tenantID  shared.ID
	kind      RoomKind
	name      string
	teamID    *shared.ID // set when kind is team
	createdAt time.Time
}

// NewGeneralRoom creates the tenant-wide room.
func NewGeneralRoom(tenantID shared.ID) (*Room, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	return &Room{
		id:        shared.NewID(),
		tenantID:  tenantID,
		kind:      RoomKindGeneral,
		name:      "General",
		createdAt: time.Now().UTC(),
	}, nil
}

// NewTeamRoom creates a room bound to a team.
func NewTeamRoom(tenantID, teamID shared.ID, name string) (*Room, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if teamID.IsZero() {
		return nil, fmt.Errorf("%w: teamID is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return &Room{
		id:        shared.NewID(),
		tenantID:  tenantID,
		kind:      RoomKindTeam,
		name:      name,
		teamID:    &teamID,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstituteRoom recreates a Room from persistence.
func ReconstituteRoom(
	id, tenantID shared.ID,
	kind RoomKind,
	name string,
	teamID *shared.ID,
	createdAt time.Time,
) *Room {
	return &Room{
		id:        id,
		tenantID:  tenantID,
		kind:      kind,
		name:      name,
		teamID:    teamID,
		createdAt: createdAt,
	}
}

// ID returns the room ID.
func (r *Room) ID() shared.ID { return r.id }

// TenantID returns the owning tenant's ID.
func (r *Room) TenantID() shared.ID { return r.tenantID }

// Kind returns the room kind.
func (r *Room) Kind() RoomKind { return r.kind }

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// TeamID returns the bound team's ID, or nil for the general room.
func (r *Room) TeamID() *shared.ID { return r.teamID }

// CreatedAt returns the creation timestamp.
func (r *Room) CreatedAt() time.Time { return r.createdAt }
