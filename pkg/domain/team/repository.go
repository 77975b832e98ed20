package team

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for team persistence.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*Team, error)
	Update(ctx context.Context, t *Team) error
	Delete(ctx context.Context, tenantID, id shared.ID) error
	ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*Team, int64, error)
	CountByTenant(ctx context.Context, tenantID shared.ID) (int64, error)

	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, teamID, userID shared.ID) error
	ListMembers(ctx context.Context, teamID shared.ID) ([]*Member, error)
	IsMember(ctx context.Context, teamID, userID shared.ID) (bool, error)
}
