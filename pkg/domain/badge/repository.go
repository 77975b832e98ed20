package badge

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines persistence for badges and awards.
type Repository interface {
	Create(ctx context.Context, b *Badge) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*Badge, error)
	Update(ctx context.Context, b *Badge) error
	Delete(ctx context.Context, tenantID, id shared.ID) error
	ListByTenant(ctx context.Context, tenantID shared.ID) ([]*Badge, error)

	CreateAward(ctx context.Context, a *Award) error
	GetAwardByID(ctx context.Context, tenantID, id shared.ID) (*Award, error)
	DeleteAward(ctx context.Context, tenantID, id shared.ID) error
	ListAwardsByRecipient(ctx context.Context, tenantID, recipientID shared.ID) ([]*Award, error)
	ListAwardsByBadge(ctx context.Context, tenantID, badgeID shared.ID) ([]*Award, error)
}
