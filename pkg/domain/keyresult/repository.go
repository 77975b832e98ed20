package keyresult

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for key result persistence.
type Repository interface {
	Create(ctx context.Context, kr *KeyResult) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*KeyResult, error)
	Update(ctx context.Context, kr *KeyResult) error
	Delete(ctx context.Context, tenantID, id shared.ID) error
	ListByObjective(ctx context.Context, tenantID, objectiveID shared.ID) ([]*KeyResult, error)
	ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*KeyResult, int64, error)
}
