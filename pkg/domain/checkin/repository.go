package checkin

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for check-in persistence.
// Listing is always pushed down to SQL with a tenant predicate; rows are
// never fetched tenant-wide and filtered in application code.
type Repository interface {
	Create(ctx context.Context, c *CheckIn) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*CheckIn, error)
	ListByKeyResult(ctx context.Context, tenantID, keyResultID shared.ID, limit, offset int) ([]*CheckIn, int64, error)
	ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*CheckIn, int64, error)
}
