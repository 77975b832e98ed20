package objective

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Filter represents criteria for listing objectives. All queries are
// additionally constrained by tenant at the SQL level.
type Filter struct {
	OwnerID     *shared.ID
	TeamID      *shared.ID
	TimeframeID *shared.ID
	Status      *Status
	Search      string
	Limit       int
	Offset      int
}

// Repository defines the interface for objective persistence.
// Every method that touches rows takes the tenant ID explicitly so the
// WHERE tenant_id clause can never be forgotten at a call site.
type Repository interface {
	Create(ctx context.Context, o *Objective) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*Objective, error)
	Update(ctx context.Context, o *Objective) error
	Delete(ctx context.Context, tenantID, id shared.ID) error
	List(ctx context.Context, tenantID shared.ID, filter Filter) ([]*Objective, int64, error)
	CountByTenant(ctx context.Context, tenantID shared.ID) (int64, error)
}
