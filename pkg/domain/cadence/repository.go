package cadence

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines persistence for cadences and timeframes. All reads
// and writes are tenant-scoped; the tenant predicate is applied in SQL.
type Repository interface {
	Create(ctx context.Context, c *Cadence) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*Cadence, error)
	Update(ctx context.Context, c *Cadence) error
	// Delete removes a cadence. Returns ErrHasTimeframes if any
	// timeframe still references it.
	Delete(ctx context.Context, tenantID, id shared.ID) error
	ListByTenant(ctx context.Context, tenantID shared.ID) ([]*Cadence, error)

	CreateTimeframe(ctx context.Context, tf *Timeframe) error
	GetTimeframeByID(ctx context.Context, tenantID, id shared.ID) (*Timeframe, error)
	UpdateTimeframe(ctx context.Context, tf *Timeframe) error
	// DeleteTimeframe removes a timeframe. Returns ErrTimeframeInUse
	// if any objective still references it.
	DeleteTimeframe(ctx context.Context, tenantID, id shared.ID) error
	ListTimeframes(ctx context.Context, tenantID, cadenceID shared.ID) ([]*Timeframe, error)
	ListActiveTimeframes(ctx context.Context, tenantID shared.ID) ([]*Timeframe, error)
}
