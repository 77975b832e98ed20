package feedback

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Filter narrows feedback listings. Visibility restrictions for the
// requesting user are applied in SQL alongside the tenant predicate.
type Filter struct {
	AuthorID    *shared.ID
	RecipientID *shared.ID
	Limit       int
	Offset      int
}

// Repository defines persistence for feedback entries.
type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, tenantID, id shared.ID) (*Feedback, error)
	Delete(ctx context.Context, tenantID, id shared.ID) error
	// List returns entries visible to viewerID: public entries plus
	// private ones where the viewer is author or recipient.
	List(ctx context.Context, tenantID, viewerID shared.ID, filter Filter) ([]*Feedback, int, error)
}
