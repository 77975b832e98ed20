package billing

import (
	"context"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines persistence for subscriptions and webhook event
// deduplication.
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	GetByTenant(ctx context.Context, tenantID shared.ID) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, providerSubID string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error

	// RecordEvent stores a processed webhook event ID. Returns
	// ErrDuplicateEvent if the ID was already recorded; callers use
	// this for idempotent webhook handling.
	RecordEvent(ctx context.Context, eventID string, eventType EventType, receivedAt time.Time) error

	// DeleteEvent removes a recorded event ID so the provider's retry
	// of a failed apply is not treated as a replay.
	DeleteEvent(ctx context.Context, eventID string) error

	// ListExpiring returns canceling subscriptions whose period ends
	// before the cutoff. Used by the sweep job.
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*Subscription, error)
}
