package billing

import (
	"fmt"

	"github.com/northstarhq/api/pkg/domain/shared"
)

var (
	// ErrInvalidTransition is returned for disallowed state changes.
	ErrInvalidTransition = fmt.Errorf("%w: invalid subscription transition", shared.ErrConflict)

	// ErrInvalidSignature is returned when a webhook signature does
	// not verify.
	ErrInvalidSignature = fmt.Errorf("%w: webhook signature verification failed", shared.ErrUnauthorized)

	// ErrDuplicateEvent is returned when a webhook event ID has
	// already been processed.
	ErrDuplicateEvent = fmt.Errorf("%w: webhook event already processed", shared.ErrConflict)

	// ErrNoSubscription is returned when a tenant has no subscription
	// on record.
	ErrNoSubscription = fmt.Errorf("%w: tenant has no subscription", shared.ErrNotFound)
)
