package user

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for user persistence.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id shared.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetByIDs fetches users in bulk, preserving no particular order.
	GetByIDs(ctx context.Context, ids []shared.ID) ([]*User, error)
}
