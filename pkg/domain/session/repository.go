package session

import (
	"context"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for refresh-token persistence.
type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Update(ctx context.Context, token *RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID shared.ID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
