package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// UserService handles user profile operations.
type UserService struct {
	repo   user.Repository
	store  ObjectStore
	logger *logger.Logger
}

// UserServiceOption configures optional UserService collaborators.
type UserServiceOption func(*UserService)

// WithAvatarStore enables avatar uploads via the object store.
func WithAvatarStore(store ObjectStore) UserServiceOption {
	return func(s *UserService) { s.store = store }
}

// NewUserService creates a new UserService.
func NewUserService(repo user.Repository, log *logger.Logger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo:   repo,
		logger: log.With("service", "user"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProfile retrieves a user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID shared.ID) (*user.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// GetByEmail retrieves a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// GetByIDs retrieves multiple users in one round trip.
func (s *UserService) GetByIDs(ctx context.Context, ids []shared.ID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}

// UpdateProfileInput represents the input for a profile update.
type UpdateProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

// UpdateProfile updates a user's profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID shared.ID, input UpdateProfileInput) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := u.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.AvatarURL != nil {
		u.UpdateAvatarURL(*input.AvatarURL)
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("profile updated", "user_id", userID.String())
	return u, nil
}

// UploadAvatar stores an avatar image and points the profile at it.
// The object key is derived from the user ID, so re-uploading replaces
// the previous avatar in place.
func (s *UserService) UploadAvatar(ctx context.Context, userID shared.ID, contentType string, data []byte) (*user.User, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	ext, ok := imageExtension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", shared.ErrValidation, contentType)
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s.%s", userID.String(), ext)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	u.UpdateAvatarURL(url)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("avatar uploaded", "user_id", userID.String(), "key", key)
	return u, nil
}

// SuspendUser suspends a user account. System admin operation.
func (s *UserService) SuspendUser(ctx context.Context, userID shared.ID) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Suspend()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to suspend user: %w", err)
	}

	s.logger.Info("user suspended", "user_id", userID.String())
	return u, nil
}

// ActivateUser reactivates a suspended user account. System admin
// operation.
func (s *UserService) ActivateUser(ctx context.Context, userID shared.ID) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Activate()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}

	s.logger.Info("user activated", "user_id", userID.String())
	return u, nil
}

// GrantSystemAdmin grants the platform-wide admin role. System admin
// operation, also reachable from the admin CLI.
func (s *UserService) GrantSystemAdmin(ctx context.Context, email string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	u.GrantSystemAdmin()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to grant system admin: %w", err)
	}

	s.logger.Info("system admin granted", "user_id", u.ID().String(), "email", u.Email())
	return u, nil
}

// RevokeSystemAdmin removes the platform-wide admin role.
func (s *UserService) RevokeSystemAdmin(ctx context.Context, email string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	u.RevokeSystemAdmin()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to revoke system admin: %w", err)
	}

	s.logger.Info("system admin revoked", "user_id", u.ID().String(), "email", u.Email())
	return u, nil
}
