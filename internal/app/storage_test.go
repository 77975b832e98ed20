package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeObjectStore records puts and returns deterministic URLs.
type fakeObjectStore struct {
	puts map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{puts: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	f.puts[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	delete(f.puts, key)
	return nil
}

// stubUserRepo holds a single user; everything else panics via the
// embedded nil.
type stubUserRepo struct {
	user.Repository

	user *user.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	if s.user != nil && s.user.ID() == id {
		return s.user, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubUserRepo) Update(_ context.Context, u *user.User) error {
	s.user = u
	return nil
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		contentType string
		ext         string
		ok          bool
	}{
		{"image/png", "png", true},
		{"image/jpeg", "jpg", true},
		{"image/webp", "webp", true},
		{"image/gif", "gif", true},
		{"image/svg+xml", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			ext, ok := imageExtension(tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestUserService_UploadAvatar(t *testing.T) {
	ctx := context.Background()

	newFixture := func(t *testing.T, store ObjectStore) (*UserService, *user.User) {
		t.Helper()
		u, err := user.New("alice@acme.test", "Alice", "hash")
		require.NoError(t, err)
		repo := &stubUserRepo{user: u}
		opts := []UserServiceOption{}
		if store != nil {
			opts = append(opts, WithAvatarStore(store))
		}
		return NewUserService(repo, logger.NewNop(), opts...), u
	}

	t.Run("stores under deterministic key and persists URL", func(t *testing.T) {
		store := newFakeObjectStore()
		svc, u := newFixture(t, store)

		updated, err := svc.UploadAvatar(ctx, u.ID(), "image/png", []byte("png-bytes"))

		require.NoError(t, err)
		key := "avatars/" + u.ID().String() + ".png"
		assert.Equal(t, []byte("png-bytes"), store.puts[key])
		assert.Equal(t, "https://cdn.test/"+key, updated.AvatarURL())
	})

	t.Run("unsupported content type", func(t *testing.T) {
		svc, u := newFixture(t, newFakeObjectStore())

		_, err := svc.UploadAvatar(ctx, u.ID(), "image/tiff", []byte("x"))

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("no store configured", func(t *testing.T) {
		svc, u := newFixture(t, nil)

		_, err := svc.UploadAvatar(ctx, u.ID(), "image/png", []byte("x"))

		assert.ErrorIs(t, err, ErrStorageNotConfigured)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _ := newFixture(t, newFakeObjectStore())

		_, err := svc.UploadAvatar(ctx, shared.NewID(), "image/png", []byte("x"))

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
