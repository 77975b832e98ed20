package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/team"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeChatRepo is an in-memory chat.Repository.
type fakeChatRepo struct {
	rooms    map[shared.ID]*chat.Room
	messages []*chat.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{rooms: make(map[shared.ID]*chat.Room)}
}

func (f *fakeChatRepo) CreateRoom(_ context.Context, r *chat.Room) error {
	f.rooms[r.ID()] = r
	return nil
}

func (f *fakeChatRepo) GetRoomByID(_ context.Context, tenantID, id shared.ID) (*chat.Room, error) {
	r, ok := f.rooms[id]
	if !ok || r.TenantID() != tenantID {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (f *fakeChatRepo) GetGeneralRoom(_ context.Context, tenantID shared.ID) (*chat.Room, error) {
	for _, r := range f.rooms {
		if r.TenantID() == tenantID && r.Kind() == chat.RoomKindGeneral {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeChatRepo) ListRooms(_ context.Context, tenantID shared.ID) ([]*chat.Room, error) {
	var out []*chat.Room
	for _, r := range f.rooms {
		if r.TenantID() == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) DeleteRoom(_ context.Context, tenantID, id shared.ID) error {
	r, ok := f.rooms[id]
	if !ok || r.TenantID() != tenantID {
		return shared.ErrNotFound
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeChatRepo) CreateMessage(_ context.Context, m *chat.Message) error {
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeChatRepo) ListMessages(_ context.Context, tenantID, roomID shared.ID, _ time.Time, limit int) ([]*chat.Message, error) {
	var out []*chat.Message
	for _, m := range f.messages {
		if m.TenantID() == tenantID && m.RoomID() == roomID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChatRepo) DeleteMessagesBefore(_ context.Context, tenantID shared.ID, cutoff time.Time) (int64, error) {
	var kept []*chat.Message
	var deleted int64
	for _, m := range f.messages {
		if m.TenantID() == tenantID && m.SentAt().Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return deleted, nil
}

// stubTeamRepo answers team membership checks from a fixed set.
type stubTeamRepo struct {
	team.Repository

	members map[shared.ID]map[shared.ID]bool // teamID -> userID
}

func (s *stubTeamRepo) IsMember(_ context.Context, teamID, userID shared.ID) (bool, error) {
	return s.members[teamID][userID], nil
}

// recordingBroadcaster captures fan-out calls.
type recordingBroadcaster struct {
	messages []*chat.Message
	err      error
}

func (r *recordingBroadcaster) BroadcastMessage(_ context.Context, m *chat.Message) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, m)
	return nil
}

// fakeHistoryCache is an in-memory ChatHistoryCache that counts calls.
type fakeHistoryCache struct {
	pages       map[shared.ID][]*chat.Message
	hits        int
	sets        int
	invalidates int
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{pages: make(map[shared.ID][]*chat.Message)}
}

func (f *fakeHistoryCache) GetPage(_ context.Context, roomID shared.ID) ([]*chat.Message, error) {
	page, ok := f.pages[roomID]
	if !ok {
		return nil, errors.New("miss")
	}
	f.hits++
	return page, nil
}

func (f *fakeHistoryCache) SetPage(_ context.Context, roomID shared.ID, messages []*chat.Message) error {
	f.sets++
	f.pages[roomID] = messages
	return nil
}

func (f *fakeHistoryCache) InvalidatePage(_ context.Context, roomID shared.ID) error {
	f.invalidates++
	delete(f.pages, roomID)
	return nil
}

type chatFixture struct {
	svc         *ChatService
	repo        *fakeChatRepo
	broadcaster *recordingBroadcaster
	history     *fakeHistoryCache
	tenant      *tenant.Tenant
	teamID      shared.ID
	teamMember  shared.ID
	outsider    shared.ID
	general     *chat.Room
	teamRoom    *chat.Room
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	ws, err := tenant.New("Acme Corp", shared.NewID())
	require.NoError(t, err)

	f := &chatFixture{
		repo:        newFakeChatRepo(),
		broadcaster: &recordingBroadcaster{},
		history:     newFakeHistoryCache(),
		tenant:      ws,
		teamID:      shared.NewID(),
		teamMember:  shared.NewID(),
		outsider:    shared.NewID(),
	}

	f.general, err = chat.NewGeneralRoom(ws.ID())
	require.NoError(t, err)
	f.teamRoom, err = chat.NewTeamRoom(ws.ID(), f.teamID, "Platform")
	require.NoError(t, err)
	require.NoError(t, f.repo.CreateRoom(context.Background(), f.general))
	require.NoError(t, f.repo.CreateRoom(context.Background(), f.teamRoom))

	teamRepo := &stubTeamRepo{members: map[shared.ID]map[shared.ID]bool{
		f.teamID: {f.teamMember: true},
	}}

	f.svc = NewChatService(f.repo, teamRepo, newStubTenantRepo(ws), logger.NewNop(),
		WithBroadcaster(f.broadcaster), WithHistoryCache(f.history))
	return f
}

func TestChatService_CanSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("any member may subscribe to the general room", func(t *testing.T) {
		f := newChatFixture(t)

		ok, err := f.svc.CanSubscribe(ctx, f.tenant.ID().String(), f.general.ID().String(), f.outsider.String())

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("team room requires team membership", func(t *testing.T) {
		f := newChatFixture(t)

		ok, err := f.svc.CanSubscribe(ctx, f.tenant.ID().String(), f.teamRoom.ID().String(), f.teamMember.String())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CanSubscribe(ctx, f.tenant.ID().String(), f.teamRoom.ID().String(), f.outsider.String())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cross-tenant room denied without error", func(t *testing.T) {
		f := newChatFixture(t)

		ok, err := f.svc.CanSubscribe(ctx, shared.NewID().String(), f.general.ID().String(), f.teamMember.String())

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed identifiers denied without error", func(t *testing.T) {
		f := newChatFixture(t)

		ok, err := f.svc.CanSubscribe(ctx, "not-an-id", f.general.ID().String(), f.teamMember.String())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = f.svc.CanSubscribe(ctx, f.tenant.ID().String(), "nope", f.teamMember.String())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestChatService_PostMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and broadcasts", func(t *testing.T) {
		f := newChatFixture(t)

		m, err := f.svc.PostMessage(ctx, f.tenant.ID(), f.general.ID(), f.teamMember,
			PostMessageInput{Body: "standup in 5"})

		require.NoError(t, err)
		assert.Equal(t, "standup in 5", m.Body())
		require.Len(t, f.broadcaster.messages, 1)
		assert.Equal(t, m.ID(), f.broadcaster.messages[0].ID())
	})

	t.Run("non team member forbidden in team room", func(t *testing.T) {
		f := newChatFixture(t)

		_, err := f.svc.PostMessage(ctx, f.tenant.ID(), f.teamRoom.ID(), f.outsider,
			PostMessageInput{Body: "hi"})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("broadcast failure does not fail the post", func(t *testing.T) {
		f := newChatFixture(t)
		f.broadcaster.err = errors.New("hub down")

		_, err := f.svc.PostMessage(ctx, f.tenant.ID(), f.general.ID(), f.teamMember,
			PostMessageInput{Body: "still works"})

		require.NoError(t, err)
		assert.Len(t, f.repo.messages, 1)
	})

	t.Run("cross-tenant room is not found", func(t *testing.T) {
		f := newChatFixture(t)

		_, err := f.svc.PostMessage(ctx, shared.NewID(), f.general.ID(), f.teamMember,
			PostMessageInput{Body: "hello"})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestChatService_ListMessages(t *testing.T) {
	ctx := context.Background()

	post := func(t *testing.T, f *chatFixture, body string) {
		t.Helper()
		_, err := f.svc.PostMessage(ctx, f.tenant.ID(), f.general.ID(), f.teamMember,
			PostMessageInput{Body: body})
		require.NoError(t, err)
	}

	t.Run("outsider forbidden in team room", func(t *testing.T) {
		f := newChatFixture(t)

		_, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.teamRoom.ID(), f.outsider, time.Time{}, 0)

		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Zero(t, f.history.hits, "cache must not be consulted before the access check passes")
	})

	t.Run("latest page is cached and served on repeat reads", func(t *testing.T) {
		f := newChatFixture(t)
		post(t, f, "standup in 5")

		first, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.general.ID(), f.teamMember, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, 1, f.history.sets)

		second, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.general.ID(), f.teamMember, time.Time{}, 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, f.history.hits)
		assert.Equal(t, 1, f.history.sets, "a cache hit must not rewrite the page")
	})

	t.Run("cursored reads bypass the cache", func(t *testing.T) {
		f := newChatFixture(t)
		post(t, f, "older context")

		_, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.general.ID(), f.teamMember,
			time.Now().UTC(), 10)

		require.NoError(t, err)
		assert.Zero(t, f.history.sets)
		assert.Zero(t, f.history.hits)
	})

	t.Run("posting invalidates the cached page", func(t *testing.T) {
		f := newChatFixture(t)
		post(t, f, "first")

		_, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.general.ID(), f.teamMember, time.Time{}, 0)
		require.NoError(t, err)

		post(t, f, "second")

		page, err := f.svc.ListMessages(ctx, f.tenant.ID(), f.general.ID(), f.teamMember, time.Time{}, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)
	})
}

func TestChatService_PruneHistory(t *testing.T) {
	ctx := context.Background()

	seedOldMessage := func(t *testing.T, f *chatFixture) {
		t.Helper()
		old := chat.ReconstituteMessage(
			shared.NewID(), f.tenant.ID(), f.general.ID(), f.teamMember,
			"ancient history", time.Now().UTC().Add(-30*24*time.Hour),
		)
		require.NoError(t, f.repo.CreateMessage(ctx, old))
	}

	t.Run("free plan loses old messages", func(t *testing.T) {
		f := newChatFixture(t)
		seedOldMessage(t, f)

		deleted, err := f.svc.PruneHistory(ctx, f.tenant.ID())

		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		assert.Empty(t, f.repo.messages)
	})

	t.Run("plans with chat history are untouched", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.tenant.ChangePlan(tenant.PlanStarter))
		seedOldMessage(t, f)

		deleted, err := f.svc.PruneHistory(ctx, f.tenant.ID())

		require.NoError(t, err)
		assert.Zero(t, deleted)
		assert.Len(t, f.repo.messages, 1)
	})

	t.Run("recent messages survive", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.svc.PostMessage(ctx, f.tenant.ID(), f.general.ID(), f.teamMember,
			PostMessageInput{Body: "fresh"})
		require.NoError(t, err)

		deleted, err := f.svc.PruneHistory(ctx, f.tenant.ID())

		require.NoError(t, err)
		assert.Zero(t, deleted)
		assert.Len(t, f.repo.messages, 1)
	})
}
