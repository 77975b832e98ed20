package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/checkin"
	"github.com/northstarhq/api/pkg/domain/keyresult"
	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeKeyResultRepo is an in-memory keyresult.Repository.
type fakeKeyResultRepo struct {
	items map[shared.ID]*keyresult.KeyResult
}

func newFakeKeyResultRepo() *fakeKeyResultRepo {
	return &fakeKeyResultRepo{items: make(map[shared.ID]*keyresult.KeyResult)}
}

func (f *fakeKeyResultRepo) Create(_ context.Context, kr *keyresult.KeyResult) error {
	f.items[kr.ID()] = kr
	return nil
}

func (f *fakeKeyResultRepo) GetByID(_ context.Context, tenantID, id shared.ID) (*keyresult.KeyResult, error) {
	kr, ok := f.items[id]
	if !ok || kr.TenantID() != tenantID {
		return nil, shared.ErrNotFound
	}
	return kr, nil
}

func (f *fakeKeyResultRepo) Update(_ context.Context, kr *keyresult.KeyResult) error {
	f.items[kr.ID()] = kr
	return nil
}

func (f *fakeKeyResultRepo) Delete(_ context.Context, tenantID, id shared.ID) error {
	kr, ok := f.items[id]
	if !ok || kr.TenantID() != tenantID {
		return shared.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeKeyResultRepo) ListByObjective(_ context.Context, tenantID, objectiveID shared.ID) ([]*keyresult.KeyResult, error) {
	var out []*keyresult.KeyResult
	for _, kr := range f.items {
		if kr.TenantID() == tenantID && kr.ObjectiveID() == objectiveID {
			out = append(out, kr)
		}
	}
	return out, nil
}

func (f *fakeKeyResultRepo) ListByTenant(_ context.Context, tenantID shared.ID, limit, _ int) ([]*keyresult.KeyResult, int64, error) {
	var out []*keyresult.KeyResult
	for _, kr := range f.items {
		if kr.TenantID() == tenantID {
			out = append(out, kr)
		}
	}
	if len(out) > limit && limit > 0 {
		out = out[:limit]
	}
	return out, int64(len(out)), nil
}

// fakeCheckInRepo stores check-ins in order.
type fakeCheckInRepo struct {
	items []*checkin.CheckIn
}

func (f *fakeCheckInRepo) Create(_ context.Context, c *checkin.CheckIn) error {
	f.items = append(f.items, c)
	return nil
}

func (f *fakeCheckInRepo) GetByID(_ context.Context, tenantID, id shared.ID) (*checkin.CheckIn, error) {
	for _, c := range f.items {
		if c.ID() == id && c.TenantID() == tenantID {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeCheckInRepo) ListByKeyResult(_ context.Context, tenantID, keyResultID shared.ID, _, _ int) ([]*checkin.CheckIn, int64, error) {
	var out []*checkin.CheckIn
	for _, c := range f.items {
		if c.TenantID() == tenantID && c.KeyResultID() == keyResultID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCheckInRepo) ListByTenant(_ context.Context, tenantID shared.ID, _, _ int) ([]*checkin.CheckIn, int64, error) {
	var out []*checkin.CheckIn
	for _, c := range f.items {
		if c.TenantID() == tenantID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

// stubObjectiveRepo holds a single objective; everything else panics
// via the embedded nil.
type stubObjectiveRepo struct {
	objective.Repository

	obj *objective.Objective
}

func (s *stubObjectiveRepo) GetByID(_ context.Context, tenantID, id shared.ID) (*objective.Objective, error) {
	if s.obj != nil && s.obj.ID() == id && s.obj.TenantID() == tenantID {
		return s.obj, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubObjectiveRepo) Update(_ context.Context, o *objective.Objective) error {
	s.obj = o
	return nil
}

type keyResultFixture struct {
	svc      *KeyResultService
	tenantID shared.ID
	authorID shared.ID
	obj      *objective.Objective
	krRepo   *fakeKeyResultRepo
	ciRepo   *fakeCheckInRepo
}

func newKeyResultFixture(t *testing.T) *keyResultFixture {
	t.Helper()

	tenantID := shared.NewID()
	ownerID := shared.NewID()
	obj, err := objective.New(tenantID, "Grow the user base", ownerID)
	require.NoError(t, err)

	krRepo := newFakeKeyResultRepo()
	ciRepo := &fakeCheckInRepo{}
	svc := NewKeyResultService(krRepo, ciRepo, &stubObjectiveRepo{obj: obj}, logger.NewNop())

	return &keyResultFixture{
		svc:      svc,
		tenantID: tenantID,
		authorID: ownerID,
		obj:      obj,
		krRepo:   krRepo,
		ciRepo:   ciRepo,
	}
}

func (f *keyResultFixture) createMetric(t *testing.T, title string, start, target float64) *keyresult.KeyResult {
	t.Helper()
	kr, err := f.svc.CreateKeyResult(context.Background(), f.tenantID, f.obj.ID(), CreateKeyResultInput{
		Title:       title,
		Kind:        "metric",
		StartValue:  start,
		TargetValue: target,
	})
	require.NoError(t, err)
	return kr
}

func TestKeyResultService_CreateCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("moves key result and records check-in", func(t *testing.T) {
		f := newKeyResultFixture(t)
		kr := f.createMetric(t, "Monthly active users", 0, 1000)

		c, err := f.svc.CreateCheckIn(ctx, f.tenantID, kr.ID(), f.authorID, CreateCheckInInput{
			Value:      250,
			Confidence: 7,
			Note:       "steady growth",
		})

		require.NoError(t, err)
		assert.Equal(t, float64(250), c.Value())
		assert.Equal(t, float64(250), kr.CurrentValue())
		assert.Equal(t, 7, kr.Confidence())
		assert.Equal(t, 25, kr.Progress())
		assert.Len(t, f.ciRepo.items, 1)
	})

	t.Run("cross-tenant key result is not found", func(t *testing.T) {
		f := newKeyResultFixture(t)
		kr := f.createMetric(t, "Monthly active users", 0, 1000)

		_, err := f.svc.CreateCheckIn(ctx, shared.NewID(), kr.ID(), f.authorID, CreateCheckInInput{
			Value:      1,
			Confidence: 5,
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestKeyResultService_ProgressRollup(t *testing.T) {
	ctx := context.Background()

	t.Run("objective progress is the mean of key results", func(t *testing.T) {
		f := newKeyResultFixture(t)
		a := f.createMetric(t, "Monthly active users", 0, 100)
		b := f.createMetric(t, "Paying customers", 0, 100)

		_, err := f.svc.CreateCheckIn(ctx, f.tenantID, a.ID(), f.authorID, CreateCheckInInput{Value: 100, Confidence: 9})
		require.NoError(t, err)
		_, err = f.svc.CreateCheckIn(ctx, f.tenantID, b.ID(), f.authorID, CreateCheckInInput{Value: 50, Confidence: 6})
		require.NoError(t, err)

		assert.Equal(t, 75, f.obj.Progress())
	})

	t.Run("new key result drags progress down", func(t *testing.T) {
		f := newKeyResultFixture(t)
		a := f.createMetric(t, "Monthly active users", 0, 100)

		_, err := f.svc.CreateCheckIn(ctx, f.tenantID, a.ID(), f.authorID, CreateCheckInInput{Value: 100, Confidence: 9})
		require.NoError(t, err)
		require.Equal(t, 100, f.obj.Progress())

		f.createMetric(t, "Paying customers", 0, 100)

		assert.Equal(t, 50, f.obj.Progress())
	})

	t.Run("deleting a key result recomputes from the rest", func(t *testing.T) {
		f := newKeyResultFixture(t)
		a := f.createMetric(t, "Monthly active users", 0, 100)
		b := f.createMetric(t, "Paying customers", 0, 100)

		_, err := f.svc.CreateCheckIn(ctx, f.tenantID, a.ID(), f.authorID, CreateCheckInInput{Value: 100, Confidence: 9})
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteKeyResult(ctx, f.tenantID, b.ID()))

		assert.Equal(t, 100, f.obj.Progress())
	})

	t.Run("milestone completion counts fully", func(t *testing.T) {
		f := newKeyResultFixture(t)
		kr, err := f.svc.CreateKeyResult(ctx, f.tenantID, f.obj.ID(), CreateKeyResultInput{
			Title: "Ship the mobile app",
			Kind:  "milestone",
		})
		require.NoError(t, err)
		require.Equal(t, 0, f.obj.Progress())

		_, err = f.svc.CompleteKeyResult(ctx, f.tenantID, kr.ID())
		require.NoError(t, err)

		assert.Equal(t, 100, f.obj.Progress())
	})
}
