package keyresult

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
)

func newMetricKR(t *testing.T, start, target float64) *KeyResult {
	t.Helper()
	kr, err := New(shared.NewID(), shared.NewID(), "Monthly active users", KindMetric, start, target, "users")
	require.NoError(t, err)
	return kr
}

func TestNew(t *testing.T) {
	tenantID := shared.NewID()
	objectiveID := shared.NewID()

	t.Run("metric starts at start value with mid confidence", func(t *testing.T) {
		kr, err := New(tenantID, objectiveID, "Revenue", KindMetric, 100, 500, "USD")

		require.NoError(t, err)
		assert.Equal(t, KindMetric, kr.Kind())
		assert.Equal(t, float64(100), kr.CurrentValue())
		assert.Equal(t, MaxConfidence/2, kr.Confidence())
		assert.Equal(t, 0, kr.Progress())
	})

	t.Run("milestone normalizes values to 0 and 1", func(t *testing.T) {
		kr, err := New(tenantID, objectiveID, "Ship v2", KindMilestone, 42, 42, "")

		require.NoError(t, err)
		assert.Equal(t, float64(0), kr.StartValue())
		assert.Equal(t, float64(1), kr.TargetValue())
		assert.Equal(t, 0, kr.Progress())
	})

	t.Run("metric rejects equal start and target", func(t *testing.T) {
		_, err := New(tenantID, objectiveID, "Flat", KindMetric, 10, 10, "")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		_, err := New(tenantID, objectiveID, "Bad", Kind("task"), 0, 1, "")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := New(tenantID, objectiveID, "", KindMetric, 0, 1, "")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestKeyResult_Progress(t *testing.T) {
	t.Run("metric interpolation", func(t *testing.T) {
		tests := []struct {
			name    string
			start   float64
			target  float64
			current float64
			want    int
		}{
			{"at start", 0, 100, 0, 0},
			{"halfway", 0, 100, 50, 50},
			{"at target", 0, 100, 100, 100},
			{"overshoot clamps to 100", 0, 100, 150, 100},
			{"regression clamps to 0", 50, 100, 20, 0},
			{"decreasing target", 200, 100, 150, 50},
			{"nonzero start", 1000, 2000, 1250, 25},
			{"rounds to nearest", 0, 3, 1, 33},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				kr := newMetricKR(t, tt.start, tt.target)
				require.NoError(t, kr.Record(tt.current, 5))
				assert.Equal(t, tt.want, kr.Progress())
			})
		}
	})

	t.Run("milestone is all or nothing", func(t *testing.T) {
		kr, err := New(shared.NewID(), shared.NewID(), "Launch", KindMilestone, 0, 1, "")
		require.NoError(t, err)
		assert.Equal(t, 0, kr.Progress())

		require.NoError(t, kr.Complete())
		assert.Equal(t, 100, kr.Progress())
	})
}

func TestKeyResult_Record(t *testing.T) {
	kr := newMetricKR(t, 0, 100)

	t.Run("updates value and confidence", func(t *testing.T) {
		err := kr.Record(40, 8)

		require.NoError(t, err)
		assert.Equal(t, float64(40), kr.CurrentValue())
		assert.Equal(t, 8, kr.Confidence())
	})

	t.Run("confidence out of range", func(t *testing.T) {
		assert.ErrorIs(t, kr.Record(50, -1), shared.ErrValidation)
		assert.ErrorIs(t, kr.Record(50, MaxConfidence+1), shared.ErrValidation)
	})
}

func TestKeyResult_UpdateTarget(t *testing.T) {
	t.Run("metric target change", func(t *testing.T) {
		kr := newMetricKR(t, 0, 100)

		require.NoError(t, kr.UpdateTarget(200))
		assert.Equal(t, float64(200), kr.TargetValue())
	})

	t.Run("target equal to start rejected", func(t *testing.T) {
		kr := newMetricKR(t, 10, 100)

		assert.ErrorIs(t, kr.UpdateTarget(10), shared.ErrValidation)
	})

	t.Run("milestone target is fixed", func(t *testing.T) {
		kr, err := New(shared.NewID(), shared.NewID(), "Launch", KindMilestone, 0, 1, "")
		require.NoError(t, err)

		assert.ErrorIs(t, kr.UpdateTarget(2), shared.ErrValidation)
	})
}

func TestKeyResult_Complete(t *testing.T) {
	t.Run("only milestones complete directly", func(t *testing.T) {
		kr := newMetricKR(t, 0, 100)

		assert.ErrorIs(t, kr.Complete(), shared.ErrValidation)
	})
}
