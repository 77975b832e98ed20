package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
)

func TestNew(t *testing.T) {
	tenantID := shared.NewID()

	t.Run("valid cadence with reminder schedule", func(t *testing.T) {
		c, err := New(tenantID, "Weekly", "0 9 * * MON")

		require.NoError(t, err)
		assert.Equal(t, "Weekly", c.Name())
		assert.Equal(t, "0 9 * * MON", c.ReminderSchedule())
		assert.Equal(t, tenantID, c.TenantID())
	})

	t.Run("empty schedule means no reminders", func(t *testing.T) {
		c, err := New(tenantID, "Quarterly", "")

		require.NoError(t, err)
		assert.Empty(t, c.ReminderSchedule())
		assert.True(t, c.NextReminder(time.Now()).IsZero())
	})

	t.Run("accepts @every form", func(t *testing.T) {
		_, err := New(tenantID, "Daily", "@every 24h")

		assert.NoError(t, err)
	})

	t.Run("rejects invalid cron expression", func(t *testing.T) {
		_, err := New(tenantID, "Broken", "not a cron")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := New(tenantID, "", "0 9 * * MON")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects zero tenant ID", func(t *testing.T) {
		_, err := New(shared.ID{}, "Weekly", "")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestCadence_NextReminder(t *testing.T) {
	tenantID := shared.NewID()

	t.Run("weekly monday morning", func(t *testing.T) {
		c, err := New(tenantID, "Weekly", "0 9 * * MON")
		require.NoError(t, err)

		// Tuesday 2026-09-01; next Monday is the 7th.
		after := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
		next := c.NextReminder(after)

		assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("same day when fire time not yet passed", func(t *testing.T) {
		c, err := New(tenantID, "Weekly", "0 9 * * MON")
		require.NoError(t, err)

		// Monday 2026-09-07 before 09:00.
		after := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
		next := c.NextReminder(after)

		assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), next)
	})
}

func TestCadence_UpdateReminderSchedule(t *testing.T) {
	c, err := New(shared.NewID(), "Weekly", "0 9 * * MON")
	require.NoError(t, err)

	t.Run("replace schedule", func(t *testing.T) {
		err := c.UpdateReminderSchedule("0 10 * * FRI")

		require.NoError(t, err)
		assert.Equal(t, "0 10 * * FRI", c.ReminderSchedule())
	})

	t.Run("empty disables reminders", func(t *testing.T) {
		err := c.UpdateReminderSchedule("")

		require.NoError(t, err)
		assert.True(t, c.NextReminder(time.Now()).IsZero())
	})

	t.Run("invalid expression rejected without clobbering", func(t *testing.T) {
		require.NoError(t, c.UpdateReminderSchedule("0 9 * * MON"))

		err := c.UpdateReminderSchedule("61 25 * * *")

		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "0 9 * * MON", c.ReminderSchedule())
	})
}

func TestNewTimeframe(t *testing.T) {
	tenantID := shared.NewID()
	cadenceID := shared.NewID()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid timeframe", func(t *testing.T) {
		tf, err := NewTimeframe(tenantID, cadenceID, "Q3 2026", start, end)

		require.NoError(t, err)
		assert.Equal(t, "Q3 2026", tf.Name())
		assert.Equal(t, cadenceID, tf.CadenceID())
	})

	t.Run("end must be after start", func(t *testing.T) {
		_, err := NewTimeframe(tenantID, cadenceID, "Q3 2026", end, start)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewTimeframe(tenantID, cadenceID, "Q3 2026", start, start)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("requires cadence and name", func(t *testing.T) {
		_, err := NewTimeframe(tenantID, shared.ID{}, "Q3 2026", start, end)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewTimeframe(tenantID, cadenceID, "", start, end)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestTimeframe_IsCurrent(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	tf, err := NewTimeframe(shared.NewID(), shared.NewID(), "Q3 2026", start, end)
	require.NoError(t, err)

	assert.True(t, tf.IsCurrent(start), "start date is inclusive")
	assert.True(t, tf.IsCurrent(start.AddDate(0, 1, 0)))
	assert.False(t, tf.IsCurrent(end), "end date is exclusive")
	assert.False(t, tf.IsCurrent(start.Add(-time.Hour)))
}
