package controller

import (
	"context"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/domain/cadence"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// CheckInReminderControllerConfig configures the CheckInReminderController.
type CheckInReminderControllerConfig struct {
	// Interval is how often to check for due reminders.
	// Default: 1 minute, matching cron's minute resolution.
	Interval time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// CheckInReminderController fires cadence check-in reminder emails.
// Each run scans every workspace's cadences for reminder schedules
// that came due since the previous run and enqueues one reminder email
// per member. If the controller was down across several occurrences,
// a single reminder is sent for the missed window rather than a
// backlog.
//
// Reconcile is only ever called from the manager's single goroutine,
// so the last-run watermark needs no locking.
type CheckInReminderController struct {
	tenantRepo  tenant.Repository
	cadenceRepo cadence.Repository
	enqueuer    app.EmailJobEnqueuer
	config      *CheckInReminderControllerConfig
	logger      *logger.Logger

	lastRun time.Time
}

// NewCheckInReminderController creates a new CheckInReminderController.
func NewCheckInReminderController(
	tenantRepo tenant.Repository,
	cadenceRepo cadence.Repository,
	enqueuer app.EmailJobEnqueuer,
	config *CheckInReminderControllerConfig,
) *CheckInReminderController {
	if config == nil {
		config = &CheckInReminderControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &CheckInReminderController{
		tenantRepo:  tenantRepo,
		cadenceRepo: cadenceRepo,
		enqueuer:    enqueuer,
		config:      config,
		logger:      config.Logger,
		lastRun:     time.Now().UTC(),
	}
}

// Name returns the controller name.
func (c *CheckInReminderController) Name() string {
	return "checkin-reminder"
}

// Interval returns the reconciliation interval.
func (c *CheckInReminderController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile enqueues reminder emails for every cadence whose schedule
// fired in the (lastRun, now] window. Returns the number of emails
// enqueued.
func (c *CheckInReminderController) Reconcile(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	since := c.lastRun
	c.lastRun = now

	ids, err := c.tenantRepo.ListActiveTenantIDs(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range ids {
		cadences, err := c.cadenceRepo.ListByTenant(ctx, id)
		if err != nil {
			c.logger.Error("failed to list cadences for reminders",
				"tenant_id", id.String(),
				"error", err,
			)
			continue
		}

		var due []*cadence.Cadence
		for _, cad := range cadences {
			next := cad.NextReminder(since)
			if !next.IsZero() && !next.After(now) {
				due = append(due, cad)
			}
		}
		if len(due) == 0 {
			continue
		}

		t, err := c.tenantRepo.GetByID(ctx, id)
		if err != nil {
			c.logger.Error("failed to load workspace for reminders",
				"tenant_id", id.String(),
				"error", err,
			)
			continue
		}
		members, err := c.tenantRepo.ListMembersWithUserInfo(ctx, id)
		if err != nil {
			c.logger.Error("failed to list members for reminders",
				"tenant_id", id.String(),
				"error", err,
			)
			continue
		}

		for _, cad := range due {
			for _, m := range members {
				payload := app.CheckInReminderJobPayload{
					Email:         m.Email,
					Name:          m.Name,
					WorkspaceName: t.Name(),
					WorkspaceSlug: t.Slug(),
					CadenceName:   cad.Name(),
				}
				if err := c.enqueuer.EnqueueCheckInReminder(ctx, payload); err != nil {
					c.logger.Error("failed to enqueue check-in reminder",
						"tenant_id", id.String(),
						"cadence_id", cad.ID().String(),
						"error", err,
					)
					continue
				}
				enqueued++
			}
			c.logger.Info("check-in reminders enqueued",
				"tenant_id", id.String(),
				"cadence", cad.Name(),
				"members", len(members),
			)
		}
	}
	return enqueued, nil
}
