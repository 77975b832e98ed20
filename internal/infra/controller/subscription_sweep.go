package controller

import (
	"context"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/logger"
)

// SubscriptionSweepControllerConfig configures the SubscriptionSweepController.
type SubscriptionSweepControllerConfig struct {
	// Interval is how often to run the sweep.
	// Default: 1 hour.
	Interval time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// SubscriptionSweepController finalizes billing state the provider
// webhooks cannot deliver: subscriptions scheduled for cancellation
// whose paid period has lapsed are moved to canceled, and workspaces
// whose trial ran out without a subscription are moved to past due.
//
// The sweep runs on wall-clock time, so a missed interval is caught up
// on the next run.
type SubscriptionSweepController struct {
	billing *app.BillingService
	config  *SubscriptionSweepControllerConfig
	logger  *logger.Logger
}

// NewSubscriptionSweepController creates a new SubscriptionSweepController.
func NewSubscriptionSweepController(
	billing *app.BillingService,
	config *SubscriptionSweepControllerConfig,
) *SubscriptionSweepController {
	if config == nil {
		config = &SubscriptionSweepControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &SubscriptionSweepController{
		billing: billing,
		config:  config,
		logger:  config.Logger,
	}
}

// Name returns the controller name.
func (c *SubscriptionSweepController) Name() string {
	return "subscription-sweep"
}

// Interval returns the reconciliation interval.
func (c *SubscriptionSweepController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile sweeps lapsed cancellations and expired trials.
func (c *SubscriptionSweepController) Reconcile(ctx context.Context) (int, error) {
	return c.billing.SweepExpired(ctx)
}
