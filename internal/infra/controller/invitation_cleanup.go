package controller

import (
	"context"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/logger"
)

// InvitationCleanupControllerConfig configures the InvitationCleanupController.
type InvitationCleanupControllerConfig struct {
	// Interval is how often to run the cleanup.
	// Default: 1 hour.
	Interval time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// InvitationCleanupController deletes workspace invitations whose
// expiry has passed. Expired invitations are already rejected at
// accept time; this controller keeps the table from growing unbounded
// and frees the reserved member-quota seats.
type InvitationCleanupController struct {
	tenants *app.TenantService
	config  *InvitationCleanupControllerConfig
	logger  *logger.Logger
}

// NewInvitationCleanupController creates a new InvitationCleanupController.
func NewInvitationCleanupController(
	tenants *app.TenantService,
	config *InvitationCleanupControllerConfig,
) *InvitationCleanupController {
	if config == nil {
		config = &InvitationCleanupControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &InvitationCleanupController{
		tenants: tenants,
		config:  config,
		logger:  config.Logger,
	}
}

// Name returns the controller name.
func (c *InvitationCleanupController) Name() string {
	return "invitation-cleanup"
}

// Interval returns the reconciliation interval.
func (c *InvitationCleanupController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile deletes expired invitations.
func (c *InvitationCleanupController) Reconcile(ctx context.Context) (int, error) {
	deleted, err := c.tenants.CleanupExpiredInvitations(ctx)
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}
