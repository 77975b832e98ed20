package controller

import (
	"context"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// ChatRetentionControllerConfig configures the ChatRetentionController.
type ChatRetentionControllerConfig struct {
	// Interval is how often to run the retention pass.
	// Default: 24 hours (once a day).
	Interval time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// ChatRetentionController prunes chat messages that fell out of each
// workspace's retention window. Workspaces whose plan includes full
// chat history are skipped by the service; this controller only drives
// the per-tenant pass.
type ChatRetentionController struct {
	chat       *app.ChatService
	tenantRepo tenant.Repository
	config     *ChatRetentionControllerConfig
	logger     *logger.Logger
}

// NewChatRetentionController creates a new ChatRetentionController.
func NewChatRetentionController(
	chat *app.ChatService,
	tenantRepo tenant.Repository,
	config *ChatRetentionControllerConfig,
) *ChatRetentionController {
	if config == nil {
		config = &ChatRetentionControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &ChatRetentionController{
		chat:       chat,
		tenantRepo: tenantRepo,
		config:     config,
		logger:     config.Logger,
	}
}

// Name returns the controller name.
func (c *ChatRetentionController) Name() string {
	return "chat-retention"
}

// Interval returns the reconciliation interval.
func (c *ChatRetentionController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile prunes expired chat history for every active workspace.
// A failure in one workspace does not stop the pass.
func (c *ChatRetentionController) Reconcile(ctx context.Context) (int, error) {
	ids, err := c.tenantRepo.ListActiveTenantIDs(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, id := range ids {
		deleted, err := c.chat.PruneHistory(ctx, id)
		if err != nil {
			c.logger.Error("chat retention prune failed",
				"tenant_id", id.String(),
				"error", err,
			)
			continue
		}
		total += int(deleted)
	}
	return total, nil
}
