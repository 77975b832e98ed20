package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
)

// TypeBillingResync re-reads a subscription from the billing provider
// and reconciles local state. Enqueued when applying a webhook fails.
const TypeBillingResync = "billing:resync"

// BillingResyncPayload identifies the workspace to reconcile.
type BillingResyncPayload struct {
	TenantID string `json:"tenant_id"`
}

// NewBillingResyncTask creates a new billing resync task. Retries are
// spread out since the provider was likely the failing party.
func NewBillingResyncTask(payload BillingResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal billing resync payload: %w", err)
	}
	return asynq.NewTask(
		TypeBillingResync,
		data,
		asynq.MaxRetry(5),
		asynq.Timeout(60*time.Second),
		asynq.Queue("billing"),
		asynq.ProcessIn(30*time.Second),
	), nil
}

// BillingTaskHandler handles billing reconciliation tasks.
type BillingTaskHandler struct {
	billingService *app.BillingService
	logger         *logger.Logger
}

// NewBillingTaskHandler creates a new billing task handler.
func NewBillingTaskHandler(billingService *app.BillingService, log *logger.Logger) *BillingTaskHandler {
	return &BillingTaskHandler{
		billingService: billingService,
		logger:         log.With("handler", "billing_tasks"),
	}
}

// HandleResync processes billing resync tasks.
func (h *BillingTaskHandler) HandleResync(ctx context.Context, t *asynq.Task) error {
	var payload BillingResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	tenantID, err := shared.IDFromString(payload.TenantID)
	if err != nil {
		// Malformed ID will never succeed; drop the task.
		h.logger.Error("invalid tenant id in resync task", "tenant_id", payload.TenantID)
		return nil
	}

	if err := h.billingService.Resync(ctx, tenantID); err != nil {
		h.logger.Error("billing resync failed",
			"tenant_id", payload.TenantID,
			"error", err,
		)
		return err
	}

	h.logger.Info("billing resync completed", "tenant_id", payload.TenantID)
	return nil
}
