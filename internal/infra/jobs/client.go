package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/northstarhq/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueWelcomeEmail enqueues a welcome email job.
func (c *Client) EnqueueWelcomeEmail(ctx context.Context, payload WelcomeEmailPayload) error {
	task, err := NewWelcomeEmailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue welcome email",
			"email", payload.Email,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("welcome email queued",
		"task_id", info.ID,
		"email", payload.Email,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueInvitationEmail enqueues a workspace invitation email job.
func (c *Client) EnqueueInvitationEmail(ctx context.Context, payload InvitationEmailPayload) error {
	task, err := NewInvitationEmailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue invitation email",
			"email", payload.Email,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("invitation email queued",
		"task_id", info.ID,
		"email", payload.Email,
		"queue", info.Queue,
	)
	return nil
}

// EnqueuePaymentFailedEmail enqueues a payment-failed notice job.
func (c *Client) EnqueuePaymentFailedEmail(ctx context.Context, payload PaymentFailedEmailPayload) error {
	task, err := NewPaymentFailedEmailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue payment-failed email",
			"email", payload.Email,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("payment-failed email queued",
		"task_id", info.ID,
		"email", payload.Email,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueCheckInReminder enqueues a check-in reminder email job.
func (c *Client) EnqueueCheckInReminder(ctx context.Context, payload CheckInReminderPayload) error {
	task, err := NewCheckInReminderTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue check-in reminder",
			"email", payload.Email,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("check-in reminder queued",
		"task_id", info.ID,
		"email", payload.Email,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueBillingResync enqueues a billing reconciliation job.
func (c *Client) EnqueueBillingResync(ctx context.Context, payload BillingResyncPayload) error {
	task, err := NewBillingResyncTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue billing resync",
			"tenant_id", payload.TenantID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("billing resync queued",
		"task_id", info.ID,
		"tenant_id", payload.TenantID,
		"queue", info.Queue,
	)
	return nil
}
