package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// WorkerOption is a functional option for configuring the Worker.
type WorkerOption func(*Worker)

// Worker processes background jobs.
type Worker struct {
	server         *asynq.Server
	mux            *asynq.ServeMux
	logger         *logger.Logger
	billingService *app.BillingService
}

// WithBillingService registers billing reconciliation handlers.
func WithBillingService(svc *app.BillingService) WorkerOption {
	return func(w *Worker) {
		w.billingService = svc
	}
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, emailService *app.EmailService, log *logger.Logger, opts ...WorkerOption) (*Worker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 10,
				"email":   5,
				"billing": 3,
			},
		},
	)

	mux := asynq.NewServeMux()

	// Register email handlers
	emailHandler := NewEmailTaskHandler(emailService, log)
	mux.HandleFunc(TypeEmailWelcome, emailHandler.HandleWelcomeEmail)
	mux.HandleFunc(TypeEmailInvitation, emailHandler.HandleInvitationEmail)
	mux.HandleFunc(TypeEmailPaymentFailed, emailHandler.HandlePaymentFailedEmail)
	mux.HandleFunc(TypeEmailCheckInReminder, emailHandler.HandleCheckInReminder)

	w := &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}

	// Apply options
	for _, opt := range opts {
		opt(w)
	}

	// Register billing handlers if the service is provided
	if w.billingService != nil {
		billingHandler := NewBillingTaskHandler(w.billingService, log)
		mux.HandleFunc(TypeBillingResync, billingHandler.HandleResync)
		log.Info("billing task handlers registered")
	}

	return w, nil
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until shutdown.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}
