package main

import (
	"context"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/internal/infra/controller"
	"github.com/northstarhq/api/internal/infra/jobs"
	"github.com/northstarhq/api/pkg/logger"
)

// Workers holds all background worker instances.
type Workers struct {
	JobWorker         *jobs.Worker
	ControllerManager *controller.Manager
}

// WorkerDeps contains dependencies needed to create workers.
type WorkerDeps struct {
	Config        *config.Config
	Log           *logger.Logger
	Repos         *Repositories
	Services      *Services
	EmailEnqueuer app.EmailJobEnqueuer
}

// NewWorkers initializes all background workers.
func NewWorkers(deps *WorkerDeps) (*Workers, error) {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos
	svc := deps.Services

	w := &Workers{}

	// Asynq worker draining the email and billing queues.
	if cfg.Jobs.Enabled {
		var err error
		w.JobWorker, err = jobs.NewWorker(jobs.WorkerConfig{
			RedisAddr:     cfg.Redis.Addr(),
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			Concurrency:   cfg.Jobs.Concurrency,
		}, svc.Email, log, jobs.WithBillingService(svc.Billing))
		if err != nil {
			return nil, err
		}
	}

	// Reconciliation controllers.
	w.ControllerManager = controller.NewManager(&controller.ManagerConfig{
		Metrics: controller.NewPrometheusMetrics(cfg.App.Name),
		Logger:  log.With("component", "controller-manager"),
	})

	w.ControllerManager.Register(controller.NewInvitationCleanupController(
		svc.Tenant,
		&controller.InvitationCleanupControllerConfig{
			Interval: cfg.Jobs.InvitationCleanupInterval,
			Logger:   log.With("controller", "invitation-cleanup"),
		},
	))

	w.ControllerManager.Register(controller.NewSubscriptionSweepController(
		svc.Billing,
		&controller.SubscriptionSweepControllerConfig{
			Interval: cfg.Jobs.SubscriptionSweepInterval,
			Logger:   log.With("controller", "subscription-sweep"),
		},
	))

	if deps.EmailEnqueuer != nil {
		w.ControllerManager.Register(controller.NewCheckInReminderController(
			repos.Tenant,
			repos.Cadence,
			deps.EmailEnqueuer,
			&controller.CheckInReminderControllerConfig{
				Interval: cfg.Jobs.CheckInReminderInterval,
				Logger:   log.With("controller", "checkin-reminder"),
			},
		))
	}

	w.ControllerManager.Register(controller.NewChatRetentionController(
		svc.Chat,
		repos.Tenant,
		&controller.ChatRetentionControllerConfig{
			Interval: cfg.Jobs.ChatRetentionInterval,
			Logger:   log.With("controller", "chat-retention"),
		},
	))

	return w, nil
}

// Start starts all background workers.
func (w *Workers) Start(ctx context.Context, log *logger.Logger) error {
	if w.JobWorker != nil {
		go func() {
			log.Info("starting job worker")
			if err := w.JobWorker.Start(); err != nil {
				log.Error("job worker error", "error", err)
			}
		}()
	}

	if err := w.ControllerManager.Start(ctx); err != nil {
		return err
	}
	log.Info("controller manager started", "controllers", w.ControllerManager.ControllerNames())

	return nil
}

// Stop stops all background workers gracefully.
func (w *Workers) Stop(log *logger.Logger) {
	if w.JobWorker != nil {
		log.Info("stopping job worker...")
		w.JobWorker.Stop()
		log.Info("job worker stopped")
	}

	log.Info("stopping controller manager...")
	if err := w.ControllerManager.Stop(); err != nil {
		log.Error("controller manager stop error", "error", err)
	}
	log.Info("controller manager stopped")
}
