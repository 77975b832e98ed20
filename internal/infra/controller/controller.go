// Package controller runs periodic reconcile loops for background
// upkeep: expired invitation cleanup, subscription sweeps, check-in
// reminders, and chat retention pruning. Every Reconcile must be
// idempotent; a loop that fires twice, or after a missed interval,
// has to converge to the same state.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/northstarhq/api/pkg/logger"
)

// Controller is one reconcile loop. Reconcile returns how many items
// it acted on so quiet runs can be logged at debug level.
type Controller interface {
	Name() string
	Interval() time.Duration
	Reconcile(ctx context.Context) (int, error)
}

// Metrics receives per-run observations from the manager.
type Metrics interface {
	RecordReconcile(controller string, itemsProcessed int, duration time.Duration, err error)
	SetControllerRunning(controller string, running bool)
	IncrementReconcileErrors(controller string)
	SetLastReconcileTime(controller string, t time.Time)
}

// Manager runs each registered controller on its own goroutine and
// ticker. A controller that errors keeps its loop; failures are
// logged and counted, never fatal to the others.
type Manager struct {
	controllers []Controller
	metrics     Metrics
	logger      *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// ManagerConfig configures the controller manager. Metrics may be
// nil; Logger may not.
type ManagerConfig struct {
	Metrics Metrics
	Logger  *logger.Logger
}

// NewManager creates an empty manager. Register controllers before
// calling Start.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		stopCh:  make(chan struct{}),
	}
}

// Register adds a controller. Registration after Start is a
// programming error and panics.
func (m *Manager) Register(c Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		panic("cannot register controllers while manager is running")
	}

	m.controllers = append(m.controllers, c)
	m.logger.Info("controller registered", "name", c.Name(), "interval", c.Interval().String())
}

// Start launches every registered controller.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("controller manager already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("starting controller manager", "controller_count", len(m.controllers))

	for _, c := range m.controllers {
		m.wg.Add(1)
		go m.run(ctx, c)
	}
	return nil
}

// Stop signals every loop and waits for them to drain.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.logger.Info("stopping controller manager")
	m.wg.Wait()
	m.logger.Info("controller manager stopped")
	return nil
}

// ControllerNames lists the registered controllers, for startup logs.
func (m *Manager) ControllerNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.controllers))
	for i, c := range m.controllers {
		names[i] = c.Name()
	}
	return names
}

func (m *Manager) run(ctx context.Context, c Controller) {
	defer m.wg.Done()

	name := c.Name()
	m.logger.Info("starting controller", "name", name, "interval", c.Interval())

	if m.metrics != nil {
		m.metrics.SetControllerRunning(name, true)
	}

	// First pass immediately, so a restart does not wait a full
	// interval to catch up on overdue work.
	m.reconcileOnce(ctx, c)

	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("controller stopping (context canceled)", "name", name)
			if m.metrics != nil {
				m.metrics.SetControllerRunning(name, false)
			}
			return
		case <-m.stopCh:
			m.logger.Info("controller stopping (manager stopped)", "name", name)
			if m.metrics != nil {
				m.metrics.SetControllerRunning(name, false)
			}
			return
		case <-ticker.C:
			m.reconcileOnce(ctx, c)
		}
	}
}

// reconcileOnce runs one pass under a deadline of one interval, so a
// stuck pass cannot pile up behind the ticker.
func (m *Manager) reconcileOnce(ctx context.Context, c Controller) {
	name := c.Name()
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, c.Interval())
	defer cancel()

	count, err := c.Reconcile(runCtx)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		m.logger.Error("controller reconcile failed", "name", name, "duration", elapsed, "error", err)
		if m.metrics != nil {
			m.metrics.IncrementReconcileErrors(name)
		}
	case count > 0:
		m.logger.Info("controller reconcile completed", "name", name, "items_processed", count, "duration", elapsed)
	default:
		m.logger.Debug("controller reconcile completed (no items)", "name", name, "duration", elapsed)
	}

	if m.metrics != nil {
		m.metrics.RecordReconcile(name, count, elapsed, err)
		m.metrics.SetLastReconcileTime(name, time.Now())
	}
}
