package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sweepTimeout = 30 * time.Second

// ExpiredSweeper deletes rows whose expiry has passed and reports how many went.
type ExpiredSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweeperFunc adapts a function to ExpiredSweeper.
type SweeperFunc func(ctx context.Context) (int64, error)

func (f SweeperFunc) DeleteExpired(ctx context.Context) (int64, error) {
	return f(ctx)
}

// Task names a sweeper for logging.
type Task struct {
	Name    string
	Sweeper ExpiredSweeper
}

// CleanupManager periodically runs every task in order.
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(logger *slog.Logger, interval time.Duration, tasks ...Task) *CleanupManager {
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once immediately, then on every tick until Stop or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	for _, task := range cm.tasks {
		cm.runTask(ctx, task)
	}
}

func (cm *CleanupManager) runTask(ctx context.Context, task Task) {
	cleanupCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	rowsDeleted, err := task.Sweeper.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("cleanup task failed", slog.String("task", task.Name), slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("cleanup task swept rows", slog.String("task", task.Name), slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
