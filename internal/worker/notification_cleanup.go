package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/vitalapp/clinic-api/pkg/logger"
)

// Expirer deletes notifications that are past their expiry.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type NotificationCleanupWorker struct {
	expirer         Expirer
	cleanupInterval time.Duration
	log             *logger.Logger
}

func NewNotificationCleanupWorker(expirer Expirer, cleanupInterval time.Duration, log *logger.Logger) *NotificationCleanupWorker {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &NotificationCleanupWorker{
		expirer:         expirer,
		cleanupInterval: cleanupInterval,
		log:             log.With("notification-cleanup"),
	}
}

// Start sweeps once immediately and then on every tick until ctx ends.
func (w *NotificationCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	w.log.Info("notification cleanup started", "interval", w.cleanupInterval.String())
	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("notification cleanup stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *NotificationCleanupWorker) sweep(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Error(err, "notification cleanup failed")
	}
}

// RunOnce performs a single sweep and reports how many rows went away.
func (w *NotificationCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.expirer.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return n, nil
}
