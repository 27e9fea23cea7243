package workers

import (
	"context"
	"time"

	"forum_backend/internal/logger"
	"forum_backend/internal/repositories"

	"gorm.io/gorm"
)

// RetentionWorker deletes action log entries older than maxAge on a fixed
// interval. Comments, mentions and notifications are never touched.
type RetentionWorker struct {
	db       *gorm.DB
	logs     repositories.ActionLogRepository
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewRetentionWorker(db *gorm.DB, logs repositories.ActionLogRepository, maxAge, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{
		db:       db,
		logs:     logs,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.maxAge <= 0 {
		logger.Info("Retention worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Error pruning action log")
		}

		select {
		case <-ctx.Done():
			logger.Info("Retention worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and returns the number of deleted entries.
func (w *RetentionWorker) Sweep(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC().Add(-w.maxAge)

	deleted, err := w.logs.DeleteBefore(w.db.WithContext(ctx), cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Info("Pruned action log", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
