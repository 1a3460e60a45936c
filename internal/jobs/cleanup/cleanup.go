package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/model"
)

const (
	defaultInterval  = 6 * time.Hour
	defaultGrace     = 24 * time.Hour
	defaultBatchSize = 100
)

// OrphanStore lists uploads no content row points at.
type OrphanStore interface {
	ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]model.MediaObject, error)
	DeleteObject(ctx context.Context, id uuid.UUID) error
}

// Discarder removes an upload and its thumbnail from object storage.
type Discarder interface {
	Discard(ctx context.Context, obj model.MediaObject) error
}

type Options struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// Job removes uploads that were never attached to content, or whose content
// was deleted, once they are older than the grace period.
type Job struct {
	store     OrphanStore
	storage   Discarder
	interval  time.Duration
	grace     time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func New(store OrphanStore, storage Discarder, opts Options, logger *zap.Logger) *Job {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:     store,
		storage:   storage,
		interval:  opts.Interval,
		grace:     opts.Grace,
		batchSize: opts.BatchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("media cleanup failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes one batch of orphans and reports how many rows were removed.
// A storage failure skips the object so the next sweep retries it.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	if j.store == nil || j.storage == nil {
		return 0, nil
	}

	cutoff := j.now().Add(-j.grace)
	orphans, err := j.store.ListOrphans(ctx, cutoff, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list orphan media: %w", err)
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	deleted := 0
	for _, obj := range orphans {
		if err := j.storage.Discard(ctx, obj); err != nil {
			j.logger.Warn("failed to delete orphan object from storage", zap.Error(err), zap.String("object_key", obj.ObjectKey))
			continue
		}
		if err := j.store.DeleteObject(ctx, obj.ID); err != nil {
			j.logger.Warn("failed to delete orphan media row", zap.Error(err), zap.String("id", obj.ID.String()))
			continue
		}
		deleted++
	}

	j.logger.Info("media cleanup completed", zap.Int("deleted", deleted), zap.Int("candidates", len(orphans)))
	return deleted, nil
}
