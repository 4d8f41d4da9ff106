package workers

import (
	"context"
	"time"

	"scipedia/internal/config"
	"scipedia/internal/logger"
	"scipedia/internal/repositories"
	"scipedia/internal/storage"
)

// ReconcileWorker periodically sweeps object storage for orphans: objects
// that no user or agent record references. Partial failures in the upload
// workflow leave these behind, since storage and the database share no
// transaction.
type ReconcileWorker struct {
	storage  storage.ObjectStorage
	agents   repositories.AgentRepository
	users    repositories.UserRepository
	interval time.Duration
	grace    time.Duration
	delete   bool
}

func NewReconcileWorker(
	store storage.ObjectStorage,
	agents repositories.AgentRepository,
	users repositories.UserRepository,
	cfg config.ReconcileConfig,
) *ReconcileWorker {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	grace := time.Duration(cfg.GraceMinutes) * time.Minute
	if grace <= 0 {
		grace = 30 * time.Minute
	}
	return &ReconcileWorker{
		storage:  store,
		agents:   agents,
		users:    users,
		interval: interval,
		grace:    grace,
		delete:   cfg.DeleteOrphans,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *ReconcileWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep lists every stored object and reports the ones no record points at.
// Objects younger than the grace window are skipped: an upload may have
// stored its object but not yet linked it.
func (w *ReconcileWorker) sweep(ctx context.Context) {
	objects, err := w.storage.ListObjects(ctx)
	if err != nil {
		logger.WithError(err).Error("Reconcile sweep: listing objects failed")
		return
	}

	cutoff := time.Now().Add(-w.grace)
	var orphans, deleted int

	for _, obj := range objects {
		if ctx.Err() != nil {
			return
		}
		if !obj.UploadedAt.IsZero() && obj.UploadedAt.After(cutoff) {
			continue
		}
		referenced, err := w.isReferenced(obj.URL)
		if err != nil {
			logger.WithError(err).Error("Reconcile sweep: reference check failed", "url", obj.URL)
			continue
		}
		if referenced {
			continue
		}

		orphans++
		logger.Warn("Reconcile sweep: orphaned object", "name", obj.Name, "url", obj.URL)

		if w.delete {
			if err := w.storage.DeleteObject(ctx, obj.Name, obj.FileID); err != nil {
				logger.WithError(err).Error("Reconcile sweep: orphan delete failed", "name", obj.Name)
				continue
			}
			deleted++
		}
	}

	if orphans > 0 || deleted > 0 {
		logger.Info("Reconcile sweep finished",
			"objects", len(objects), "orphans", orphans, "deleted", deleted)
	}
}

func (w *ReconcileWorker) isReferenced(url string) (bool, error) {
	refAgents, err := w.agents.IsAttachmentURLReferenced(url)
	if err != nil {
		return false, err
	}
	if refAgents {
		return true, nil
	}
	return w.users.IsAttachmentURLReferenced(url)
}
