package dataset

import (
	"context"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/logging"
)

// Reconciler owns the lifecycle of class directories: each one is removed
// recursively and recreated empty. Failures are fatal.
type Reconciler struct {
	Store  blob.Store
	Logger *zap.Logger
}

// Reconcile clears and recreates every dir in order.
func (r Reconciler) Reconcile(ctx context.Context, dirs ...string) error {
	log := logging.OrNop(r.Logger)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Store.DeletePrefix(ctx, dir); err != nil {
			return &DirError{Dir: dir, Op: "clear", Err: err}
		}
		if err := r.Store.EnsurePrefix(ctx, dir); err != nil {
			return &DirError{Dir: dir, Op: "create", Err: err}
		}
		log.Debug("reconciled directory", zap.String("dir", dir))
	}
	return nil
}
