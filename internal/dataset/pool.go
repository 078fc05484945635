package dataset

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn for every key. With workers <= 1 keys are handled in order
// on the calling goroutine; otherwise at most workers run at once. The first
// error cancels the remaining work. Context cancellation is checked before
// each key.
func forEach(ctx context.Context, workers int, keys []string, fn func(ctx context.Context, key string) error) error {
	if workers <= 1 {
		for _, k := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, k); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, k)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
