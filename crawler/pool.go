package crawler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parMap calls f for every index in [0, n) on at most workers goroutines.
// The first error cancels the context handed to the remaining calls and
// is returned once all started calls finish.
func parMap(ctx context.Context, workers, n int, f func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 || workers > n {
		workers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, i)
		})
	}
	return g.Wait()
}
