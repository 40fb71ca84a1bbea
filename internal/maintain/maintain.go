// Public domain.

// Package maintain edits records already in the store: purging whole
// nights and flagging bad data.
package maintain

import (
	"context"
	"fmt"
	"runtime"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soniakeys/apass/internal/store"
)

// Error is the class of errors from this package.
var Error = errs.Class("maintain")

// forZones locks each zone in turn and calls f, jobs zones at a time.
// Failures are logged and returned together.
func forZones(ctx context.Context, s *store.Store, ids []int, jobs int, f func(u *store.Unit) error) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	fails := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			u, err := s.Open(ctx, id)
			if err != nil {
				fails[i] = err
				return nil
			}
			fails[i] = errs.Combine(f(u), u.Close())
			return nil
		})
	}
	_ = g.Wait()
	var group errs.Group
	for i, err := range fails {
		if err != nil {
			s.Log.Error("zone failed", zap.Int("zone", ids[i]), zap.Error(err))
			s.Metrics.Failed()
			group.Add(fmt.Errorf("zone %d: %w", ids[i], err))
		}
	}
	return group.Err()
}
