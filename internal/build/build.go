// Public domain.

// Package build turns raw zone files into container trees.
package build

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soniakeys/apass/internal/reconcile"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/zone"
)

// Result describes one built zone.
type Result struct {
	Zone       int
	Records    int
	Containers int
	Border     int // border containers
	Merged     int // containers merged away while building
	Dropped    int // raw records outside the zone
}

// Zone rebuilds one zone from its raw file, replacing any container data,
// topology and border file.  A zone with an empty raw file is left alone.
func Zone(ctx context.Context, s *store.Store, id int) (res Result, err error) {
	res.Zone = id
	u, err := s.Open(ctx, id)
	if err != nil {
		return res, err
	}
	defer func() { err = errs.Combine(err, u.Close()) }()

	recs, err := u.ReadRaw()
	if err != nil || len(recs) == 0 {
		return res, err
	}
	if err := u.Create(); err != nil {
		return res, err
	}
	z := u.Zone
	for _, rec := range recs {
		switch err := z.Insert(rec); {
		case errors.Is(err, zone.ErrOutside):
			res.Dropped++
			s.Log.Debug("record outside zone", zap.Int("zone", id),
				zap.Float64("ra", rec.RA), zap.Float64("dec", rec.Dec))
		case err != nil:
			return res, err
		}
	}
	if _, err := reconcile.DetectBorders(z, s.Index); err != nil {
		return res, err
	}
	if err := u.Save(); err != nil {
		return res, err
	}
	res.Records = len(recs) - res.Dropped
	res.Containers = len(z.Containers())
	res.Border = len(u.Border())
	res.Merged = z.Merges
	s.Metrics.AddMerged(z.Merges)
	if res.Dropped > 0 {
		s.Log.Warn("records outside zone dropped", zap.Int("zone", id), zap.Int("dropped", res.Dropped))
	}
	return res, nil
}

// All builds zones concurrently, jobs at a time.  A failed zone does not
// stop the rest, failures are returned together.  Results are in the
// order of ids.
func All(ctx context.Context, s *store.Store, ids []int, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(ids))
	fails := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i], fails[i] = Zone(ctx, s, id)
			return nil
		})
	}
	_ = g.Wait()
	var out []Result
	var failed errs.Group
	for i, err := range fails {
		if err != nil {
			s.Log.Error("build failed", zap.Int("zone", ids[i]), zap.Error(err))
			s.Metrics.Failed()
			failed.Add(fmt.Errorf("zone %d: %w", ids[i], err))
			continue
		}
		r := results[i]
		s.Log.Info("built", zap.Int("zone", r.Zone), zap.Int("records", r.Records),
			zap.Int("containers", r.Containers), zap.Int("border", r.Border))
		out = append(out, r)
	}
	return out, failed.Err()
}
