// Public domain.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soniakeys/apass/internal/sphere"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/zone"
	"github.com/soniakeys/apass/internal/zoneindex"
)

// Engine reconciles built zones against their neighbors.
type Engine struct {
	Store *store.Store
	Graph zoneindex.Graph
	Jobs  int // concurrent zones within a wave, GOMAXPROCS if zero
}

// New returns an engine using the adjacency of the store's index.
func New(s *store.Store, jobs int) *Engine {
	return &Engine{Store: s, Graph: s.Index.Adjacency(), Jobs: jobs}
}

// Result describes one primary zone.
type Result struct {
	Zone     int
	Merged   int   // containers taken from neighbors
	Cleared  int   // border containers that saw every zone they reach
	Pending  int   // border containers still waiting on a neighbor
	Deferred []int // neighbors skipped for lack of data
	Saved    []int // zones rewritten, primary first
}

// Zone reconciles the border containers of primary.  The primary and its
// neighbors are locked for the whole unit of work, neighbors defaults to
// the adjacency list.  A neighbor with no data is skipped and the
// containers reaching it stay on the border list for a later run.
//
// Every zone that changed is saved before any lock is released, the
// primary first.
func (e *Engine) Zone(ctx context.Context, primary int, neighbors []int) (res Result, err error) {
	res.Zone = primary
	if neighbors == nil {
		neighbors = e.Graph[primary]
	}
	us, err := e.Store.OpenAll(ctx, append([]int{primary}, neighbors...))
	if err != nil {
		return res, err
	}
	defer func() { err = errs.Combine(err, store.CloseAll(us)) }()

	pu := us[primary]
	if err := pu.Load(); err != nil {
		if errors.Is(err, store.ErrNoData) {
			return res, nil
		}
		return res, err
	}
	w := &work{e: e, us: us, res: &res, zones: map[int]*zone.Zone{}, touched: map[int]bool{}}
	for _, c := range pu.Zone.Containers() {
		if !c.Border || c.Len() == 0 {
			continue
		}
		complete, err := w.container(c)
		if err != nil {
			return res, err
		}
		if complete {
			c.Border = false
			res.Cleared++
		} else {
			res.Pending++
		}
	}
	if res.Merged == 0 && res.Cleared == 0 {
		return res, nil
	}
	saved := []int{primary}
	for id := range w.touched {
		saved = append(saved, id)
	}
	sort.Ints(saved[1:])
	for _, id := range saved {
		if err := us[id].Save(); err != nil {
			return res, err
		}
		res.Saved = append(res.Saved, id)
	}
	return res, nil
}

type work struct {
	e       *Engine
	us      map[int]*store.Unit
	res     *Result
	zones   map[int]*zone.Zone // loaded neighbors, nil for deferred
	touched map[int]bool
}

// container merges into c every neighbor container it overlaps, growing
// c and probing again until nothing more is taken.  It reports whether
// every zone c reaches was available.
func (w *work) container(c *zone.Container) (bool, error) {
	x := w.e.Store.Index
	complete := true
	for {
		took := 0
		for _, p := range c.Rect.Corners() {
			id, err := x.ZoneID(sphere.Wrap(p.X, p.Y))
			if err != nil {
				return false, Error.Wrap(err)
			}
			if id == w.res.Zone {
				continue
			}
			z, err := w.neighbor(id)
			if err != nil {
				return false, err
			}
			if z == nil {
				complete = false
				continue
			}
			for _, l := range z.Near(c.Rect) {
				for _, o := range l.Overlapping(c.Rect) {
					c.Merge(o)
					z.Remove(o)
					w.touched[id] = true
					took++
				}
			}
		}
		if took == 0 {
			return complete, nil
		}
		w.res.Merged += took
		w.e.Store.Metrics.AddMerged(took)
	}
}

// neighbor loads an adjacent zone on first use.  It returns nil for a zone
// with no data or one outside the lock set.
func (w *work) neighbor(id int) (*zone.Zone, error) {
	if z, ok := w.zones[id]; ok {
		return z, nil
	}
	log := w.e.Store.Log
	u, ok := w.us[id]
	if !ok {
		log.Warn("container reaches a zone that is not locked",
			zap.Int("zone", w.res.Zone), zap.Int("neighbor", id))
		w.zones[id] = nil
		return nil, nil
	}
	switch err := u.Load(); {
	case errors.Is(err, store.ErrNoData):
		log.Info("neighbor has no data, deferring",
			zap.Int("zone", w.res.Zone), zap.Int("neighbor", id))
		w.e.Store.Metrics.Deferred()
		w.res.Deferred = append(w.res.Deferred, id)
		w.zones[id] = nil
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("neighbor %d: %w", id, err)
	}
	w.zones[id] = u.Zone
	return u.Zone, nil
}

// Run reconciles waves in order, zones within a wave concurrently.  A
// failed zone is logged and the run goes on, the failures are returned
// together at the end.  Results are in wave order.
func (e *Engine) Run(ctx context.Context, waves [][]int) ([]Result, error) {
	jobs := e.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	log := e.Store.Log
	var all []Result
	var failed errs.Group
	for i, wave := range waves {
		results := make([]Result, len(wave))
		fails := make([]error, len(wave))
		var g errgroup.Group
		g.SetLimit(jobs)
		for j, id := range wave {
			j, id := j, id
			g.Go(func() error {
				results[j], fails[j] = e.Zone(ctx, id, nil)
				return nil
			})
		}
		_ = g.Wait()
		for j, err := range fails {
			r := results[j]
			if err != nil {
				log.Error("zone failed", zap.Int("zone", r.Zone), zap.Error(err))
				e.Store.Metrics.Failed()
				failed.Add(fmt.Errorf("zone %d: %w", r.Zone, err))
				continue
			}
			e.Store.Metrics.Reconciled()
			all = append(all, r)
		}
		log.Debug("wave done", zap.Int("wave", i), zap.Int("zones", len(wave)))
		if err := ctx.Err(); err != nil {
			return all, errs.Combine(err, failed.Err())
		}
	}
	return all, failed.Err()
}
