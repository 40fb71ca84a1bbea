// Public domain.

package reconcile_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/apass/internal/build"
	"github.com/soniakeys/apass/internal/flock"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/reconcile"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/zoneindex"
)

var fast = flock.Options{Timeout: 50 * time.Millisecond, Retry: 5 * time.Millisecond}

func newStore(t *testing.T) *store.Store {
	dir := t.TempDir()
	require.NoError(t, store.Layout{Dir: dir}.WriteIndex(zoneindex.Build(3, 85)))
	s, err := store.New(dir, 3, fast, nil)
	require.NoError(t, err)
	return s
}

// ingest routes records to raw files and builds the zones they land in.
func ingest(t *testing.T, s *store.Store, recs ...fredbin.Record) []int {
	ctx := context.Background()
	byZone := map[int][]fredbin.Record{}
	for _, r := range recs {
		id, err := s.Index.ZoneID(r.RA, r.Dec)
		require.NoError(t, err)
		byZone[id] = append(byZone[id], r)
	}
	var ids []int
	for id, rs := range byZone {
		u, err := s.Open(ctx, id)
		require.NoError(t, err)
		require.NoError(t, u.AppendRaw(rs))
		require.NoError(t, u.Close())
		ids = append(ids, id)
	}
	sort.Ints(ids)
	_, err := build.All(ctx, s, ids, 2)
	require.NoError(t, err)
	return ids
}

func rec(ra, dec float64) fredbin.Record {
	return fredbin.Record{RA: ra, Dec: dec, UseData: true}
}

// containers loads zones and returns their container sizes.
func containers(t *testing.T, s *store.Store, ids ...int) map[int][]int {
	m := map[int][]int{}
	for _, id := range ids {
		u, err := s.Open(context.Background(), id)
		require.NoError(t, err)
		require.NoError(t, u.Load())
		m[id] = []int{}
		for _, c := range u.Zone.Containers() {
			m[id] = append(m[id], c.Len())
		}
		require.NoError(t, u.Close())
	}
	return m
}

func run(t *testing.T, s *store.Store, ids []int) []reconcile.Result {
	e := reconcile.New(s, 2)
	res, err := e.Run(context.Background(), reconcile.Schedule(e.Graph, ids))
	require.NoError(t, err)
	return res
}

func merged(rs []reconcile.Result) int {
	n := 0
	for _, r := range rs {
		n += r.Merged
	}
	return n
}

func TestScenarioB(t *testing.T) {
	s := newStore(t)
	ids := ingest(t, s, rec(359.9998, 0), rec(0.0002, 0))
	require.Len(t, ids, 2)
	// one star, two zones, one container in each
	assert.Equal(t, map[int][]int{ids[0]: {1}, ids[1]: {1}}, containers(t, s, ids...))

	res := run(t, s, ids)
	assert.Equal(t, 1, merged(res))
	assert.Equal(t, map[int][]int{ids[0]: {2}, ids[1]: {}}, containers(t, s, ids...))

	// the rows below have no data, so the container stays on the border
	u, err := s.Open(context.Background(), ids[0])
	require.NoError(t, err)
	require.NoError(t, u.Load())
	assert.Len(t, u.Border(), 1)
	require.NoError(t, u.Close())

	// idempotent
	assert.Zero(t, merged(run(t, s, ids)))
	assert.Equal(t, map[int][]int{ids[0]: {2}, ids[1]: {}}, containers(t, s, ids...))
}

func TestDeferredThenComplete(t *testing.T) {
	s := newStore(t)
	a := ingest(t, s, rec(44.9999, 10))
	res := run(t, s, a)
	require.Len(t, res, 1)
	assert.NotEmpty(t, res[0].Deferred)
	assert.Equal(t, 1, res[0].Pending)

	// the neighbor arrives later with the same star
	b := ingest(t, s, rec(45.0001, 10))
	res = run(t, s, append(a, b...))
	assert.Equal(t, 1, merged(res))
	got := containers(t, s, a[0], b[0])
	assert.ElementsMatch(t, []int{2}, append(got[a[0]], got[b[0]]...))
}

func TestClearedWhenAllPresent(t *testing.T) {
	s := newStore(t)
	// a container reaching only one other zone, which has data
	a := ingest(t, s, rec(44.9999, 10))
	b := ingest(t, s, rec(46, 10))
	res := run(t, s, append(a, b...))
	var ra reconcile.Result
	for _, r := range res {
		if r.Zone == a[0] {
			ra = r
		}
	}
	assert.Equal(t, 1, ra.Cleared)
	assert.Empty(t, ra.Deferred)

	u, err := s.Open(context.Background(), a[0])
	require.NoError(t, err)
	defer u.Close()
	require.NoError(t, u.Load())
	assert.Empty(t, u.Border())
}

func TestNoData(t *testing.T) {
	s := newStore(t)
	e := reconcile.New(s, 1)
	res, err := e.Zone(context.Background(), 20, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Merged)
	assert.Empty(t, res.Saved)
}

func TestLockTimeout(t *testing.T) {
	s := newStore(t)
	ids := ingest(t, s, rec(359.9998, 0), rec(0.0002, 0))
	e := reconcile.New(s, 1)
	held, err := s.Open(context.Background(), e.Graph[ids[0]][0])
	require.NoError(t, err)
	defer held.Close()

	_, err = e.Zone(context.Background(), ids[0], nil)
	assert.True(t, errors.Is(err, flock.ErrTimeout))
	_, err = e.Run(context.Background(), [][]int{{ids[0]}})
	assert.Error(t, err)
	// the failed unit kept no lock
	u, err := s.Open(context.Background(), ids[0])
	require.NoError(t, err)
	require.NoError(t, u.Close())
}

func TestNeighborOverride(t *testing.T) {
	s := newStore(t)
	ids := ingest(t, s, rec(359.9998, 0), rec(0.0002, 0))
	e := reconcile.New(s, 1)
	// without the other zone in the lock set nothing merges
	res, err := e.Zone(context.Background(), ids[0], []int{})
	require.NoError(t, err)
	assert.Zero(t, res.Merged)
	res, err = e.Zone(context.Background(), ids[0], []int{ids[1]})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, []int{ids[0], ids[1]}, res.Saved)
}
