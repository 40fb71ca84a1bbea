// Public domain.

package verify_test

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/apass/internal/build"
	"github.com/soniakeys/apass/internal/flock"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/reconcile"
	"github.com/soniakeys/apass/internal/sphere"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/verify"
	"github.com/soniakeys/apass/internal/zoneindex"
)

const arcsec = 1. / 3600

func newStore(t *testing.T) *store.Store {
	dir := t.TempDir()
	require.NoError(t, store.Layout{Dir: dir}.WriteIndex(zoneindex.Build(3, 85)))
	s, err := store.New(dir, 3, flock.Options{Timeout: time.Second, Retry: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s *store.Store, recs []fredbin.Record) []int {
	ctx := context.Background()
	byZone := map[int][]fredbin.Record{}
	for _, r := range recs {
		r.RA, r.Dec = sphere.Inside(r.RA, r.Dec)
		id, err := s.Index.ZoneID(r.RA, r.Dec)
		require.NoError(t, err)
		byZone[id] = append(byZone[id], r)
	}
	var ids []int
	for id, rs := range byZone {
		u, err := s.Open(ctx, id)
		require.NoError(t, err)
		require.NoError(t, u.AppendRaw(rs))
		require.NoError(t, u.AppendContrib("n120401.fred"))
		require.NoError(t, u.Close())
		ids = append(ids, id)
	}
	sort.Ints(ids)
	_, err := build.All(ctx, s, ids, 4)
	require.NoError(t, err)
	return ids
}

// stars returns a few observations each of stars placed on zone edges.
func stars(rnd *xrand.Rand, n int) []fredbin.Record {
	jitter := func() float64 { return (rnd.Float64() - .5) * arcsec }
	var recs []fredbin.Record
	for i := 0; i < n; i++ {
		var ra, dec float64
		switch i % 3 {
		case 0: // on a meridian edge, RA 0 included
			ra = 45 * float64(rnd.Intn(8))
			dec = rnd.Float64()*120 - 60
		case 1: // on a Dec edge, the polar cap edge included
			ra = rnd.Float64() * 360
			dec = 22.5 * float64(rnd.Intn(7)-3)
		default: // near the pole
			ra = rnd.Float64() * 360
			dec = 90 - rnd.Float64()*2*arcsec
		}
		for k := 0; k < 3; k++ {
			recs = append(recs, fredbin.Record{RA: ra + jitter(), Dec: dec + jitter(), UseData: true})
		}
	}
	return recs
}

func cross(ps []verify.Pair) int {
	n := 0
	for _, p := range ps {
		if p.Cross {
			n++
		}
	}
	return n
}

func TestNoCrossZoneOverlapAfterReconcile(t *testing.T) {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(11)
	s := newStore(t)
	ctx := context.Background()
	ids := put(t, s, stars(rnd, 120))

	before, err := verify.Overlaps(ctx, s)
	require.NoError(t, err)
	require.NotZero(t, cross(before))

	e := reconcile.New(s, 4)
	_, err = e.Run(ctx, reconcile.Schedule(e.Graph, ids))
	require.NoError(t, err)
	after, err := verify.Overlaps(ctx, s)
	require.NoError(t, err)
	for _, p := range after {
		assert.False(t, p.Cross, "%+v", p)
	}

	// every record survives
	sum, err := verify.Summarize(ctx, s, nil)
	require.NoError(t, err)
	total := 0
	for _, sm := range sum {
		total += sm.Records
	}
	assert.Equal(t, 360, total)
}

func TestOverlapsSeam(t *testing.T) {
	s := newStore(t)
	put(t, s, []fredbin.Record{
		{RA: 359.9998, Dec: 10, UseData: true},
		{RA: 0.0002, Dec: 10, UseData: true},
		{RA: 100, Dec: 10, UseData: true},
	})
	ps, err := verify.Overlaps(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.True(t, ps[0].Cross)
}

func TestSummarize(t *testing.T) {
	s := newStore(t)
	ids := put(t, s, []fredbin.Record{
		{RA: 10, Dec: 10, UseData: true},
		{RA: 10.0001, Dec: 10},
		{RA: 20, Dec: 10, UseData: true},
		{RA: 30, Dec: 10, UseData: true},
	})
	sum, err := verify.Summarize(context.Background(), s, ids)
	require.NoError(t, err)
	require.Len(t, sum, 1)
	sm := sum[0]
	assert.Equal(t, 4, sm.Raw)
	assert.Equal(t, 4, sm.Records)
	assert.Equal(t, 1, sm.Unused)
	assert.Equal(t, 3, sm.Containers)
	assert.InDelta(t, 4./3, sm.Mean, 1e-12)
	assert.InDelta(t, 0.57735, sm.StdDev, 1e-5)
}

func TestFindBroken(t *testing.T) {
	s := newStore(t)
	ids := put(t, s, []fredbin.Record{{RA: 10, Dec: 10}, {RA: 100, Dec: 10}})
	bs, err := verify.FindBroken(s)
	require.NoError(t, err)
	assert.Empty(t, bs)

	require.NoError(t, os.Remove(s.BorderFile(ids[1])))
	bs, err = verify.FindBroken(s)
	require.NoError(t, err)
	assert.Equal(t, []verify.Broken{{Zone: ids[1], Missing: []string{s.BorderFile(ids[1])}}}, bs)
}
