// Public domain.

package maintain_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/apass/internal/build"
	"github.com/soniakeys/apass/internal/flock"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/maintain"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/zoneindex"
)

func newStore(t *testing.T) *store.Store {
	dir := t.TempDir()
	require.NoError(t, store.Layout{Dir: dir}.WriteIndex(zoneindex.Build(3, 85)))
	s, err := store.New(dir, 3, flock.Options{Timeout: 50 * time.Millisecond, Retry: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	return s
}

func obs(ra, dec float64, night string, field string) fredbin.Record {
	r := fredbin.Record{RA: ra, Dec: dec, UseData: true, Night: 56029}
	r.SetNightName(night)
	r.SetFieldName(field)
	return r
}

// seed writes one zone: a star seen on two nights and a star seen on one.
func seed(t *testing.T, s *store.Store) int {
	ctx := context.Background()
	id, err := s.Index.ZoneID(10, 10)
	require.NoError(t, err)
	u, err := s.Open(ctx, id)
	require.NoError(t, err)
	require.NoError(t, u.AppendRaw([]fredbin.Record{
		obs(10, 10, "n120401", "f1"),
		obs(10.0001, 10, "n120402", "f2"),
		obs(20, 10, "n120402", "f1"),
	}))
	require.NoError(t, u.AppendContrib("/in/n120401.fred", "/in/n120402.fred"))
	require.NoError(t, u.Close())
	_, err = build.Zone(ctx, s, id)
	require.NoError(t, err)
	return id
}

// load returns a locked, loaded zone.  Close it before running anything
// else on the zone.
func load(t *testing.T, s *store.Store, id int) *store.Unit {
	u, err := s.Open(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, u.Load())
	return u
}

func TestPurgeNights(t *testing.T) {
	s := newStore(t)
	id := seed(t, s)
	res, err := maintain.PurgeNights(context.Background(), s, []string{"n120402", "junk"}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, maintain.PurgeResult{Zone: id, Raw: 2, Containers: 2, Emptied: 1, Files: 1}, res[0])

	u := load(t, s, id)
	cs := u.Zone.Containers()
	require.Len(t, cs, 1)
	assert.Equal(t, 1, cs[0].Len())
	raw, err := u.ReadRaw()
	require.NoError(t, err)
	assert.Len(t, raw, 1)
	fns, err := u.ReadContrib()
	require.NoError(t, err)
	assert.Equal(t, []string{"/in/n120401.fred"}, fns)
	require.NoError(t, u.Close())

	// nothing left to purge
	res, err = maintain.PurgeNights(context.Background(), s, []string{"n120402"}, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestPurgeMovedRecords(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := seed(t, s)
	// a zone holding a record of n120402 in its containers only, as after
	// reconciliation merged it in from a neighbor
	other, err := s.Index.ZoneID(300, 10)
	require.NoError(t, err)
	require.NotEqual(t, id, other)
	u, err := s.Open(ctx, other)
	require.NoError(t, err)
	require.NoError(t, u.Create())
	require.NoError(t, u.Zone.Insert(obs(300, 10, "n120402", "f1")))
	require.NoError(t, u.Zone.Insert(obs(301, 10, "n120401", "f1")))
	require.NoError(t, u.Save())
	require.NoError(t, u.Close())

	res, err := maintain.PurgeNights(ctx, s, []string{"n120402"}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, id, res[0].Zone)
	assert.Equal(t, maintain.PurgeResult{Zone: other, Containers: 1, Emptied: 1}, res[1])

	u = load(t, s, other)
	cs := u.Zone.Containers()
	require.Len(t, cs, 1)
	assert.Equal(t, "n120401", cs[0].Records[0].NightString())
	require.NoError(t, u.Close())
}

func TestReadBad(t *testing.T) {
	nights, err := maintain.ReadBadNights(strings.NewReader("# bad\nn120401\n\n/x/s120403.fred\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"n120401": true, "s120403": true}, nights)
	_, err = maintain.ReadBadNights(strings.NewReader("nothing\n"))
	assert.Error(t, err)

	fields, err := maintain.ReadBadFields(strings.NewReader("56029 f2\n"))
	require.NoError(t, err)
	assert.True(t, fields[maintain.NightField{Night: 56029, Field: "f2"}])
	_, err = maintain.ReadBadFields(strings.NewReader("x f2\n"))
	assert.Error(t, err)
}

func TestFlagBad(t *testing.T) {
	s := newStore(t)
	id := seed(t, s)
	b := &maintain.BadData{
		Nights: map[string]bool{"n120401": true},
		Fields: map[maintain.NightField]bool{{Night: 56029, Field: "f2"}: true},
	}
	res, err := maintain.FlagBad(context.Background(), s, b, 2)
	require.NoError(t, err)
	assert.Equal(t, []maintain.FlagResult{{Zone: id, Raw: 2, Containers: 2}}, res)

	u := load(t, s, id)
	var use []bool
	for _, r := range u.Zone.Records() {
		use = append(use, r.UseData)
	}
	assert.ElementsMatch(t, []bool{false, false, true}, use)
	require.NoError(t, u.Close())

	// flagging is idempotent
	res, err = maintain.FlagBad(context.Background(), s, b, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestNonPhotometric(t *testing.T) {
	b := &maintain.BadData{}
	recs := []fredbin.Record{{UseData: true, Flag1: true}, {UseData: true}}
	assert.Equal(t, 1, b.Flag(recs))
	assert.False(t, recs[0].UseData)
	assert.True(t, recs[1].UseData)
}
