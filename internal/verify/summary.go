// Public domain.

package verify

import (
	"context"

	"github.com/zeebo/errs"
	"gonum.org/v1/gonum/stat"

	"github.com/soniakeys/apass/internal/fsutil"
	"github.com/soniakeys/apass/internal/store"
)

// Summary describes one zone.
type Summary struct {
	Zone       int
	Raw        int // records in the raw file
	Records    int // records in containers
	Unused     int // container records with UseData false
	Containers int
	Border     int
	Mean       float64 // records per container
	StdDev     float64
}

// Summarize reports on each zone in ids, or every zone with a file when
// ids is empty.
func Summarize(ctx context.Context, s *store.Store, ids []int) ([]Summary, error) {
	if len(ids) == 0 {
		var err error
		if ids, err = s.KnownZones(); err != nil {
			return nil, err
		}
	}
	var out []Summary
	for _, id := range ids {
		sm, err := summarize(ctx, s, id)
		if err != nil {
			return out, err
		}
		out = append(out, sm)
	}
	return out, nil
}

func summarize(ctx context.Context, s *store.Store, id int) (sm Summary, err error) {
	sm.Zone = id
	u, err := s.Open(ctx, id)
	if err != nil {
		return sm, err
	}
	defer func() { err = errs.Combine(err, u.Close()) }()
	raw, err := u.ReadRaw()
	if err != nil {
		return sm, err
	}
	sm.Raw = len(raw)
	if !u.HasData() {
		return sm, nil
	}
	if err := u.Load(); err != nil {
		return sm, err
	}
	cs := u.Zone.Containers()
	sizes := make([]float64, len(cs))
	for i, c := range cs {
		sizes[i] = float64(c.Len())
		sm.Records += c.Len()
		for _, r := range c.Records {
			if !r.UseData {
				sm.Unused++
			}
		}
	}
	sm.Containers = len(cs)
	sm.Border = len(u.Border())
	if len(sizes) > 0 {
		sm.Mean, sm.StdDev = stat.MeanStdDev(sizes, nil)
	}
	return sm, nil
}

// Broken is a zone missing some of its files.
type Broken struct {
	Zone    int
	Missing []string
}

// FindBroken lists zones that have some data but not every file a built
// zone has.  A zone with nothing but a lock file is not reported.
func FindBroken(s *store.Store) ([]Broken, error) {
	ids, err := s.KnownZones()
	if err != nil {
		return nil, err
	}
	var bs []Broken
	for _, id := range ids {
		var missing []string
		for _, fn := range s.ZoneFiles(id) {
			if !fsutil.Exists(fn) {
				missing = append(missing, fn)
			}
		}
		if len(missing) > 0 && len(missing) < len(s.ZoneFiles(id)) {
			bs = append(bs, Broken{id, missing})
		}
	}
	return bs, nil
}

