// Public domain.

package maintain

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/fred"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/store"
)

// PurgeResult counts what one zone lost.
type PurgeResult struct {
	Zone       int
	Raw        int // records removed from the raw file
	Containers int // records removed from the container file
	Emptied    int // containers left with no records, dropped
	Files      int // contrib entries dropped
}

// PurgeNights deletes every record of the named nights from every zone.
// Records can reach a zone whose contrib list never named their night, as
// reconciliation moves them across borders, so container files are checked
// in any case.  Both the raw and container files lose the records, a
// container left empty is dropped.  Container rects do not shrink.
func PurgeNights(ctx context.Context, s *store.Store, nights []string, jobs int) ([]PurgeResult, error) {
	purge := map[string]bool{}
	for _, n := range nights {
		if nn := fred.NightName(n); nn != "" {
			purge[nn] = true
		} else {
			s.Log.Warn("no night name", zap.String("arg", n))
		}
	}
	ids, err := s.KnownZones()
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	var results []PurgeResult
	err = forZones(ctx, s, ids, jobs, func(u *store.Unit) error {
		r, err := purgeZone(u, purge)
		if err == nil && (r.Files > 0 || r.Raw > 0 || r.Containers > 0) {
			s.Log.Info("purged", zap.Int("zone", r.Zone), zap.Int("raw", r.Raw),
				zap.Int("containers", r.Containers), zap.Int("emptied", r.Emptied))
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}
		return err
	})
	sort.Slice(results, func(i, j int) bool { return results[i].Zone < results[j].Zone })
	return results, err
}

func purgeZone(u *store.Unit, purge map[string]bool) (PurgeResult, error) {
	r := PurgeResult{Zone: u.ID}
	fns, err := u.ReadContrib()
	if err != nil {
		return r, err
	}
	var keep []string
	for _, fn := range fns {
		if purge[fred.NightName(fn)] {
			r.Files++
		} else {
			keep = append(keep, fn)
		}
	}
	gone := func(rec *fredbin.Record) bool { return purge[rec.NightString()] }

	raw, err := u.ReadRaw()
	if err != nil {
		return r, err
	}
	if kept := filter(raw, gone); len(kept) < len(raw) {
		r.Raw = len(raw) - len(kept)
		if err := u.WriteRaw(kept); err != nil {
			return r, err
		}
	}

	if u.HasData() {
		if err := u.Load(); err != nil {
			return r, err
		}
		for _, c := range u.Zone.Containers() {
			kept := filter(c.Records, gone)
			r.Containers += len(c.Records) - len(kept)
			c.Records = kept
			if len(kept) == 0 {
				u.Zone.Remove(c)
				r.Emptied++
			}
		}
		if r.Containers > 0 {
			if err := u.Save(); err != nil {
				return r, err
			}
		}
	}
	if r.Files == 0 {
		return r, nil
	}
	return r, u.WriteContrib(keep)
}

// filter drops the records gone reports, reusing recs.
func filter(recs []fredbin.Record, gone func(*fredbin.Record) bool) []fredbin.Record {
	kept := recs[:0]
	for i := range recs {
		if !gone(&recs[i]) {
			kept = append(kept, recs[i])
		}
	}
	return kept
}
