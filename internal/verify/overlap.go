// Public domain.

// Package verify checks and summarizes a save directory.
package verify

import (
	"context"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/sphere"
	"github.com/soniakeys/apass/internal/store"
)

// Error is the class of errors from this package.
var Error = errs.Class("verify")

// Ref names a container.
type Ref struct {
	Zone, Node, Container int
	Rect                  sphere.Rect
}

// Pair is two overlapping containers.  Cross is set when they are in
// different zones, which reconciliation should have prevented.
type Pair struct {
	A, B  Ref
	Cross bool
}

type item struct {
	i int
	b rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect { return it.b }

// Overlaps scans every built zone and returns each overlapping pair of
// containers.  Zones are locked one at a time and only their rects kept.
func Overlaps(ctx context.Context, s *store.Store) ([]Pair, error) {
	ids, err := s.BuiltZones()
	if err != nil {
		return nil, err
	}
	var refs []Ref
	for _, id := range ids {
		u, err := s.Open(ctx, id)
		if err != nil {
			return nil, err
		}
		err = u.Load()
		if err == nil {
			for _, c := range u.Zone.Containers() {
				refs = append(refs, Ref{c.ZoneID, c.NodeID, c.ContainerID, c.Rect})
			}
		}
		if err := errs.Combine(err, u.Close()); err != nil {
			return nil, err
		}
	}
	return pairs(refs)
}

func pairs(refs []Ref) ([]Pair, error) {
	rt := rtreego.NewTree(2, 25, 50)
	for i, r := range refs {
		b, err := bounds(normal(r.Rect))
		if err != nil {
			return nil, err
		}
		rt.Insert(&item{i, b})
	}
	var ps []Pair
	for i, a := range refs {
		seen := map[int]bool{}
		for _, q := range queries(normal(a.Rect)) {
			qb, err := bounds(q)
			if err != nil {
				return nil, err
			}
			for _, sp := range rt.SearchIntersect(qb) {
				j := sp.(*item).i
				if j <= i || seen[j] {
					continue
				}
				seen[j] = true
				if b := refs[j]; a.Rect.Overlaps(b.Rect) {
					ps = append(ps, Pair{a, b, a.Zone != b.Zone})
				}
			}
		}
	}
	return ps, nil
}

// normal shifts r a whole number of turns so XMin is in [0,360).
func normal(r sphere.Rect) sphere.Rect {
	return r.Shift(-360 * math.Floor(r.XMin/360))
}

// big stands in for unbounded RA in a search box.
const big = 1e4

// queries returns boxes covering every place a container overlapping r can
// be indexed.  A box past a pole can overlap anything else past it.
func queries(r sphere.Rect) []sphere.Rect {
	qs := []sphere.Rect{r, r.Shift(-360), r.Shift(360)}
	if r.YMax > 90 {
		qs = append(qs, sphere.Rect{XMin: -big, XMax: big, YMin: 90, YMax: big})
	}
	if r.YMin < -90 {
		qs = append(qs, sphere.Rect{XMin: -big, XMax: big, YMin: -big, YMax: -90})
	}
	return qs
}

// bounds converts a rect to the R-tree's form.  Degenerate sides get a
// small positive length.
func bounds(r sphere.Rect) (rtreego.Rect, error) {
	const tiny = 1e-12
	w := math.Max(r.XMax-r.XMin, tiny)
	h := math.Max(r.YMax-r.YMin, tiny)
	b, err := rtreego.NewRect(rtreego.Point{r.XMin, r.YMin}, []float64{w, h})
	return b, Error.Wrap(err)
}
