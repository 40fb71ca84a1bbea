// Public domain.

// Package reconcile merges containers that hold the same star but were
// built apart, either in different leaves of one zone or in neighboring
// zones.
package reconcile

import (
	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/sphere"
	"github.com/soniakeys/apass/internal/zone"
	"github.com/soniakeys/apass/internal/zoneindex"
)

// Error is the class of errors from this package.
var Error = errs.Class("reconcile")

// DetectBorders runs once over a freshly built zone.  A container with a
// corner in another zone is marked as a border container.  A container
// reaching into another leaf of its own zone, or past a pole, takes any
// container there that it overlaps.  It returns the number of containers
// merged away.
func DetectBorders(z *zone.Zone, x *zoneindex.Index) (int, error) {
	start := z.Merges
	for _, n := range z.Tree.Leaves() {
		leaf := z.Tree.Node(n).Leaf
		for _, c := range append([]*zone.Container(nil), leaf.Containers...) {
			if c.Len() == 0 {
				continue // absorbed
			}
			for {
				spills, err := probe(z, x, n, c)
				if err != nil {
					return z.Merges - start, err
				}
				if !spills || absorbNear(z, c) == 0 {
					break
				}
			}
		}
	}
	return z.Merges - start, nil
}

// probe checks the corners of c, whose home is leaf n.  It marks c as a
// border container when a corner lies in another zone, and reports whether
// c reaches another leaf of z.
func probe(z *zone.Zone, x *zoneindex.Index, n int, c *zone.Container) (bool, error) {
	spills := c.Rect.YMax > 90 || c.Rect.YMin < -90
	for _, p := range c.Rect.Corners() {
		ra, dec := sphere.Wrap(p.X, p.Y)
		id, err := x.ZoneID(ra, dec)
		if err != nil {
			return false, Error.Wrap(err)
		}
		if id != z.ID {
			c.Border = true
			continue
		}
		ra, dec = sphere.Inside(ra, dec)
		switch l, ok := z.Tree.FindNodeContaining(n, ra, dec); {
		case !ok:
			c.Border = true
		case l != n:
			spills = true
		}
	}
	return spills, nil
}

// absorbNear merges into c every other container of z that c overlaps.
func absorbNear(z *zone.Zone, c *zone.Container) int {
	k := 0
	for _, l := range z.Near(c.Rect) {
		for _, o := range l.Overlapping(c.Rect) {
			if o != c {
				z.Absorb(c, o)
				k++
			}
		}
	}
	return k
}
