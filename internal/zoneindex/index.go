// Public domain.

// Package zoneindex maps sky positions to zones.
//
// The index is a quadtree over the whole sky split to a uniform depth.
// Each leaf is a zone except near the poles, where every leaf north of the
// cutoff is the single north zone and every leaf south of it is the south
// zone.
package zoneindex

import (
	"io"
	"sort"

	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/qtree"
	"github.com/soniakeys/apass/internal/sphere"
)

// Reserved zone ids.
const (
	South = 0
	North = 1
)

// FileName is the name of the index file in a save directory.
const FileName = "global.json"

// Error is the class of errors from this package.
var Error = errs.Class("zoneindex")

// Leaf is the payload of an index leaf.
type Leaf struct {
	ID int `json:"node_id"`
}

// Index is read only once built.
type Index struct {
	tree  *qtree.Tree[Leaf]
	depth int
	rects map[int]sphere.Rect
	ids   []int
}

// Build constructs the index.  Leaves are numbered in Dec then RA order
// starting above the reserved ids, then the polar leaves are collapsed.
// polarCutoff is in degrees, leaves lying wholly beyond ±polarCutoff are
// polar.
func Build(depth int, polarCutoff float64) *Index {
	t := qtree.New[Leaf](sphere.Sky)
	t.SplitUntil(depth, func(sphere.Rect, int) Leaf { return Leaf{ID: -1} })
	numberZones(t, depth)
	mergePolarZones(t, polarCutoff)
	x, _ := newIndex(t)
	return x
}

// numberZones probes the center of every grid cell in row major order,
// giving each newly seen leaf the next id.
func numberZones(t *qtree.Tree[Leaf], depth int) {
	next := max(North, South) + 1
	w := 1 << depth
	dx := 360 / float64(w)
	dy := 180 / float64(w)
	for j := 0; j < w; j++ {
		for i := 0; i < w; i++ {
			l, err := t.FindLeaf((float64(i)+.5)*dx, -90+(float64(j)+.5)*dy)
			if err != nil {
				panic(err) // cell centers are inside the sky
			}
			if lf := &t.Node(l).Leaf; lf.ID < 0 {
				lf.ID = next
				next++
			}
		}
	}
}

func mergePolarZones(t *qtree.Tree[Leaf], cutoff float64) {
	for _, l := range t.Leaves() {
		nd := t.Node(l)
		switch r := nd.Rect; {
		case r.YMin == -90 || r.YMax < -cutoff:
			nd.Leaf.ID = South
		case r.YMax == 90 || r.YMin > cutoff:
			nd.Leaf.ID = North
		default:
			continue
		}
		nd.Rect.XMin = 0
		nd.Rect.XMax = 360
	}
}

func newIndex(t *qtree.Tree[Leaf]) (*Index, error) {
	x := &Index{tree: t, depth: -1, rects: map[int]sphere.Rect{}}
	for _, l := range t.Leaves() {
		nd := t.Node(l)
		switch {
		case x.depth < 0:
			x.depth = nd.Depth
		case nd.Depth != x.depth:
			return nil, Error.New("leaf depth %d, expected %d", nd.Depth, x.depth)
		}
		id := nd.Leaf.ID
		r, ok := x.rects[id]
		switch {
		case !ok:
			r = nd.Rect
			x.ids = append(x.ids, id)
		case id != North && id != South:
			return nil, Error.New("zone id %d on more than one leaf", id)
		default:
			r.Expand(nd.Rect)
		}
		x.rects[id] = r
	}
	sort.Ints(x.ids)
	return x, nil
}

// Depth is the depth of the index leaves.
func (x *Index) Depth() int { return x.depth }

// Width is the number of grid cells along each axis.
func (x *Index) Width() int { return 1 << x.depth }

// ZoneID returns the id of the zone containing (ra, dec).  RA is taken
// modulo 360 and Dec 90 counts as the north zone.
func (x *Index) ZoneID(ra, dec float64) (int, error) {
	ra, dec = sphere.Inside(ra, dec)
	l, err := x.tree.FindLeaf(ra, dec)
	if err != nil {
		return -1, Error.Wrap(err)
	}
	return x.tree.Node(l).Leaf.ID, nil
}

// Rect returns the extent of a zone.  A polar zone covering several rows
// of leaves gets the union of them.
func (x *Index) Rect(id int) (sphere.Rect, bool) {
	r, ok := x.rects[id]
	return r, ok
}

// Zones returns all zone ids in increasing order.
func (x *Index) Zones() []int { return x.ids }

// Cell returns the zone at grid column i (RA) and row j (Dec).  Columns
// wrap, rows do not.
func (x *Index) Cell(i, j int) int {
	w := x.Width()
	i = ((i % w) + w) % w
	dx := 360 / float64(w)
	dy := 180 / float64(w)
	id, err := x.ZoneID((float64(i)+.5)*dx, -90+(float64(j)+.5)*dy)
	if err != nil {
		panic(err)
	}
	return id
}

// IsPolar reports whether id is one of the reserved polar zones.
func IsPolar(id int) bool { return id == North || id == South }

// Encode writes the index in tree form.
func (x *Index) Encode(w io.Writer) error { return x.tree.Encode(w) }

// Decode reads an index written by Encode.
func Decode(r io.Reader) (*Index, error) {
	t, err := qtree.Decode[Leaf](r)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return newIndex(t)
}
