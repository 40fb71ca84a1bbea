// Public domain.

// Package zone is the container store of a single zone.
//
// A zone is split into a uniform quadtree.  Each leaf keeps a list of
// containers, one per star, and a record is added to the container in its
// leaf whose box overlaps the record's seed box.  Records that bridge two
// existing containers merge them.
package zone

import (
	"fmt"
	"io"

	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/qtree"
	"github.com/soniakeys/apass/internal/sphere"
)

var (
	// Error is the class of errors from this package.
	Error = errs.Class("zone")

	// ErrOutside is returned for a record that does not belong to the
	// zone's rect.
	ErrOutside = Error.New("position outside zone")

	// ErrCorrupt is returned when the topology and data files disagree.
	ErrCorrupt = Error.New("zone data corrupt")
)

func corrupt(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, a...)...)
}

// Zone is the container tree of one zone.
type Zone struct {
	ID   int
	Tree *qtree.Tree[*Leaf]

	// Merges counts containers merged away since the zone was created or
	// loaded.
	Merges int

	leaves []int // tree index by node id
}

// New returns an empty zone covering r, split to depth.
func New(id int, r sphere.Rect, depth int) *Zone {
	t := qtree.New[*Leaf](r)
	t.SplitUntil(depth, func(sphere.Rect, int) *Leaf {
		return &Leaf{ZoneID: id, Containers: []*Container{}}
	})
	z := &Zone{ID: id, Tree: t}
	for i, l := range t.Leaves() {
		t.Node(l).Leaf.NodeID = i
		z.leaves = append(z.leaves, l)
	}
	return z
}

// Leaf returns the leaf with the given node id.
func (z *Zone) Leaf(nodeID int) (*Leaf, bool) {
	if nodeID < 0 || nodeID >= len(z.leaves) {
		return nil, false
	}
	return z.Tree.Node(z.leaves[nodeID]).Leaf, true
}

// TreeNode returns the tree index of the leaf with the given node id.
func (z *Zone) TreeNode(nodeID int) int { return z.leaves[nodeID] }

// leafAt returns the leaf containing a point wrapped onto the sky.
func (z *Zone) leafAt(ra, dec float64) (*Leaf, error) {
	n, err := z.Tree.FindLeaf(ra, dec)
	if err != nil {
		return nil, fmt.Errorf("%w: zone %d (%v, %v)", ErrOutside, z.ID, ra, dec)
	}
	return z.Tree.Node(n).Leaf, nil
}

// Insert adds a record.  A record with no overlapping container starts a
// new one.  When several containers overlap, the one with the most records
// takes the others, earlier containers winning ties.
func (z *Zone) Insert(rec fredbin.Record) error {
	_, err := z.insert(rec, true)
	return err
}

// InsertOrDrop adds a record only if it overlaps an existing container.
// It reports whether the record was kept.
func (z *Zone) InsertOrDrop(rec fredbin.Record) (bool, error) {
	return z.insert(rec, false)
}

func (z *Zone) insert(rec fredbin.Record, create bool) (bool, error) {
	ra, dec := sphere.Inside(rec.RA, rec.Dec)
	leaf, err := z.leafAt(ra, dec)
	if err != nil {
		return false, err
	}
	seed := sphere.Seed(ra, dec)
	matches := leaf.Overlapping(seed)
	switch len(matches) {
	case 0:
		if !create {
			return false, nil
		}
		c := &Container{
			ZoneID:      z.ID,
			NodeID:      leaf.NodeID,
			ContainerID: len(leaf.Containers),
			Rect:        seed,
		}
		c.add(rec, seed)
		leaf.Containers = append(leaf.Containers, c)
	case 1:
		matches[0].add(rec, seed)
	default:
		win := matches[0]
		for _, c := range matches[1:] {
			if c.Len() > win.Len() {
				win = c
			}
		}
		var losers []*Container
		for _, c := range matches {
			if c != win {
				win.Merge(c)
				losers = append(losers, c)
			}
		}
		leaf.remove(losers...)
		z.Merges += len(losers)
		win.add(rec, seed)
	}
	return true, nil
}

// Container returns the container in the point's leaf whose rect contains
// the point.
func (z *Zone) Container(ra, dec float64) (*Container, bool) {
	ra, dec = sphere.Inside(ra, dec)
	leaf, err := z.leafAt(ra, dec)
	if err != nil {
		return nil, false
	}
	for _, c := range leaf.Containers {
		// boxes near RA 0 may be stored with negative bounds
		if c.Rect.Contains(ra, dec) || c.Rect.Contains(ra-360, dec) {
			return c, true
		}
	}
	return nil, false
}

// Locate returns the container at the given ids.
func (z *Zone) Locate(nodeID, containerID int) (*Container, bool) {
	l, ok := z.Leaf(nodeID)
	if !ok || containerID < 0 || containerID >= len(l.Containers) {
		return nil, false
	}
	return l.Containers[containerID], true
}

// Remove deletes a container from its leaf.
func (z *Zone) Remove(c *Container) {
	if l, ok := z.Leaf(c.NodeID); ok {
		l.remove(c)
	}
}

// Absorb merges o into c and drops o from the zone.  Both must belong to z.
func (z *Zone) Absorb(c, o *Container) {
	c.Merge(o)
	z.Remove(o)
	z.Merges++
}

// Near returns the leaves whose region r meets, in tree order.  r may cross
// RA 0 or a pole, see sphere.Rect.Meets.
func (z *Zone) Near(r sphere.Rect) []*Leaf {
	var ls []*Leaf
	var f func(n int)
	f = func(n int) {
		nd := z.Tree.Node(n)
		if !r.Meets(nd.Rect) {
			return
		}
		if nd.IsLeaf() {
			ls = append(ls, nd.Leaf)
			return
		}
		for _, c := range nd.Children {
			f(c)
		}
	}
	f(0)
	return ls
}

// Number renumbers leaves and containers in tree order and stamps every
// record with its ids.
func (z *Zone) Number() {
	for i, n := range z.leaves {
		l := z.Tree.Node(n).Leaf
		l.ZoneID = z.ID
		l.NodeID = i
		for j, c := range l.Containers {
			c.ZoneID, c.NodeID, c.ContainerID = z.ID, i, j
			c.restamp()
		}
	}
}

// Containers returns every container in tree order.
func (z *Zone) Containers() []*Container {
	var cs []*Container
	for _, n := range z.leaves {
		cs = append(cs, z.Tree.Node(n).Leaf.Containers...)
	}
	return cs
}

// Records returns every record in tree order.
func (z *Zone) Records() []fredbin.Record {
	var recs []fredbin.Record
	for _, c := range z.Containers() {
		recs = append(recs, c.Records...)
	}
	return recs
}

// Encode writes the zone topology.  Call Number first so the ids written
// match the records.
func (z *Zone) Encode(w io.Writer) error {
	return Error.Wrap(z.Tree.Encode(w))
}

// Decode reads a zone topology.  The containers are empty until Restore.
func Decode(id int, r io.Reader) (*Zone, error) {
	t, err := qtree.Decode[*Leaf](r)
	if err != nil {
		return nil, corrupt("zone %d topology: %v", id, err)
	}
	z := &Zone{ID: id, Tree: t}
	for i, n := range t.Leaves() {
		l := t.Node(n).Leaf
		switch {
		case l == nil:
			return nil, corrupt("zone %d: leaf %d has no payload", id, i)
		case l.ZoneID != id:
			return nil, corrupt("zone %d: leaf %d belongs to zone %d", id, i, l.ZoneID)
		case l.NodeID != i:
			return nil, corrupt("zone %d: leaf %d has node id %d", id, i, l.NodeID)
		}
		for j, c := range l.Containers {
			if c == nil || c.ZoneID != id || c.NodeID != i || c.ContainerID != j {
				return nil, corrupt("zone %d: bad container %d in leaf %d", id, j, i)
			}
		}
		z.leaves = append(z.leaves, n)
	}
	return z, nil
}

// Restore routes records from the data file into the containers named by
// their stamps.  Every container must end up with the count recorded in
// the topology.
func (z *Zone) Restore(recs []fredbin.Record) error {
	for i := range recs {
		rec := &recs[i]
		if int(rec.ZoneID) != z.ID {
			return corrupt("zone %d: record %d stamped zone %d", z.ID, i, rec.ZoneID)
		}
		c, ok := z.Locate(int(rec.NodeID), int(rec.ContainerID))
		if !ok {
			return corrupt("zone %d: record %d stamped (%d, %d) has no container",
				z.ID, i, rec.NodeID, rec.ContainerID)
		}
		c.Records = append(c.Records, *rec)
	}
	for _, c := range z.Containers() {
		if c.Len() != c.numData {
			return corrupt("zone %d: container (%d, %d) has %d records, topology says %d",
				z.ID, c.NodeID, c.ContainerID, c.Len(), c.numData)
		}
	}
	return nil
}
