// Public domain.

package zone

import (
	"github.com/goccy/go-json"

	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/sphere"
)

// Container holds every record of one star in one filter set.  Rect is the
// union of the seed boxes of all records ever added.
type Container struct {
	ZoneID      int
	NodeID      int
	ContainerID int
	Rect        sphere.Rect
	Records     []fredbin.Record

	// Border is set when the container reaches outside its zone and has
	// not yet been reconciled against the neighbors.
	Border bool

	numData int // record count from the topology file, before Restore
}

// Len is the number of records.
func (c *Container) Len() int { return len(c.Records) }

// add appends a record and grows the rect by its seed.
func (c *Container) add(rec fredbin.Record, seed sphere.Rect) {
	rec.Stamp(c.ZoneID, c.NodeID, c.ContainerID)
	c.Records = append(c.Records, rec)
	c.Rect.ExpandNear(seed)
}

// Merge moves every record of o into c.  o is left empty.
func (c *Container) Merge(o *Container) {
	for _, rec := range o.Records {
		rec.Stamp(c.ZoneID, c.NodeID, c.ContainerID)
		c.Records = append(c.Records, rec)
	}
	c.Rect.ExpandNear(o.Rect)
	c.Border = c.Border || o.Border
	o.Records = nil
}

// restamp writes the container ids into every record.
func (c *Container) restamp() {
	for i := range c.Records {
		c.Records[i].Stamp(c.ZoneID, c.NodeID, c.ContainerID)
	}
}

type containerJSON struct {
	ZoneID      int         `json:"zone_id"`
	NodeID      int         `json:"node_id"`
	ContainerID int         `json:"container_id"`
	Rect        sphere.Rect `json:"rect"`
	NumData     int         `json:"num_data"`
}

// MarshalJSON writes the topology form, the records go in the data file.
func (c *Container) MarshalJSON() ([]byte, error) {
	return json.Marshal(containerJSON{c.ZoneID, c.NodeID, c.ContainerID, c.Rect, len(c.Records)})
}

// UnmarshalJSON reads the topology form.  Records are added by Restore.
func (c *Container) UnmarshalJSON(b []byte) error {
	var cj containerJSON
	if err := json.Unmarshal(b, &cj); err != nil {
		return err
	}
	*c = Container{
		ZoneID:      cj.ZoneID,
		NodeID:      cj.NodeID,
		ContainerID: cj.ContainerID,
		Rect:        cj.Rect,
		numData:     cj.NumData,
	}
	return nil
}

// Leaf is a zone tree leaf and the containers whose first record fell in it.
type Leaf struct {
	ZoneID     int          `json:"zone_id"`
	NodeID     int          `json:"node_id"`
	Containers []*Container `json:"containers"`
}

// Overlapping returns the containers overlapping r, in list order.
func (l *Leaf) Overlapping(r sphere.Rect) []*Container {
	var cs []*Container
	for _, c := range l.Containers {
		if c.Rect.Overlaps(r) {
			cs = append(cs, c)
		}
	}
	return cs
}

// remove drops the listed containers, keeping the order of the rest.
func (l *Leaf) remove(gone ...*Container) {
	keep := l.Containers[:0]
outer:
	for _, c := range l.Containers {
		for _, g := range gone {
			if c == g {
				continue outer
			}
		}
		keep = append(keep, c)
	}
	for i := len(keep); i < len(l.Containers); i++ {
		l.Containers[i] = nil
	}
	l.Containers = keep
}
