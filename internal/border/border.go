// Public domain.

// Package border keeps the list of a zone's containers that reach across
// the zone's edge and still need to be reconciled with the neighbors.
package border

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/zone"
)

// Error is the class of errors from this package.
var Error = errs.Class("border")

// Entry locates one border container.
type Entry struct {
	Name        string     `json:"name"`
	ZoneID      int        `json:"zone_id"`
	NodeID      int        `json:"node_id"`
	ContainerID int        `json:"container_id"`
	Center      [2]float64 `json:"center"`
}

// Info is keyed by container name.
type Info map[string]Entry

// Name is the name of a container in a border file.
func Name(zoneID, nodeID, containerID int) string {
	return fmt.Sprintf("z%05d-n%05d-c%05d", zoneID, nodeID, containerID)
}

// FromZone lists the zone's border containers.  The zone must be numbered.
func FromZone(z *zone.Zone) Info {
	info := Info{}
	for _, c := range z.Containers() {
		if !c.Border {
			continue
		}
		x, y := c.Rect.Center()
		n := Name(c.ZoneID, c.NodeID, c.ContainerID)
		info[n] = Entry{n, c.ZoneID, c.NodeID, c.ContainerID, [2]float64{x, y}}
	}
	return info
}

// Apply marks the listed containers of a loaded zone as border containers.
// Entries are found by their ids, or failing that by their center.  The
// names of entries matching no container are returned.
func (info Info) Apply(z *zone.Zone) (stale []string) {
	for n, e := range info {
		c, ok := z.Locate(e.NodeID, e.ContainerID)
		if !ok || !c.Rect.Contains(e.Center[0], e.Center[1]) {
			c, ok = z.Container(e.Center[0], e.Center[1])
		}
		if !ok || e.ZoneID != z.ID {
			stale = append(stale, n)
			continue
		}
		c.Border = true
	}
	return stale
}

// Encode writes info as a JSON object.
func (info Info) Encode(w io.Writer) error {
	return Error.Wrap(json.NewEncoder(w).Encode(info))
}

// Decode reads a JSON border file.
func Decode(r io.Reader) (Info, error) {
	info := Info{}
	if err := json.NewDecoder(r).Decode(&info); err != nil {
		return nil, Error.Wrap(err)
	}
	return info, nil
}
