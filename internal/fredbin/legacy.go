// Public domain.

package fredbin

import (
	"bytes"
	"encoding/binary"
	"os"
)

// legacyRecord is the layout written before night names, the use flag and
// the double precision HJD were added.
type legacyRecord struct {
	RA, Dec    float64
	CCDX, CCDY float32
	Flag1      bool
	Flag2      bool
	HJD        float32
	Airmass    float32
	Set, Group int32
	Field      [25]byte
	FilterID   uint8
	XMag1      float32
	XErr1      float32
	DMag       float32
	Sys, Night int32

	ZoneID, NodeID, ContainerID int32
}

// LegacySize is the record size of the old layout.
var LegacySize = binary.Size(legacyRecord{})

// ReadLegacyFile reads a file in the old layout.  Records come back with
// UseData set and an empty night name.
func ReadLegacyFile(fn string) ([]Record, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(b)%LegacySize != 0 {
		return nil, Error.New("%s: not a legacy fredbin file", fn)
	}
	old := make([]legacyRecord, len(b)/LegacySize)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, old); err != nil {
		return nil, Error.Wrap(err)
	}
	recs := make([]Record, len(old))
	for i, o := range old {
		recs[i] = Record{
			RA: o.RA, Dec: o.Dec, CCDX: o.CCDX, CCDY: o.CCDY,
			Flag1: o.Flag1, Flag2: o.Flag2,
			HJD: float64(o.HJD), Airmass: o.Airmass,
			Set: o.Set, Group: o.Group, Field: o.Field, FilterID: o.FilterID,
			XMag1: o.XMag1, XErr1: o.XErr1, DMag: o.DMag,
			Sys: o.Sys, Night: o.Night,
			ZoneID: o.ZoneID, NodeID: o.NodeID, ContainerID: o.ContainerID,
			UseData: true,
		}
	}
	return recs, nil
}
