// Public domain.

// Package store is the on-disk layout of a save directory and the locked
// read-modify-write cycle on a zone's files.
//
// Every zone has a raw data file that ingestion appends to, and once built
// a container data file, a topology file and a border file.  All of them,
// plus the zone's contrib list, are guarded by a single lock on the
// container data file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/soniakeys/apass/internal/fsutil"
	"github.com/soniakeys/apass/internal/zoneindex"
)

// File name parts.
const (
	DataExt       = ".fredbin"
	ContainerPart = "-container"
	BorderPart    = "-border-rects"
	TopologyPart  = "-zone"
	ContribPart   = "-contrib.txt"
	LockExt       = ".lock"
	JSONExt       = ".json"
	ErrorLogName  = "ingest.errorlog"
	ConfigName    = "apass.yaml"
)

// ZoneName is "z" and the zero padded zone id.
func ZoneName(id int) string { return fmt.Sprintf("z%05d", id) }

var rxZone = regexp.MustCompile(`^z(\d{5,})`)

// ZoneFromName parses the zone id at the start of a file's base name.
func ZoneFromName(fn string) (int, bool) {
	m := rxZone.FindStringSubmatch(filepath.Base(fn))
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	return id, err == nil
}

// Layout names the files of a save directory.
type Layout struct {
	Dir string
}

func (l Layout) zone(id int, part string) string {
	return filepath.Join(l.Dir, ZoneName(id)+part)
}

func (l Layout) IndexFile() string     { return filepath.Join(l.Dir, zoneindex.FileName) }
func (l Layout) ErrorLog() string      { return filepath.Join(l.Dir, ErrorLogName) }
func (l Layout) ConfigFile() string    { return filepath.Join(l.Dir, ConfigName) }
func (l Layout) RawFile(id int) string { return l.zone(id, DataExt) }
func (l Layout) ContainerFile(id int) string {
	return l.zone(id, ContainerPart+DataExt)
}
func (l Layout) BorderFile(id int) string   { return l.zone(id, BorderPart+JSONExt) }
func (l Layout) TopologyFile(id int) string { return l.zone(id, TopologyPart+JSONExt) }
func (l Layout) ContribFile(id int) string  { return l.zone(id, ContribPart) }
func (l Layout) LockFile(id int) string     { return l.ContainerFile(id) + LockExt }

// ZoneFiles returns the files a built zone must have.
func (l Layout) ZoneFiles(id int) []string {
	return []string{
		l.RawFile(id),
		l.ContainerFile(id),
		l.TopologyFile(id),
		l.BorderFile(id),
		l.ContribFile(id),
	}
}

// RawZones lists the zones with a raw data file.
func (l Layout) RawZones() ([]int, error) {
	return l.glob(`^z\d{5,}` + regexp.QuoteMeta(DataExt) + `$`)
}

// BuiltZones lists the zones with a container data file.
func (l Layout) BuiltZones() ([]int, error) {
	return l.glob(`^z\d{5,}` + regexp.QuoteMeta(ContainerPart+DataExt) + `$`)
}

// KnownZones lists every zone with any file in the directory.
func (l Layout) KnownZones() ([]int, error) {
	return l.glob(`^z\d{5,}`)
}

func (l Layout) glob(pattern string) ([]int, error) {
	rx := regexp.MustCompile(pattern)
	des, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	seen := map[int]bool{}
	var ids []int
	for _, de := range des {
		if de.IsDir() || !rx.MatchString(de.Name()) {
			continue
		}
		if id, ok := ZoneFromName(de.Name()); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// ReadIndex loads the global index.
func (l Layout) ReadIndex() (*zoneindex.Index, error) {
	f, err := os.Open(l.IndexFile())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()
	x, err := zoneindex.Decode(f)
	return x, Error.Wrap(err)
}

// WriteIndex saves the global index.
func (l Layout) WriteIndex(x *zoneindex.Index) error {
	return Error.Wrap(fsutil.WriteAtomic(l.IndexFile(), x.Encode))
}
