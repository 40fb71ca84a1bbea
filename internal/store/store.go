// Public domain.

package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/border"
	"github.com/soniakeys/apass/internal/flock"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/fsutil"
	"github.com/soniakeys/apass/internal/metrics"
	"github.com/soniakeys/apass/internal/zone"
	"github.com/soniakeys/apass/internal/zoneindex"
)

var (
	// Error is the class of errors from this package.
	Error = errs.Class("store")

	// ErrNoData means the zone has no container files yet.
	ErrNoData = Error.New("zone has no data")
)

// Store opens zones of one save directory.
type Store struct {
	Layout
	Index     *zoneindex.Index
	ZoneDepth int
	Lock      flock.Options
	Log       *zap.Logger
	Metrics   *metrics.Metrics
}

// New returns a store over dir using the index saved there.
func New(dir string, zoneDepth int, lock flock.Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := Layout{Dir: dir}
	x, err := l.ReadIndex()
	if err != nil {
		return nil, err
	}
	return &Store{Layout: l, Index: x, ZoneDepth: zoneDepth, Lock: lock, Log: log}, nil
}

// Unit is a locked zone.  Only a Unit reads or writes the zone's files.
type Unit struct {
	ID   int
	Zone *zone.Zone

	s    *Store
	lock *flock.Lock
}

// Open locks a zone.  It waits up to the lock timeout.
func (s *Store) Open(ctx context.Context, id int) (*Unit, error) {
	l, err := flock.Acquire(ctx, s.LockFile(id), s.Lock)
	if err != nil {
		return nil, err
	}
	s.Metrics.ObserveLockWait(l.Waited)
	s.Log.Debug("locked", zap.Int("zone", id), zap.Duration("waited", l.Waited))
	return &Unit{ID: id, s: s, lock: l}, nil
}

// OpenAll locks zones in increasing id order, so two callers locking
// overlapping sets cannot deadlock.  On failure no lock is kept.
func (s *Store) OpenAll(ctx context.Context, ids []int) (map[int]*Unit, error) {
	ids = append([]int(nil), ids...)
	sort.Ints(ids)
	us := map[int]*Unit{}
	for _, id := range ids {
		if us[id] != nil {
			continue
		}
		u, err := s.Open(ctx, id)
		if err != nil {
			return nil, errs.Combine(err, CloseAll(us))
		}
		us[id] = u
	}
	return us, nil
}

// CloseAll releases every unit.
func CloseAll(us map[int]*Unit) error {
	var g errs.Group
	for _, u := range us {
		g.Add(u.Close())
	}
	return g.Err()
}

// Close releases the lock.
func (u *Unit) Close() error {
	if u == nil {
		return nil
	}
	err := u.lock.Release()
	u.lock = nil
	return err
}

// HasData reports whether the zone has been built.
func (u *Unit) HasData() bool {
	return fsutil.Exists(u.s.TopologyFile(u.ID)) && fsutil.Exists(u.s.ContainerFile(u.ID))
}

// Create starts an empty zone tree over the zone's rect, replacing any
// loaded one.
func (u *Unit) Create() error {
	r, ok := u.s.Index.Rect(u.ID)
	if !ok {
		return Error.New("zone %d is not in the index", u.ID)
	}
	u.Zone = zone.New(u.ID, r, u.s.ZoneDepth)
	return nil
}

// Load reads the zone's topology, container data and border file.
// It returns ErrNoData for a zone that has not been built.
func (u *Unit) Load() error {
	if !u.HasData() {
		return ErrNoData
	}
	f, err := os.Open(u.s.TopologyFile(u.ID))
	if err != nil {
		return Error.Wrap(err)
	}
	z, err := zone.Decode(u.ID, f)
	f.Close()
	if err != nil {
		return err
	}
	recs, err := fredbin.ReadFile(u.s.ContainerFile(u.ID))
	if err != nil {
		return err
	}
	if err := z.Restore(recs); err != nil {
		return err
	}
	info, err := u.readBorder()
	if err != nil {
		return err
	}
	if stale := info.Apply(z); len(stale) > 0 {
		u.s.Log.Warn("stale border entries", zap.Int("zone", u.ID), zap.Strings("names", stale))
	}
	u.Zone = z
	return nil
}

func (u *Unit) readBorder() (border.Info, error) {
	f, err := os.Open(u.s.BorderFile(u.ID))
	if errors.Is(err, os.ErrNotExist) {
		return border.Info{}, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()
	return border.Decode(f)
}

// Border returns the zone's current border list.
func (u *Unit) Border() border.Info {
	u.Zone.Number()
	return border.FromZone(u.Zone)
}

// Save numbers the zone and rewrites its container data, topology and
// border files.  Each file is replaced atomically.
func (u *Unit) Save() error {
	z := u.Zone
	if z == nil {
		return Error.New("zone %d: nothing to save", u.ID)
	}
	z.Number()
	if err := fredbin.WriteFile(u.s.ContainerFile(u.ID), z.Records()); err != nil {
		return err
	}
	if err := fsutil.WriteAtomic(u.s.TopologyFile(u.ID), z.Encode); err != nil {
		return Error.Wrap(err)
	}
	info := border.FromZone(z)
	return Error.Wrap(fsutil.WriteAtomic(u.s.BorderFile(u.ID), info.Encode))
}

// ReadRaw reads the raw data file.  A missing file is no records.
func (u *Unit) ReadRaw() ([]fredbin.Record, error) {
	if !fsutil.Exists(u.s.RawFile(u.ID)) {
		return nil, nil
	}
	return fredbin.ReadFile(u.s.RawFile(u.ID))
}

// AppendRaw appends to the raw data file.
func (u *Unit) AppendRaw(recs []fredbin.Record) error {
	return fredbin.AppendFile(u.s.RawFile(u.ID), recs)
}

// WriteRaw replaces the raw data file.
func (u *Unit) WriteRaw(recs []fredbin.Record) error {
	return fredbin.WriteFile(u.s.RawFile(u.ID), recs)
}

// ReadContainers reads the container data file without the topology.
func (u *Unit) ReadContainers() ([]fredbin.Record, error) {
	if !fsutil.Exists(u.s.ContainerFile(u.ID)) {
		return nil, nil
	}
	return fredbin.ReadFile(u.s.ContainerFile(u.ID))
}

// WriteContainers replaces the container data file, leaving the topology
// alone.  Only use it with the records in the order they were read.
func (u *Unit) WriteContainers(recs []fredbin.Record) error {
	return fredbin.WriteFile(u.s.ContainerFile(u.ID), recs)
}

// ReadContrib returns the input files recorded as contributing to the zone.
func (u *Unit) ReadContrib() ([]string, error) {
	b, err := os.ReadFile(u.s.ContribFile(u.ID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, Error.Wrap(sc.Err())
}

// AppendContrib records input files as contributing to the zone.
func (u *Unit) AppendContrib(fns ...string) (err error) {
	f, err := os.OpenFile(u.s.ContribFile(u.ID), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()
	for _, fn := range fns {
		if _, err := io.WriteString(f, fn+"\n"); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// WriteContrib replaces the contrib list.
func (u *Unit) WriteContrib(fns []string) error {
	return Error.Wrap(fsutil.WriteAtomic(u.s.ContribFile(u.ID), func(w io.Writer) error {
		for _, fn := range fns {
			if _, err := io.WriteString(w, fn+"\n"); err != nil {
				return err
			}
		}
		return nil
	}))
}
