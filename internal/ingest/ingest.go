// Public domain.

// Package ingest routes FRED observations to raw zone files.
//
// Files are parsed concurrently and applied one at a time in the order
// given, so a zone's raw file and contrib list grow in submission order.
// A file that fails to parse is skipped, logged and listed in the save
// directory's error log.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/fred"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/sphere"
	"github.com/soniakeys/apass/internal/store"
)

// Error is the class of errors from this package.
var Error = errs.Class("ingest")

// Ingester adds or removes the records of FRED files.
type Ingester struct {
	Store *store.Store
	Jobs  int // concurrent parsers, GOMAXPROCS if zero

	// Remove deletes records exactly matching those of the files instead
	// of appending them.  Container files are not touched, the zones
	// reported must be rebuilt.
	Remove bool

	// Read parses one file, fred.ReadFile if nil.
	Read func(fn string) ([]fredbin.Record, error)
}

// FileResult is the outcome for one input file.
type FileResult struct {
	File    string
	Records int   // records appended or removed
	Zones   []int // zones touched, increasing
	Err     error // parse error, the file was skipped
}

// Report is the outcome of a batch.
type Report struct {
	Files   []FileResult
	Records int
	Zones   []int // every zone touched, increasing
	Failed  int   // files skipped
}

type parsed struct {
	fn   string
	recs []fredbin.Record
	err  error
}

type ticket struct {
	fn  string
	rch chan parsed
}

// Files processes fns in order.  The returned error is for failures that
// leave the store partly updated, such as a lock timeout or a write error.
// Those stop the batch.
func (in *Ingester) Files(ctx context.Context, fns []string) (Report, error) {
	read := in.Read
	if read == nil {
		read = fred.ReadFile
	}
	workers := in.Jobs
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// each file carries a buffered result channel, the channels are
	// queued in submission order for the applier below.
	work := make(chan ticket)
	order := make(chan chan parsed, workers*2)
	go func() {
		defer close(work)
		defer close(order)
		for _, fn := range fns {
			t := ticket{fn, make(chan parsed, 1)}
			select {
			case work <- t:
			case <-ctx.Done():
				return
			}
			order <- t.rch
		}
	}()
	for n := 0; n < workers; n++ {
		go func() {
			for t := range work {
				recs, err := read(t.fn)
				t.rch <- parsed{t.fn, recs, err}
			}
		}()
	}

	var rep Report
	touched := map[int]bool{}
	for rch := range order {
		p := <-rch
		fr, err := in.apply(ctx, p)
		rep.Files = append(rep.Files, fr)
		if fr.Err != nil {
			rep.Failed++
		}
		rep.Records += fr.Records
		for _, id := range fr.Zones {
			touched[id] = true
		}
		if err != nil {
			cancel()
			for range order {
			}
			rep.Zones = sortedKeys(touched)
			return rep, err
		}
	}
	rep.Zones = sortedKeys(touched)
	return rep, ctx.Err()
}

func (in *Ingester) apply(ctx context.Context, p parsed) (FileResult, error) {
	s := in.Store
	fr := FileResult{File: p.fn}
	if p.err != nil {
		return in.skip(fr, p.err)
	}
	// route the whole file before touching any zone
	byZone := map[int][]fredbin.Record{}
	for i, rec := range p.recs {
		rec.RA, rec.Dec = sphere.Inside(rec.RA, rec.Dec)
		id, err := s.Index.ZoneID(rec.RA, rec.Dec)
		if err != nil {
			return in.skip(fr, fmt.Errorf("record %d at %v %v: %w", i+1, rec.RA, rec.Dec, err))
		}
		byZone[id] = append(byZone[id], rec)
	}
	for _, id := range sortedKeys(byZone) {
		n, err := in.zone(ctx, id, p.fn, byZone[id])
		if err != nil {
			return fr, fmt.Errorf("%s: zone %d: %w", p.fn, id, err)
		}
		if n > 0 || !in.Remove {
			fr.Zones = append(fr.Zones, id)
		}
		fr.Records += n
	}
	if in.Remove {
		s.Log.Info("removed", zap.String("file", p.fn), zap.Int("records", fr.Records))
	} else {
		s.Metrics.AddIngested(fr.Records)
		s.Log.Info("ingested", zap.String("file", p.fn), zap.Int("records", fr.Records),
			zap.Ints("zones", fr.Zones))
	}
	return fr, nil
}

// skip records a file that could not be used.  Only a failure to write the
// error log is returned.
func (in *Ingester) skip(fr FileResult, cause error) (FileResult, error) {
	s := in.Store
	fr.Err = cause
	s.Log.Error("skipping file", zap.String("file", fr.File), zap.Error(cause))
	s.Metrics.FileFailed()
	return fr, in.logError(fr.File, cause)
}

// zone appends or removes one file's records in one zone.
func (in *Ingester) zone(ctx context.Context, id int, fn string, recs []fredbin.Record) (n int, err error) {
	u, err := in.Store.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	defer func() { err = errs.Combine(err, u.Close()) }()
	if !in.Remove {
		if err := u.AppendRaw(recs); err != nil {
			return 0, err
		}
		return len(recs), u.AppendContrib(fn)
	}
	raw, err := u.ReadRaw()
	if err != nil {
		return 0, err
	}
	keep := raw[:0]
	for i := range raw {
		if matchesAny(&raw[i], recs) {
			n++
		} else {
			keep = append(keep, raw[i])
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := u.WriteRaw(keep); err != nil {
		return 0, err
	}
	return n, dropContrib(u, fn)
}

func matchesAny(r *fredbin.Record, recs []fredbin.Record) bool {
	for i := range recs {
		if r.SameObservation(&recs[i]) {
			return true
		}
	}
	return false
}

func dropContrib(u *store.Unit, fn string) error {
	fns, err := u.ReadContrib()
	if err != nil {
		return err
	}
	keep := fns[:0]
	for _, f := range fns {
		if f != fn {
			keep = append(keep, f)
		}
	}
	return u.WriteContrib(keep)
}

// logError appends a line to the save directory's error log.
func (in *Ingester) logError(fn string, cause error) (err error) {
	f, err := os.OpenFile(in.Store.ErrorLog(), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()
	_, err = io.WriteString(f, fmt.Sprintf("%s\t%v\n", fn, cause))
	return Error.Wrap(err)
}

func sortedKeys[V any](m map[int]V) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}
