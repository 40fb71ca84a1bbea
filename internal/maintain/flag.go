// Public domain.

package maintain

import (
	"bufio"
	"context"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/fred"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/store"
)

// NightField names one field observed on one numeric night.
type NightField struct {
	Night int32
	Field string
}

// BadData lists what should not be used.  Records taken on a bad night, of
// a bad field on its night, or flagged non-photometric get UseData false.
// Flagging only ever clears UseData.
type BadData struct {
	Nights map[string]bool
	Fields map[NightField]bool
}

// Bad reports whether rec should be excluded.
func (b *BadData) Bad(rec *fredbin.Record) bool {
	return rec.Flag1 ||
		b.Nights[rec.NightString()] ||
		b.Fields[NightField{rec.Night, rec.FieldName()}]
}

// Flag clears UseData on bad records and returns how many changed.
func (b *BadData) Flag(recs []fredbin.Record) int {
	n := 0
	for i := range recs {
		if r := &recs[i]; r.UseData && b.Bad(r) {
			r.UseData = false
			n++
		}
	}
	return n
}

// ReadBadNights reads night names, one per line.  Blank lines and lines
// starting with # are skipped, anything else must hold a night name.
func ReadBadNights(r io.Reader) (map[string]bool, error) {
	m := map[string]bool{}
	err := lines(r, func(ln int, l string) error {
		n := fred.NightName(l)
		if n == "" {
			return Error.New("line %d: no night name in %q", ln, l)
		}
		m[n] = true
		return nil
	})
	return m, err
}

// ReadBadFields reads lines of a numeric night and a field name.
func ReadBadFields(r io.Reader) (map[NightField]bool, error) {
	m := map[NightField]bool{}
	err := lines(r, func(ln int, l string) error {
		f := strings.Fields(l)
		if len(f) != 2 {
			return Error.New("line %d: want night and field", ln)
		}
		night, err := strconv.ParseInt(f[0], 10, 32)
		if err != nil {
			return Error.New("line %d: %v", ln, err)
		}
		m[NightField{int32(night), f[1]}] = true
		return nil
	})
	return m, err
}

func lines(r io.Reader, f func(ln int, l string) error) error {
	sc := bufio.NewScanner(r)
	for ln := 1; sc.Scan(); ln++ {
		l := strings.TrimSpace(sc.Text())
		if l == "" || l[0] == '#' {
			continue
		}
		if err := f(ln, l); err != nil {
			return err
		}
	}
	return Error.Wrap(sc.Err())
}

// ReadBadData reads either file, an empty name is an empty list.
func ReadBadData(nightsFile, fieldsFile string) (*BadData, error) {
	b := &BadData{Nights: map[string]bool{}, Fields: map[NightField]bool{}}
	if nightsFile != "" {
		f, err := os.Open(nightsFile)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		b.Nights, err = ReadBadNights(f)
		f.Close()
		if err != nil {
			return nil, Error.New("%s: %v", nightsFile, err)
		}
	}
	if fieldsFile != "" {
		f, err := os.Open(fieldsFile)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		b.Fields, err = ReadBadFields(f)
		f.Close()
		if err != nil {
			return nil, Error.New("%s: %v", fieldsFile, err)
		}
	}
	return b, nil
}

// FlagResult counts the records flagged in one zone.
type FlagResult struct {
	Zone       int
	Raw        int
	Containers int
}

// FlagBad flags bad records in the raw and container files of every zone.
// Record order and counts do not change, so the topology stays valid.
func FlagBad(ctx context.Context, s *store.Store, b *BadData, jobs int) ([]FlagResult, error) {
	ids, err := s.KnownZones()
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	var results []FlagResult
	err = forZones(ctx, s, ids, jobs, func(u *store.Unit) error {
		r := FlagResult{Zone: u.ID}
		raw, err := u.ReadRaw()
		if err != nil {
			return err
		}
		if r.Raw = b.Flag(raw); r.Raw > 0 {
			if err := u.WriteRaw(raw); err != nil {
				return err
			}
		}
		cs, err := u.ReadContainers()
		if err != nil {
			return err
		}
		if r.Containers = b.Flag(cs); r.Containers > 0 {
			if err := u.WriteContainers(cs); err != nil {
				return err
			}
		}
		if r.Raw+r.Containers > 0 {
			s.Log.Info("flagged", zap.Int("zone", u.ID), zap.Int("raw", r.Raw),
				zap.Int("containers", r.Containers))
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}
		return nil
	})
	sort.Slice(results, func(i, j int) bool { return results[i].Zone < results[j].Zone })
	return results, err
}
