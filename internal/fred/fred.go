// Public domain.

// Package fred reads FRED files, the text photometry files produced by the
// reduction pipeline.
//
// A data line has 17 whitespace separated columns:
//
//	RA (J2000)    DEC        CCDX      CCDY  Flags   HJD      Airmass   Set      Group   Object                   Filt   Mag    Error    dmag    sys night
//	105.4134694   0.6743509  2996.030    31.010 0 0 56029.599560 1.310    1          2 10040L                        8  16.5515  0.2880  0.0391   232 56029
//
// Lines starting with # or a letter are headings and are skipped.
package fred

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/fredbin"
)

// Error is the class of errors from this package.
var Error = errs.Class("fred")

const nCols = 17

// Read parses FRED data lines.  Any bad line fails the whole read.
func Read(r io.Reader) ([]fredbin.Record, error) {
	var recs []fredbin.Record
	sc := bufio.NewScanner(r)
	for ln := 1; sc.Scan(); ln++ {
		l := strings.TrimSpace(sc.Text())
		if l == "" || l[0] == '#' || unicode.IsLetter(rune(l[0])) {
			continue
		}
		rec, err := parseLine(l)
		if err != nil {
			return nil, Error.New("line %d: %v", ln, err)
		}
		recs = append(recs, rec)
	}
	return recs, Error.Wrap(sc.Err())
}

func parseLine(l string) (rec fredbin.Record, err error) {
	f := strings.Fields(l)
	if len(f) != nCols {
		return rec, errs.New("%d columns, want %d", len(f), nCols)
	}
	p := parser{f: f}
	rec.RA = p.float(0, 64)
	rec.Dec = p.float(1, 64)
	rec.CCDX = float32(p.float(2, 32))
	rec.CCDY = float32(p.float(3, 32))
	rec.Flag1 = p.int(4, 8) != 0
	rec.Flag2 = p.int(5, 8) != 0
	rec.HJD = p.float(6, 64)
	rec.Airmass = float32(p.float(7, 32))
	rec.Set = int32(p.int(8, 32))
	rec.Group = int32(p.int(9, 32))
	rec.SetFieldName(f[10])
	rec.FilterID = uint8(p.uint(11, 8))
	rec.XMag1 = float32(p.float(12, 32))
	rec.XErr1 = float32(p.float(13, 32))
	rec.DMag = float32(p.float(14, 32))
	rec.Sys = int32(p.int(15, 32))
	rec.Night = int32(p.int(16, 32))
	rec.UseData = true
	switch {
	case p.err != nil:
	case math.IsNaN(rec.RA) || math.IsInf(rec.RA, 0):
		p.err = errs.New("ra %v not finite", rec.RA)
	case !(rec.Dec >= -90 && rec.Dec <= 90):
		p.err = errs.New("dec %v out of range", rec.Dec)
	}
	return rec, p.err
}

// parser keeps the first conversion error.
type parser struct {
	f   []string
	err error
}

func (p *parser) float(i, bits int) float64 {
	v, err := strconv.ParseFloat(p.f[i], bits)
	p.keep(i, err)
	return v
}

func (p *parser) int(i, bits int) int64 {
	v, err := strconv.ParseInt(p.f[i], 10, bits)
	p.keep(i, err)
	return v
}

func (p *parser) uint(i, bits int) uint64 {
	v, err := strconv.ParseUint(p.f[i], 10, bits)
	p.keep(i, err)
	return v
}

func (p *parser) keep(i int, err error) {
	if err != nil && p.err == nil {
		p.err = errs.New("column %d: %v", i+1, err)
	}
}

// ReadFile reads a FRED file and tags every record with the night name
// found in the base file name.
func ReadFile(fn string) ([]fredbin.Record, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()
	recs, err := Read(f)
	if err != nil {
		return nil, Error.New("%s: %v", fn, err)
	}
	night := NightName(filepath.Base(fn))
	for i := range recs {
		recs[i].SetNightName(night)
	}
	return recs, nil
}

var rxNight = regexp.MustCompile(`[ns][0-9]{6}`)

// NightName returns the first night name, n or s followed by six digits,
// in s, or "" if there is none.
func NightName(s string) string {
	return rxNight.FindString(s)
}
