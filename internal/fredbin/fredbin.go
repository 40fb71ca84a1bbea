// Public domain.

// Package fredbin reads and writes fredbin files, the fixed width binary
// form of FRED photometry records.
//
// A file is a bare sequence of little endian records with no header.  The
// record count is the file size divided by Size.  Raw zone files grow by
// appending, container files are always rewritten whole.
package fredbin

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/fsutil"
)

// Error is the class of errors from this package.
var Error = errs.Class("fredbin")

// Record is one measurement of one star on one image.  Field order is the
// file layout.
type Record struct {
	RA, Dec    float64 // degrees, J2000
	CCDX, CCDY float32
	Flag1      bool // non-photometric
	Flag2      bool
	HJD        float64
	Airmass    float32
	Set, Group int32
	Field      [25]byte
	FilterID   uint8
	XMag1      float32
	XErr1      float32
	DMag       float32
	Sys, Night int32

	ZoneID, NodeID, ContainerID int32

	NightName [7]byte
	UseData   bool
}

// Size is the encoded size of a Record.
var Size = binary.Size(Record{})

// FieldName returns Field without its NUL padding.
func (r *Record) FieldName() string { return cstr(r.Field[:]) }

// SetFieldName sets Field, truncating to 25 bytes.
func (r *Record) SetFieldName(s string) { r.Field = [25]byte{}; copy(r.Field[:], s) }

// NightString returns NightName without its NUL padding.
func (r *Record) NightString() string { return cstr(r.NightName[:]) }

// SetNightName sets NightName, truncating to 7 bytes.
func (r *Record) SetNightName(s string) { r.NightName = [7]byte{}; copy(r.NightName[:], s) }

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Stamp sets the ownership ids.
func (r *Record) Stamp(zone, node, container int) {
	r.ZoneID = int32(zone)
	r.NodeID = int32(node)
	r.ContainerID = int32(container)
}

// SameObservation reports whether r and o hold the same measurement,
// ignoring the ownership stamp and the bookkeeping fields.
func (r *Record) SameObservation(o *Record) bool {
	a, b := *r, *o
	a.Stamp(0, 0, 0)
	b.Stamp(0, 0, 0)
	a.NightName, b.NightName = [7]byte{}, [7]byte{}
	a.UseData, b.UseData = false, false
	return a == b
}

// MarshalBinary encodes r.
func (r *Record) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Size)
	err := binary.Write(&buf, binary.LittleEndian, r)
	return buf.Bytes(), Error.Wrap(err)
}

// UnmarshalBinary decodes a record of exactly Size bytes.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != Size {
		return Error.New("record is %d bytes, want %d", len(b), Size)
	}
	return Error.Wrap(binary.Read(bytes.NewReader(b), binary.LittleEndian, r))
}

// Decode reads records until EOF.
func Decode(b []byte) ([]Record, error) {
	if len(b)%Size != 0 {
		return nil, Error.New("%d bytes is not a whole number of records", len(b))
	}
	recs := make([]Record, len(b)/Size)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, recs); err != nil {
		return nil, Error.Wrap(err)
	}
	return recs, nil
}

// Encode writes records to w.
func Encode(w io.Writer, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	return Error.Wrap(binary.Write(w, binary.LittleEndian, recs))
}

// ReadFile reads all records of a file.
func ReadFile(fn string) ([]Record, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	recs, err := Decode(b)
	if err != nil {
		return nil, Error.New("%s: %v", fn, err)
	}
	return recs, nil
}

// WriteFile replaces the file with recs.
func WriteFile(fn string, recs []Record) error {
	return Error.Wrap(fsutil.WriteAtomic(fn, func(w io.Writer) error {
		return Encode(w, recs)
	}))
}

// AppendFile appends recs, creating the file if needed.
func AppendFile(fn string, recs []Record) (err error) {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()
	var buf bytes.Buffer
	if err := Encode(&buf, recs); err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	return Error.Wrap(err)
}

// Count returns the number of records in a file from its size.
func Count(fn string) (int, error) {
	fi, err := os.Stat(fn)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	if fi.Size()%int64(Size) != 0 {
		return 0, Error.New("%s: %d bytes is not a whole number of records", fn, fi.Size())
	}
	return int(fi.Size() / int64(Size)), nil
}
