// Public domain.

package fredbin_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/apass/internal/fredbin"
)

func sample(ra, dec float64) fredbin.Record {
	r := fredbin.Record{
		RA: ra, Dec: dec, CCDX: 2996.03, CCDY: 31.01,
		HJD: 56029.599560, Airmass: 1.31, Set: 1, Group: 2,
		FilterID: 8, XMag1: 16.5515, XErr1: 0.288, DMag: 0.0391,
		Sys: 232, Night: 56029, UseData: true,
	}
	r.SetFieldName("10040L")
	r.SetNightName("n120417")
	return r
}

func ExampleSize() {
	fmt.Println(fredbin.Size, fredbin.LegacySize)
	// Output:
	// 112 100
}

func TestLayout(t *testing.T) {
	r := sample(105.4134694, 0.6743509)
	r.Stamp(7, 8, 9)
	b, err := r.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 112)
	assert.Equal(t, math.Float64bits(105.4134694), binary.LittleEndian.Uint64(b[0:]))
	assert.Equal(t, math.Float64bits(0.6743509), binary.LittleEndian.Uint64(b[8:]))
	assert.Equal(t, "10040L", string(b[46:52]))
	assert.Equal(t, byte(8), b[71])
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[92:]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(b[96:]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(b[100:]))
	assert.Equal(t, "n120417", string(b[104:111]))
	assert.Equal(t, byte(1), b[111])

	var got fredbin.Record
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, r, got)
	assert.Equal(t, "10040L", got.FieldName())
	assert.Equal(t, "n120417", got.NightString())
	assert.Error(t, got.UnmarshalBinary(b[1:]))
}

func TestFiles(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "z00042.fredbin")
	a := []fredbin.Record{sample(1, 2), sample(3, 4)}
	require.NoError(t, fredbin.AppendFile(fn, a))
	require.NoError(t, fredbin.AppendFile(fn, a[:1]))
	n, err := fredbin.Count(fn)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	got, err := fredbin.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, append(a, a[0]), got)

	require.NoError(t, fredbin.WriteFile(fn, a[1:]))
	got, err = fredbin.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, a[1:], got)

	require.NoError(t, fredbin.WriteFile(fn, nil))
	got, err = fredbin.ReadFile(fn)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(fn, make([]byte, 113), 0o644))
	_, err = fredbin.ReadFile(fn)
	assert.Error(t, err)
	_, err = fredbin.Count(fn)
	assert.Error(t, err)
}

func TestSameObservation(t *testing.T) {
	a := sample(1, 2)
	b := a
	b.Stamp(3, 4, 5)
	b.UseData = false
	b.SetNightName("")
	assert.True(t, a.SameObservation(&b))
	b.XMag1 += .001
	assert.False(t, a.SameObservation(&b))
}

func TestTime(t *testing.T) {
	r := sample(0, 0)
	// MJD 56000 is 2012 March 14
	assert.Equal(t, "2012-04-12 14", r.Time().UTC().Format("2006-01-02 15"))
}

func TestWriteText(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, fredbin.WriteText(&sb, []fredbin.Record{sample(105.4, 0.67), sample(10, -20)}))
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "n120417")
	assert.Contains(t, lines[0], "10040L")
	assert.Contains(t, lines[1], "2012-04-12 14:23")
}
