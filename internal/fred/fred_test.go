// Public domain.

package fred_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/apass/internal/fred"
)

const sample = `STANDARD MAGNITUDES ONLY
FILCON ver 3.3
RA (J2000)    DEC        CCDX      CCDY  Flags   HJD      Airmass   Set      Group   Object                   Filt   Mag    Error    dmag    sys night
105.4134694   0.6743509  2996.030    31.010 0 0 56029.599560 1.310    1          2 10040L                        8  16.5515  0.2880  0.0391   232 56029
105.4135000  -0.6743509  2996.030    31.010 1 0 56029.599560 1.310    1          2 10040L                        2  12.0000  0.0100  0.0000   232 56029

# trailing comment
`

func TestRead(t *testing.T) {
	recs, err := fred.Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	r := recs[0]
	assert.Equal(t, 105.4134694, r.RA)
	assert.Equal(t, 0.6743509, r.Dec)
	assert.Equal(t, float32(2996.030), r.CCDX)
	assert.False(t, r.Flag1)
	assert.Equal(t, 56029.599560, r.HJD)
	assert.Equal(t, int32(2), r.Group)
	assert.Equal(t, "10040L", r.FieldName())
	assert.Equal(t, uint8(8), r.FilterID)
	assert.Equal(t, float32(16.5515), r.XMag1)
	assert.Equal(t, int32(56029), r.Night)
	assert.True(t, r.UseData)
	assert.True(t, recs[1].Flag1)
	assert.Equal(t, -0.6743509, recs[1].Dec)
}

func TestReadBad(t *testing.T) {
	for _, s := range []string{
		"105.4 0.6 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232\n",
		"105.4 0.6 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 x\n",
		"105.4 0.6 2996 31 0 0 56029.5 1.3 1 2 F 300 16.5 0.2 0.03 232 1\n",
		"105.4 95 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 1\n",
		"-inf 0.6 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 1\n",
		"+Inf 0.6 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 1\n",
		"NaN 0.6 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 1\n",
		"105.4 NaN 2996 31 0 0 56029.5 1.3 1 2 F 8 16.5 0.2 0.03 232 1\n",
	} {
		_, err := fred.Read(strings.NewReader(s))
		assert.Error(t, err, s)
	}
}

func TestReadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "n120417.0123.fred")
	require.NoError(t, os.WriteFile(fn, []byte(sample), 0o644))
	recs, err := fred.ReadFile(fn)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "n120417", recs[0].NightString())
}

func TestNightName(t *testing.T) {
	assert.Equal(t, "n120417", fred.NightName("/data/n120417.fred"))
	assert.Equal(t, "s130101", fred.NightName("x/s130101-2.fred"))
	assert.Equal(t, "", fred.NightName("n12041.fred"))
}
