// Public domain.

package prog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cfg = `global_depth: 3
zone_depth: 3
jobs: 2
lock:
  timeout: 1s
  retry: 5ms
log:
  level: error
`

// two observations of a star in z00034 and one star seen from both sides
// of RA 0, z00034 and z00041
const night = `RA (J2000)    DEC        CCDX      CCDY  Flags   HJD      Airmass   Set      Group   Object                   Filt   Mag    Error    dmag    sys night
 10.0000000  10.0000000  2996.030    31.010 0 0 56029.599560 1.310    1          2 10040L                        8  16.5515  0.2880  0.0391   232 56029
 10.0001000  10.0000000  2990.030    31.010 0 0 56029.609560 1.310    1          3 10040L                        8  16.5400  0.2880  0.0391   232 56029
  0.0002000   5.0000000   100.000   200.000 0 0 56029.599560 1.310    2          2 00000A                        8  12.0000  0.0100  0.0000   232 56029
359.9998000   5.0000000   101.000   200.000 0 0 56029.609560 1.310    2          3 00000A                        8  12.0100  0.0100  0.0000   232 56029
`

func execute(args ...string) (string, error) {
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func saveDir(t *testing.T) (dir, fred string) {
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apass.yaml"), []byte(cfg), 0o644))
	fred = filepath.Join(t.TempDir(), "n120412.0001.fred")
	require.NoError(t, os.WriteFile(fred, []byte(night), 0o644))
	_, err := execute("make-zones", dir)
	require.NoError(t, err)
	return dir, fred
}

func TestMakeZones(t *testing.T) {
	dir, _ := saveDir(t)
	_, err := execute("make-zones", dir)
	assert.Error(t, err)
	_, err = execute("make-zones", "--force", dir)
	assert.NoError(t, err)

	out, err := execute("dump-zones", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "zone_id, ra_min, ra_max, dec_min, dec_max", lines[0])
	assert.Contains(t, lines, "34,0,45,0,22.5")

	out, err = execute("find-zone", dir, "10", "10", "359.9998", "0")
	require.NoError(t, err)
	assert.Equal(t, "10 10 z00034\n359.9998 0 z00041\n", out)
	_, err = execute("find-zone", dir, "10")
	assert.Error(t, err)
	_, err = execute("find-zone", dir, "10", "91")
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	dir, fred := saveDir(t)
	mf := filepath.Join(t.TempDir(), "apass.prom")

	out, err := execute("ingest", "--metrics-file", mf, dir, fred)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "z00034.fredbin")+"\n"+
		filepath.Join(dir, "z00041.fredbin")+"\n", out)
	prom, err := os.ReadFile(mf)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "apass_records_ingested_total 4")

	_, err = execute("build", dir)
	require.NoError(t, err)
	out, err = execute("verify", dir)
	assert.Error(t, err, "seam star is in two zones before reconciling")
	assert.Contains(t, out, "1 across zones")

	_, err = execute("reconcile", dir)
	require.NoError(t, err)
	out, err = execute("verify", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "0 across zones")

	out, err = execute("dump-star", dir, "--at", "10,10")
	require.NoError(t, err)
	assert.Contains(t, out, "records 2")
	assert.Contains(t, out, "10040L")

	name := strings.Fields(out)[0]
	var z, n, c int
	_, err = fmt.Sscanf(name, "z%05d-n%05d-c%05d", &z, &n, &c)
	require.NoError(t, err)
	assert.Equal(t, 34, z)
	out, err = execute("dump-star", dir, "--id", fmt.Sprintf("%d,%d,%d", z, n, c))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, name), out)
	_, err = execute("dump-star", dir, "--id", "34,0")
	assert.Error(t, err)

	out, err = execute("summarize", dir)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^total\s+4\s+4\s+0\s+2\s`, out)

	out, err = execute("find-broken", dir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReconcileFlags(t *testing.T) {
	dir, _ := saveDir(t)
	_, err := execute("reconcile", "--neighbors", "41", dir)
	assert.Error(t, err)

	_, err = execute("build", dir, "zfoo.fredbin")
	assert.Error(t, err)
}

func TestPurgeNight(t *testing.T) {
	dir, fred := saveDir(t)
	_, err := execute("ingest", dir, fred)
	require.NoError(t, err)
	_, err = execute("build", dir)
	require.NoError(t, err)
	_, err = execute("purge-night", dir, "n120412")
	require.NoError(t, err)
	out, err := execute("summarize", dir)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^total\s+0\s+0\s`, out)
}
