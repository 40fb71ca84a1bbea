// Public domain.

package fsutil_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/apass/internal/fsutil"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "a.json")
	assert.False(t, fsutil.Exists(fn))
	require.NoError(t, fsutil.WriteAtomic(fn, func(w io.Writer) error {
		_, err := io.WriteString(w, "one")
		return err
	}))
	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))

	// a failed write leaves the old file and no temp files
	boom := errors.New("boom")
	err = fsutil.WriteAtomic(fn, func(w io.Writer) error {
		io.WriteString(w, "two")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	b, err = os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, des, 1)
}
