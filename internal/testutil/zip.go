package testutil

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rowjay/monthly-archiver/internal/compress"
)

// ReadZip extracts every entry of an archive into memory keyed by name.
func ReadZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	rc, err := compress.OpenZip(path)
	require.NoError(t, err)
	defer rc.Close()

	out := map[string][]byte{}
	for _, f := range rc.File {
		r, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		out[f.Name] = data
	}
	return out
}
