package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/monthly-archiver/internal/compress"
	"github.com/rowjay/monthly-archiver/internal/testutil"
)

func seedOpening(store *testutil.MemStore) map[string][]byte {
	when := time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC)
	objects := map[string][]byte{
		"Opening/TXN101557/IDD.pdf": []byte("%PDF-1.4 idd"),
		"Opening/TXN101557/KYC.pdf": []byte("%PDF-1.4 kyc"),
		"Opening/TXN101557/OPA.xml": []byte("<document><type>OPA</type></document>"),
		"Opening/TXN204410/PID.pdf": []byte("%PDF-1.4 pid"),
	}
	for key, data := range objects {
		store.Add(key, data, when, nil)
	}
	return objects
}

func selectAll(t *testing.T, store *testutil.MemStore, prefix string) []ObjectRef {
	t.Helper()
	refs, err := Select(context.Background(), store, prefix, december, selectOpts())
	require.NoError(t, err)
	return refs
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch left behind in %s", dir)
}

func TestBuildRoundTrip(t *testing.T) {
	for _, method := range []string{compress.MethodDeflate, compress.MethodZstd} {
		t.Run(method, func(t *testing.T) {
			store := testutil.NewMemStore()
			want := seedOpening(store)
			refs := selectAll(t, store, "Opening/")

			out := t.TempDir()
			scratch := t.TempDir()
			dest := filepath.Join(out, "Opening_2025-12.zip")

			res, err := Build(context.Background(), store, refs, dest, scratch, BuildOptions{Method: method, Log: zerolog.Nop()})
			require.NoError(t, err)
			assert.Equal(t, 4, res.Files)
			assert.Equal(t, dest, res.Path)

			info, err := os.Stat(dest)
			require.NoError(t, err)
			assert.Equal(t, info.Size(), res.Size)

			assert.Equal(t, want, testutil.ReadZip(t, dest))
			assertEmptyDir(t, scratch)
		})
	}
}

func TestBuildIsRepeatable(t *testing.T) {
	store := testutil.NewMemStore()
	seedOpening(store)
	refs := selectAll(t, store, "Opening/")
	dest := filepath.Join(t.TempDir(), "Opening_2025-12.zip")
	opts := BuildOptions{Log: zerolog.Nop()}

	_, err := Build(context.Background(), store, refs, dest, t.TempDir(), opts)
	require.NoError(t, err)
	first := testutil.ReadZip(t, dest)

	_, err = Build(context.Background(), store, refs, dest, t.TempDir(), opts)
	require.NoError(t, err)
	assert.Equal(t, first, testutil.ReadZip(t, dest))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not remain next to the archive")
}

func TestBuildEmptyProducesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Customer_2025-12.zip")
	res, err := Build(context.Background(), testutil.NewMemStore(), nil, dest, t.TempDir(), BuildOptions{Log: zerolog.Nop()})
	require.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.NoFileExists(t, dest)
}

func TestBuildFetchFailureLeavesNoArchive(t *testing.T) {
	store := testutil.NewMemStore()
	seedOpening(store)
	refs := selectAll(t, store, "Opening/")
	store.GetErr["Opening/TXN101557/OPA.xml"] = errors.New("connection reset")

	out := t.TempDir()
	scratch := t.TempDir()
	dest := filepath.Join(out, "Opening_2025-12.zip")

	_, err := Build(context.Background(), store, refs, dest, scratch, BuildOptions{Log: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorContains(t, err, "OPA.xml")
	assert.NoFileExists(t, dest)
	assertEmptyDir(t, scratch)
	assertEmptyDir(t, out)
}

func TestBuildRejectsEscapingKeys(t *testing.T) {
	store := testutil.NewMemStore()
	store.Add("../etc/passwd", []byte("x"), time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), nil)
	refs := []ObjectRef{{Key: "../etc/passwd"}}

	scratch := t.TempDir()
	_, err := Build(context.Background(), store, refs, filepath.Join(t.TempDir(), "x.zip"), scratch, BuildOptions{Log: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assertEmptyDir(t, scratch)
}

func TestBuildUnknownMethod(t *testing.T) {
	store := testutil.NewMemStore()
	seedOpening(store)
	refs := selectAll(t, store, "Opening/")
	out := t.TempDir()

	_, err := Build(context.Background(), store, refs, filepath.Join(out, "Opening_2025-12.zip"), t.TempDir(), BuildOptions{Method: "rar", Log: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrCompressionFailed)
	assertEmptyDir(t, out)
}

func TestBuildScratchSetupFailureIsNotAFetchError(t *testing.T) {
	store := testutil.NewMemStore()
	seedOpening(store)
	refs := selectAll(t, store, "Opening/")

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	out := t.TempDir()

	_, err := Build(context.Background(), store, refs, filepath.Join(out, "Opening_2025-12.zip"), filepath.Join(blocker, "scratch"), BuildOptions{Log: zerolog.Nop()})
	require.Error(t, err)
	assert.ErrorContains(t, err, "create scratch root")
	assert.NotErrorIs(t, err, ErrFetchFailed)
	assert.NotErrorIs(t, err, ErrCompressionFailed)
	assertEmptyDir(t, out)
}
