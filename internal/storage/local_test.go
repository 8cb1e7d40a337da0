package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for key, body := range files {
		p := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func keys(infos []ObjectInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Key)
	}
	return out
}

func TestLocalListFlattensAndSorts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Opening/TXN2/KYC.pdf":           "b",
		"Opening/TXN1/IDD.pdf":           "a",
		"Opening/TXN1/OPA.xml":           "c",
		"OpeningOld/TXN1/IDD.pdf":        "x",
		"Customer/CUS1/PID.pdf":          "d",
		"Opening/TXN1/IDD.pdf.meta.json": `{"original-timestamp":"2025-12-01T00:00:00"}`,
	})
	store := NewLocal(root)

	infos, err := store.List(context.Background(), "Opening/")
	require.NoError(t, err)
	assert.Equal(t, []string{"Opening/TXN1/IDD.pdf", "Opening/TXN1/OPA.xml", "Opening/TXN2/KYC.pdf"}, keys(infos))
	assert.EqualValues(t, 1, infos[0].Size)
}

func TestLocalListMissingPrefix(t *testing.T) {
	store := NewLocal(t.TempDir())
	infos, err := store.List(context.Background(), "Customer/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestLocalListMissingRoot(t *testing.T) {
	store := NewLocal(filepath.Join(t.TempDir(), "gone"))
	_, err := store.List(context.Background(), "Opening/")
	assert.Error(t, err)
}

func TestLocalPutStatDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root)
	ctx := context.Background()
	key := "archives/Opening_2025-12.zip"

	err := store.Put(ctx, key, strings.NewReader("zipdata"), 7, map[string]string{"archive-month": "2025-12"})
	require.NoError(t, err)
	assert.FileExists(t, SidecarPath(filepath.Join(root, "archives", "Opening_2025-12.zip")))

	info, err := store.Stat(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.Size)
	v, ok := info.MetadataValue("Archive-Month")
	assert.True(t, ok)
	assert.Equal(t, "2025-12", v)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "zipdata", string(body))

	listed, err := store.List(ctx, "archives/")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys(listed))

	require.NoError(t, store.Delete(ctx, key))
	assert.NoFileExists(t, filepath.Join(root, "archives", "Opening_2025-12.zip"))
	assert.NoFileExists(t, SidecarPath(filepath.Join(root, "archives", "Opening_2025-12.zip")))
}

func TestLocalStatWithoutSidecar(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Customer/CUS1/PID.pdf": "pid"})

	info, err := NewLocal(root).Stat(context.Background(), "Customer/CUS1/PID.pdf")
	require.NoError(t, err)
	assert.Empty(t, info.Metadata)
	_, ok := info.MetadataValue("original-timestamp")
	assert.False(t, ok)
}

func TestDownloadUpload(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Opening/TXN1/IDD.pdf": "pdf"})
	store := NewLocal(root)
	ctx := context.Background()

	dest := filepath.Join(t.TempDir(), "nested", "IDD.pdf")
	require.NoError(t, Download(ctx, store, "Opening/TXN1/IDD.pdf", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))

	require.NoError(t, Upload(ctx, store, "archives/copy.pdf", dest, nil))
	got, err = os.ReadFile(filepath.Join(root, "archives", "copy.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))
}

func TestLocation(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewLocal("/srv/bucket").Location(), "file://"))
}
