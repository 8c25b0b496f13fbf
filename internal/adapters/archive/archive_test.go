package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

func newTestArchive(t *testing.T) (*Archive, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	cfg := &domain.Config{Env: domain.EnvConfig{Paths: domain.Paths{
		Data:    filepath.Join(root, "data"),
		Archive: filepath.Join(root, "archives", "data.tar.gz"),
	}}}
	var out bytes.Buffer
	a := NewArchive(cfg, usecase.Streams{Out: &out, Err: io.Discard}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.showBars = false
	return a, &out
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCompressThenLoad(t *testing.T) {
	a, out := newTestArchive(t)
	writeTree(t, a.dataDir, map[string]string{
		"anvil/state.json":           `{"block":12}`,
		"postgres/base/1/PG_VERSION": "16",
		"README":                     "data",
	})
	require.NoError(t, os.Symlink("state.json", filepath.Join(a.dataDir, "anvil", "latest")))

	require.NoError(t, a.Compress(context.Background()))
	assert.FileExists(t, a.archivePath)
	assert.Contains(t, out.String(), "Compressing")
	assert.Contains(t, out.String(), "Compressed archive")

	// stale content must disappear on load
	writeTree(t, a.dataDir, map[string]string{"stale.txt": "old"})

	require.NoError(t, a.Load(context.Background()))
	assert.Equal(t, `{"block":12}`, readFile(t, filepath.Join(a.dataDir, "anvil", "state.json")))
	assert.Equal(t, "16", readFile(t, filepath.Join(a.dataDir, "postgres", "base", "1", "PG_VERSION")))
	assert.NoFileExists(t, filepath.Join(a.dataDir, "stale.txt"))

	link, err := os.Readlink(filepath.Join(a.dataDir, "anvil", "latest"))
	require.NoError(t, err)
	assert.Equal(t, "state.json", link)
	assert.Contains(t, out.String(), "Decompressed and copied in")
}

func TestCompress_LeavesNoTempFiles(t *testing.T) {
	a, _ := newTestArchive(t)
	writeTree(t, a.dataDir, map[string]string{"a": "1"})

	require.NoError(t, a.Compress(context.Background()))

	entries, err := os.ReadDir(filepath.Dir(a.archivePath))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.tar.gz", entries[0].Name())
}

func TestCompress_MissingDataDir(t *testing.T) {
	a, _ := newTestArchive(t)
	err := a.Compress(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, a.archivePath)
}

func TestCompress_RequiresPaths(t *testing.T) {
	a, _ := newTestArchive(t)
	a.archivePath = ""
	assert.ErrorIs(t, a.Compress(context.Background()), domain.ErrInvalidConfig)
}

func TestLoad_RejectsPathTraversal(t *testing.T) {
	a, _ := newTestArchive(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.archivePath), 0755))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("owned")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape.txt", Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(a.archivePath, buf.Bytes(), 0644))

	err = a.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes the data directory")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(a.dataDir), "escape.txt"))
}

func TestLoad_RejectsEscapingSymlink(t *testing.T) {
	a, _ := newTestArchive(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.archivePath), 0755))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "link", Linkname: "../../etc/passwd", Typeflag: tar.TypeSymlink}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(a.archivePath, buf.Bytes(), 0644))

	err := a.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing symlink")
}

func TestLoad_MissingArchive(t *testing.T) {
	a, _ := newTestArchive(t)
	writeTree(t, a.dataDir, map[string]string{"keep": "me"})

	require.Error(t, a.Load(context.Background()))
	assert.FileExists(t, filepath.Join(a.dataDir, "keep"))
}

func TestClean(t *testing.T) {
	a, out := newTestArchive(t)
	writeTree(t, a.dataDir, map[string]string{"x/y": "z"})

	require.NoError(t, a.Clean(context.Background()))

	entries, err := os.ReadDir(a.dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "Cleaning data directory...\n", out.String())
}

func TestSafeJoin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data")

	got, err := safeJoin(root, "a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b"), got)

	_, err = safeJoin(root, "../x")
	assert.Error(t, err)

	got, err = safeJoin(root, "a/../..data/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "..data", "x"), got)
}
