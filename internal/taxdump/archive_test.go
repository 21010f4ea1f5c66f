package taxdump

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxdump.tar.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractDump(t *testing.T) {
	t.Run("extracts both dump files", func(t *testing.T) {
		nodes := "9606\t|\t9605\t|\tspecies\t|\n"
		names := "9606\t|\tHomo sapiens\t|\t\t|\tscientific name\t|\n"
		archive := writeArchive(t, map[string]string{
			"nodes.dmp":     nodes,
			"names.dmp":     names,
			"citations.dmp": "ignored\n",
		})

		dir := t.TempDir()
		nodesPath, namesPath, err := ExtractDump(archive, dir)
		require.NoError(t, err)

		got, err := os.ReadFile(nodesPath)
		require.NoError(t, err)
		assert.Equal(t, nodes, string(got))

		got, err = os.ReadFile(namesPath)
		require.NoError(t, err)
		assert.Equal(t, names, string(got))
	})

	t.Run("missing member", func(t *testing.T) {
		archive := writeArchive(t, map[string]string{
			"nodes.dmp": "1\t|\t1\t|\tno rank\t|\n",
		})

		_, _, err := ExtractDump(archive, t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingDumpFile))
	})

	t.Run("nonexistent archive", func(t *testing.T) {
		_, _, err := ExtractDump(filepath.Join(t.TempDir(), "nope.tar.gz"), t.TempDir())
		require.Error(t, err)
	})

	t.Run("not gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.tar.gz")
		require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o644))

		_, _, err := ExtractDump(path, t.TempDir())
		require.Error(t, err)
	})
}
