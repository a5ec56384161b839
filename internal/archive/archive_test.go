package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestUnzipSkipsEscapingEntries(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"koala/scene.gltf": "{}",
		"koala/scene.bin":  "bin",
		"../../evil.txt":   "nope",
	})
	dest := filepath.Join(t.TempDir(), "out")

	files, err := Unzip(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	_, err = os.Stat(filepath.Join(dest, "koala", "scene.gltf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFindModelsOrder(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"a/b/deep.glb":        "x",
		"top.gltf":            "{}",
		"a/shallow.glb":       "x",
		"__MACOSX/a/junk.glb": "x",
		"readme.txt":          "hi",
	})
	dest := t.TempDir()
	_, err := Unzip(zipPath, dest)
	require.NoError(t, err)

	models, err := FindModels(dest)
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "shallow.glb", filepath.Base(models[0]))
	assert.Equal(t, "deep.glb", filepath.Base(models[1]))
	assert.Equal(t, "top.gltf", filepath.Base(models[2]))
}
