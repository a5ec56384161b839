package asset

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xr-anchor/internal/scene"
)

func TestLoadModelTakesFirstRootNode(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "Armature", Children: []int{1}},
		{Name: "Koala", Translation: [3]float64{0, 0.1, 0}, Scale: [3]float64{0.5, 0.5, 0.5}},
	}
	doc.Scenes[0].Nodes = []int{0}
	path := filepath.Join(t.TempDir(), "koala.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	n, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "Armature", n.Name)
	assert.Equal(t, scene.KindModel, n.Kind)
	assert.Equal(t, path, n.Asset)
	assert.False(t, n.Visible)
	assert.InDelta(t, 1, n.Transform.ScaleOf().X, 1e-6)

	doc.Scenes[0].Nodes = []int{1}
	require.NoError(t, gltf.SaveBinary(doc, path))
	n, err = LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "Koala", n.Name)
	assert.InDelta(t, 0.1, n.Transform.Position().Y, 1e-6)
	assert.InDelta(t, 0.5, n.Transform.ScaleOf().X, 1e-6)
}

func TestLoadModelEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	require.NoError(t, gltf.SaveBinary(gltf.NewDocument(), path))

	_, err := LoadModel(path)
	assert.True(t, errors.Is(err, ErrEmptyModel))
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.glb"))
	assert.Error(t, err)
}

func writeModelZip(t *testing.T, dir string) string {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{{Name: "Koala"}}
	doc.Scenes[0].Nodes = []int{0}
	var glb bytes.Buffer
	enc := gltf.NewEncoder(&glb)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))

	path := filepath.Join(dir, "koala.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("source/koala.glb")
	require.NoError(t, err)
	_, err = w.Write(glb.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestResolveZipBundle(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeModelZip(t, dir)
	cache := filepath.Join(dir, "cache")

	path, err := Resolve(context.Background(), zipPath, cache)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "koala", "source", "koala.glb"), path)

	n, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "Koala", n.Name)

	// Second call reuses the unpacked bundle.
	require.NoError(t, os.Remove(zipPath))
	again, err := Resolve(context.Background(), zipPath, cache)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestResolveURL(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(writeModelZip(t, dir))
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data)
	}))
	defer srv.Close()

	path, err := Resolve(context.Background(), srv.URL+"/models/koala.zip", filepath.Join(dir, "cache"))
	require.NoError(t, err)
	assert.Equal(t, ".glb", filepath.Ext(path))
}

func TestResolveLocalPathUnchanged(t *testing.T) {
	path, err := Resolve(context.Background(), "models/koala.glb", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "models/koala.glb", path)
}
