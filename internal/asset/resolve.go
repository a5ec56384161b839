package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xr-anchor/internal/archive"
	"xr-anchor/internal/download"
)

// DefaultCacheDir holds downloaded and unpacked models.
const DefaultCacheDir = "models/cache"

// Resolve turns a model reference into a local glTF/GLB path. ref may be a
// local file, an http(s) URL, or a .zip bundle (local or remote) containing
// a model. Downloads and bundles are kept under cacheDir; a bundle already
// unpacked there is reused.
func Resolve(ctx context.Context, ref, cacheDir string) (string, error) {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir
	}
	path := ref
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		p, err := download.Download(ctx, ref, cacheDir)
		if err != nil {
			return "", fmt.Errorf("asset: %w", err)
		}
		path = p
	}
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return path, nil
	}

	dir := filepath.Join(cacheDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if models, err := archive.FindModels(dir); err == nil && len(models) > 0 {
		return models[0], nil
	}
	if _, err := archive.Unzip(path, dir); err != nil {
		return "", fmt.Errorf("asset: %w", err)
	}
	models, err := archive.FindModels(dir)
	if err != nil {
		return "", fmt.Errorf("asset: %w", err)
	}
	if len(models) == 0 {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%w: no .glb or .gltf in %s", ErrEmptyModel, path)
	}
	return models[0], nil
}
