// Package archive unpacks zipped model bundles.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxEntrySize bounds a single extracted file.
const MaxEntrySize = 256 << 20

// Unzip extracts zipPath into destDir, preserving directory structure.
// Entries that would land outside destDir are skipped. Returns the extracted
// file paths.
func Unzip(zipPath, destDir string) (extracted []string, err error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	defer r.Close()
	absDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	for _, f := range r.File {
		dest := filepath.Join(absDir, f.Name)
		if !strings.HasPrefix(dest, absDir+string(os.PathSeparator)) {
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, fmt.Errorf("unzip: %w", err)
			}
			continue
		}
		if err := extract(f, dest); err != nil {
			return nil, fmt.Errorf("unzip: %s: %w", f.Name, err)
		}
		extracted = append(extracted, dest)
	}
	return extracted, nil
}

func extract(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, MaxEntrySize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxEntrySize {
		err = fmt.Errorf("entry larger than %d bytes", MaxEntrySize)
	}
	return err
}

// FindModels returns the .glb and .gltf files under dir, binary files first,
// then by path depth so a bundle's top-level model wins over nested ones.
func FindModels(dir string) ([]string, error) {
	var glb, gltf []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "__MACOSX") {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".glb":
			glb = append(glb, path)
		case ".gltf":
			gltf = append(gltf, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	byDepth := func(paths []string) {
		depth := func(p string) int { return strings.Count(filepath.ToSlash(p), "/") }
		for i := 1; i < len(paths); i++ {
			for j := i; j > 0 && depth(paths[j]) < depth(paths[j-1]); j-- {
				paths[j], paths[j-1] = paths[j-1], paths[j]
			}
		}
	}
	byDepth(glb)
	byDepth(gltf)
	return append(glb, gltf...), nil
}
