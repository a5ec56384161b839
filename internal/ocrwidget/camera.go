package ocrwidget

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DirCamera plays the still images of a directory in name order, each for
// FrameDuration, looping at the end.
type DirCamera struct {
	Dir           string
	FrameDuration time.Duration // one second when zero
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Open decodes all frames up front.
func (c *DirCamera) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no frames in %s", c.Dir)
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := decodeFile(filepath.Join(c.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", name, err)
		}
		frames = append(frames, img)
	}
	d := c.FrameDuration
	if d <= 0 {
		d = time.Second
	}
	return &dirStream{frames: frames, frameDuration: d, start: time.Now(), now: time.Now}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

type dirStream struct {
	mu            sync.Mutex
	frames        []image.Image
	frameDuration time.Duration
	start         time.Time
	now           func() time.Time
	closed        bool
}

func (s *dirStream) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	i := int(s.now().Sub(s.start)/s.frameDuration) % len(s.frames)
	return s.frames[i], true
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream already closed")
	}
	s.closed = true
	s.frames = nil
	return nil
}
