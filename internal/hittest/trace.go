// Package hittest replays recorded AR sessions from YAML traces, standing in
// for the device's hit-test source and capability queries.
package hittest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"xr-anchor/internal/placement"
	"xr-anchor/internal/spatial"
)

// FrameSpec is one recorded frame. A frame with neither Pose nor Position
// is a miss.
type FrameSpec struct {
	// Pose is a column-major 4x4 matrix.
	Pose []float32 `yaml:"pose,omitempty"`
	// Position and Yaw are a shorthand for a horizontal surface hit.
	Position []float32 `yaml:"position,omitempty"`
	Yaw      float32   `yaml:"yaw,omitempty"`
	// Taps happen after this frame's hit-test; values are "model" or "image".
	Taps []string `yaml:"taps,omitempty"`
	// Error simulates a failing hit-test source.
	Error string `yaml:"error,omitempty"`
}

// Trace is a recorded session.
type Trace struct {
	ImmersiveAR bool        `yaml:"immersive_ar"`
	Features    []string    `yaml:"features"`
	Frames      []FrameSpec `yaml:"frames"`

	mu       sync.Mutex
	poses    []spatial.Matrix
	hits     []bool
	messages [][]string
	log      *zap.Logger
}

// Load reads and validates a trace file.
func Load(path string, log *zap.Logger) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hittest: %w", err)
	}
	return Parse(data, log)
}

// Parse decodes a YAML trace.
func Parse(data []byte, log *zap.Logger) (*Trace, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("hittest: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	t.log = log
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Trace) compile() error {
	t.poses = make([]spatial.Matrix, len(t.Frames))
	t.hits = make([]bool, len(t.Frames))
	for i, f := range t.Frames {
		switch {
		case len(f.Pose) > 0:
			m, err := spatial.FromArray(f.Pose)
			if err != nil {
				return fmt.Errorf("hittest: frame %d: %w", i, err)
			}
			t.poses[i], t.hits[i] = m, true
		case len(f.Position) > 0:
			if len(f.Position) != 3 {
				return fmt.Errorf("hittest: frame %d: position needs 3 values, got %d", i, len(f.Position))
			}
			p := f.Position
			t.poses[i] = spatial.Translate(p[0], p[1], p[2]).Mul(spatial.RotationY(f.Yaw))
			t.hits[i] = true
		}
		for _, tap := range f.Taps {
			if _, err := ParseVariant(tap); err != nil {
				return fmt.Errorf("hittest: frame %d: %w", i, err)
			}
		}
	}
	return nil
}

// ParseVariant maps a tap name to a placement variant.
func ParseVariant(s string) (placement.Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "model", "":
		return placement.VariantModel, nil
	case "image", "image-plane", "image_plane":
		return placement.VariantImagePlane, nil
	}
	return 0, fmt.Errorf("unknown tap variant %q", s)
}

// Len returns the number of frames.
func (t *Trace) Len() int { return len(t.Frames) }

// Taps returns the variants tapped after frame i.
func (t *Trace) Taps(i int) []placement.Variant {
	if i < 0 || i >= len(t.Frames) {
		return nil
	}
	out := make([]placement.Variant, 0, len(t.Frames[i].Taps))
	for _, s := range t.Frames[i].Taps {
		v, _ := ParseVariant(s)
		out = append(out, v)
	}
	return out
}

// HitTest returns the recorded answer for f.Index. Frames past the end miss.
func (t *Trace) HitTest(_ context.Context, f placement.Frame) (spatial.Matrix, bool, error) {
	if f.Index < 0 || f.Index >= len(t.Frames) {
		return spatial.Matrix{}, false, nil
	}
	if msg := t.Frames[f.Index].Error; msg != "" {
		return spatial.Matrix{}, false, fmt.Errorf("hittest: %s", msg)
	}
	return t.poses[f.Index], t.hits[f.Index], nil
}

// IsSessionSupported reports the recorded immersive-ar capability.
func (t *Trace) IsSessionSupported(_ context.Context, mode string) (bool, error) {
	return mode == "immersive-ar" && t.ImmersiveAR, nil
}

// RequestSession succeeds when every required feature was recorded.
func (t *Trace) RequestSession(_ context.Context, mode string, required []string) error {
	if mode != "immersive-ar" || !t.ImmersiveAR {
		return fmt.Errorf("hittest: session mode %q not available", mode)
	}
	for _, f := range required {
		if !slices.Contains(t.Features, f) {
			return fmt.Errorf("hittest: required feature %q not available", f)
		}
	}
	return nil
}

// ShowMessage logs the lines and keeps them for inspection.
func (t *Trace) ShowMessage(lines []string) {
	t.mu.Lock()
	t.messages = append(t.messages, slices.Clone(lines))
	t.mu.Unlock()
	t.log.Info("message", zap.Strings("lines", lines))
}

// Messages returns everything shown so far.
func (t *Trace) Messages() [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}
