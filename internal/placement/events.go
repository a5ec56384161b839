package placement

import (
	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

// Event is one input to Context.Update. Events are applied in the order given.
type Event interface {
	event()
}

// HitTestResult reports that this frame's hit-test found a surface.
type HitTestResult struct {
	Pose spatial.Matrix
}

// HitTestEmpty reports that this frame's hit-test found nothing.
type HitTestEmpty struct{}

// Variant selects what a tap places.
type Variant int

const (
	// VariantModel clones the model template at the marker position.
	VariantModel Variant = iota
	// VariantImagePlane requests a fetched image plane at the marker pose.
	VariantImagePlane
)

func (v Variant) String() string {
	switch v {
	case VariantModel:
		return "model"
	case VariantImagePlane:
		return "image-plane"
	}
	return "unknown"
}

// Select is a user tap.
type Select struct {
	Variant Variant
}

// AddContent adds an already positioned node, e.g. an image plane whose
// texture finished loading after the tap.
type AddContent struct {
	Node *scene.Node
}

func (HitTestResult) event() {}
func (HitTestEmpty) event()  {}
func (Select) event()        {}
func (AddContent) event()    {}
