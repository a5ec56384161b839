// Package scene is the scene graph content is placed into.
package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"xr-anchor/internal/spatial"
)

// Kind tells renderers and exporters what a node stands for.
type Kind string

const (
	KindLight      Kind = "light"
	KindMarker     Kind = "marker"
	KindController Kind = "controller"
	KindModel      Kind = "model"
	KindImagePlane Kind = "image_plane"
)

// Camera defaults match a handheld AR view: 70° vertical fov, near 2cm, far 20m.
const (
	defaultFovY = 70
	defaultNear = 0.02
	defaultFar  = 20
)

// Marker ring dimensions in metres (inner and outer radius).
const (
	markerInner = 0.15
	markerOuter = 0.2
)

// Camera is the perspective projection used for the AR view.
type Camera struct {
	FovY float32
	Near float32
	Far  float32
}

// Node is one object in the scene graph. Placed content is added and never removed.
type Node struct {
	ID        string
	Name      string
	Kind      Kind
	Transform spatial.Matrix
	Visible   bool
	// Asset is the model file a KindModel node renders.
	Asset string
	// Texture is a file path or URL for KindImagePlane nodes.
	Texture string
	// Size is width and height in metres for image planes, inner/outer radius for the marker.
	Size      [2]float32
	Color     uint32
	Intensity float32
	Children  []*Node
}

// NewNode returns a visible node with an identity transform and a fresh id.
func NewNode(kind Kind, name string) *Node {
	return &Node{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Transform: spatial.Identity(),
		Visible:   true,
	}
}

// Clone returns a deep copy of n. The copy and all its descendants get new ids.
func (n *Node) Clone() (*Node, error) {
	c := &Node{}
	if err := copier.CopyWithOption(c, n, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("scene: clone %q: %w", n.Name, err)
	}
	reassignIDs(c)
	return c, nil
}

func reassignIDs(n *Node) {
	n.ID = uuid.NewString()
	for _, child := range n.Children {
		reassignIDs(child)
	}
}

// Scene holds the camera and the top-level nodes. It is owned by a single
// goroutine (the frame loop); it does no locking of its own.
type Scene struct {
	Camera Camera
	nodes  []*Node
}

// New returns an empty scene with the default AR camera.
func New() *Scene {
	return &Scene{
		Camera: Camera{FovY: defaultFovY, Near: defaultNear, Far: defaultFar},
	}
}

// Compose builds the lit scene the placement loop works on: a white ambient
// light, the hidden placement marker and the input controller.
func Compose() *Scene {
	s := New()

	light := NewNode(KindLight, "ambient")
	light.Color = 0xffffff
	light.Intensity = 1.0
	s.Add(light)

	marker := NewNode(KindMarker, "plane-marker")
	marker.Visible = false
	marker.Size = [2]float32{markerInner, markerOuter}
	s.Add(marker)

	s.Add(NewNode(KindController, "controller-0"))
	return s
}

// Add appends n to the scene.
func (s *Scene) Add(n *Node) {
	s.nodes = append(s.nodes, n)
}

// Nodes returns a copy of the top-level node list.
func (s *Scene) Nodes() []*Node {
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Len returns the number of top-level nodes.
func (s *Scene) Len() int {
	return len(s.nodes)
}

// Count returns how many top-level nodes have the given kind.
func (s *Scene) Count(kind Kind) int {
	var n int
	for _, node := range s.nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// Marker returns the placement marker node, or nil when the scene has none.
func (s *Scene) Marker() *Node {
	for _, node := range s.nodes {
		if node.Kind == KindMarker {
			return node
		}
	}
	return nil
}
