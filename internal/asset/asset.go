// Package asset resolves and loads the glTF model that placement clones.
package asset

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"

	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

// DefaultModelPath is the placeholder model loaded once when the scene is composed.
const DefaultModelPath = "models/koala.glb"

// ErrEmptyModel is returned when a glTF file has no node to use as a template.
var ErrEmptyModel = errors.New("asset: model has no nodes")

// LoadModel opens a glTF/GLB file and returns the first child of its default
// scene as a model template node. The node is hidden; placement clones make
// their copies visible.
func LoadModel(path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	idx, ok := RootNode(doc)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmptyModel, path)
	}
	src := doc.Nodes[idx]

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", idx)
	}
	n := scene.NewNode(scene.KindModel, name)
	n.Asset = path
	n.Transform = nodeTransform(src)
	n.Visible = false
	return n, nil
}

// RootNode returns the first node of doc's default scene, falling back to
// node 0 when the document has no scene.
func RootNode(doc *gltf.Document) (int, bool) {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			si = *doc.Scene
		}
		for _, ni := range doc.Scenes[si].Nodes {
			if ni >= 0 && ni < len(doc.Nodes) {
				return ni, true
			}
		}
	}
	if len(doc.Nodes) > 0 {
		return 0, true
	}
	return 0, false
}

func nodeTransform(n *gltf.Node) spatial.Matrix {
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != ([16]float64{}) {
		var m spatial.Matrix
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}
	p := spatial.Vec3{X: float32(n.Translation[0]), Y: float32(n.Translation[1]), Z: float32(n.Translation[2])}
	q := spatial.Quat{X: float32(n.Rotation[0]), Y: float32(n.Rotation[1]), Z: float32(n.Rotation[2]), W: float32(n.Rotation[3])}
	if q == (spatial.Quat{}) {
		q = spatial.IdentityQuat
	}
	s := spatial.Vec3{X: float32(n.Scale[0]), Y: float32(n.Scale[1]), Z: float32(n.Scale[2])}
	if s == (spatial.Vec3{}) {
		s = spatial.Vec3{X: 1, Y: 1, Z: 1}
	}
	return spatial.Compose(p, q, s)
}
