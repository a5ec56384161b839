package viewer

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

const (
	gridExtent     = floorExtent
	gridMinorStep  = 1
	gridMajorStep  = 10
	gridMinorAlpha = 50
	gridMajorAlpha = 120
	axisLineAlpha  = 220
)

// drawEditorGrid draws the floor grid on the XZ plane with major/minor lines and axis lines.
func drawEditorGrid() {
	minor := rl.NewColor(128, 128, 128, gridMinorAlpha)
	major := rl.NewColor(160, 160, 160, gridMajorAlpha)
	axisX := rl.NewColor(220, 80, 80, axisLineAlpha)
	axisZ := rl.NewColor(80, 80, 220, axisLineAlpha)

	var start, end rl.Vector3
	for i := -gridExtent; i <= gridExtent; i += gridMinorStep {
		c := major
		if i%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(i), 0, -gridExtent
		end.X, end.Y, end.Z = float32(i), 0, gridExtent
		rl.DrawLine3D(start, end, c)
		start.X, start.Y, start.Z = -gridExtent, 0, float32(i)
		end.X, end.Y, end.Z = gridExtent, 0, float32(i)
		rl.DrawLine3D(start, end, c)
	}

	rl.DrawLine3D(rl.NewVector3(-gridExtent, 0.001, 0), rl.NewVector3(gridExtent, 0.001, 0), axisX)
	rl.DrawLine3D(rl.NewVector3(0, 0.001, -gridExtent), rl.NewVector3(0, 0.001, gridExtent), axisZ)
}

func (v *Viewer) drawNode(n *scene.Node) {
	if !n.Visible {
		return
	}
	switch n.Kind {
	case scene.KindMarker:
		drawMarker(n)
	case scene.KindModel:
		v.drawModel(n)
	case scene.KindImagePlane:
		v.drawImagePlane(n)
	}
	for _, c := range n.Children {
		v.drawNode(c)
	}
}

// drawMarker draws the reticle as two flat circles slightly above the surface.
func drawMarker(n *scene.Node) {
	p := n.Transform.Position()
	center := rl.NewVector3(p.X, p.Y+0.002, p.Z)
	axis := rl.NewVector3(1, 0, 0)
	rl.DrawCircle3D(center, n.Size[0], axis, 90, rl.White)
	rl.DrawCircle3D(center, n.Size[1], axis, 90, rl.White)
}

func (v *Viewer) drawModel(n *scene.Node) {
	model, ok := v.assets.model(n.Asset)
	if !ok {
		p := n.Transform.Position()
		s := n.Transform.ScaleOf()
		rl.DrawCubeWires(rl.NewVector3(p.X, p.Y+0.1*s.Y, p.Z), 0.2*s.X, 0.2*s.Y, 0.2*s.Z, rl.Magenta)
		return
	}
	model.Transform = toRL(n.Transform)
	rl.DrawModel(model, rl.NewVector3(0, 0, 0), 1, rl.White)
}

// drawImagePlane stands a unit XZ plane up so it faces the pose's +Z with its
// bottom edge on the surface, then scales it to the node's size.
func (v *Viewer) drawImagePlane(n *scene.Node) {
	m := n.Transform.
		Mul(spatial.Translate(0, n.Size[1]/2, 0)).
		Mul(spatial.RotationX(math32.Pi / 2)).
		Mul(spatial.Scale(n.Size[0], 1, n.Size[1]))
	rl.DisableBackfaceCulling()
	rl.DrawMesh(v.assets.plane(), v.assets.material(n.Texture), toRL(m))
	rl.EnableBackfaceCulling()
}

// toRL converts a column-major transform into raylib's matrix; Mi is element i.
func toRL(m spatial.Matrix) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}
