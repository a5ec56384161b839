// Package viewer is the desktop AR simulator: a raylib window where the grid
// floor stands in for detected surfaces and the mouse ray for the hit-test.
package viewer

import (
	"context"
	"time"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"xr-anchor/internal/gltfexport"
	"xr-anchor/internal/placement"
	"xr-anchor/internal/scene"
	"xr-anchor/internal/session"
	"xr-anchor/internal/spatial"
)

// floorExtent is half the side of the square that counts as a detected surface.
const floorExtent = 50

// Options configure the window.
type Options struct {
	Width, Height int
	Title         string
	ShowFPS       bool
	GridVisible   bool
	// ExportPath is written when G is pressed.
	ExportPath string
	// Lines returns recent log lines for the overlay; optional.
	Lines  func() []string
	Logger *zap.Logger
}

// Viewer owns the window, the camera and GPU resources. All methods must be
// called from the goroutine that called Run.
type Viewer struct {
	opts   Options
	log    *zap.Logger
	camera rl.Camera3D
	hud    *hud
	assets *assetCache
	closed bool
}

// New returns a viewer; the window opens in Run.
func New(opts Options) *Viewer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Title == "" {
		opts.Title = "xr-anchor"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	v := &Viewer{opts: opts, log: log, hud: newHUD(opts.ShowFPS)}
	v.camera.Position = rl.NewVector3(0, 1.6, 2)
	v.camera.Target = rl.NewVector3(0, 0, -1)
	v.camera.Up = rl.NewVector3(0, 1, 0)
	v.camera.Fovy = 70
	v.camera.Projection = rl.CameraPerspective
	return v
}

// UseCamera copies the scene camera's field of view.
func (v *Viewer) UseCamera(c scene.Camera) {
	v.camera.Fovy = c.FovY
}

// Open creates the window. It must run before Run and before any GPU resource
// is created.
func (v *Viewer) Open() {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(v.opts.Width), int32(v.opts.Height), v.opts.Title)
	rl.SetTargetFPS(60)
	v.assets = newAssetCache(v.log)
}

// Run drives sess once per displayed frame until the window is closed or ctx
// is done. Left click places a model, E requests an image plane, G exports
// the scene, F toggles the FPS counter; hold the right button to look around.
func (v *Viewer) Run(ctx context.Context, sess *session.Session) {
	defer rl.CloseWindow()
	defer v.assets.unload()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; !rl.WindowShouldClose() && ctx.Err() == nil; i++ {
		v.handleInput(sess)

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(24, 26, 32, 255))
		// Step calls HitTest and then Render on this goroutine.
		sess.Step(ctx, placement.Frame{Index: i, Time: time.Now()})
		v.hud.draw(v.lines())
		rl.EndDrawing()
	}
	// Pending image planes are abandoned with the window.
	cancel()
	v.closed = true
	sess.Finish(ctx)
}

func (v *Viewer) lines() []string {
	if v.opts.Lines == nil {
		return nil
	}
	return v.opts.Lines()
}

func (v *Viewer) handleInput(sess *session.Session) {
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		rl.UpdateCamera(&v.camera, rl.CameraFree)
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		sess.Select(placement.VariantModel)
	}
	if rl.IsKeyPressed(rl.KeyE) {
		sess.Select(placement.VariantImagePlane)
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.hud.showFPS = !v.hud.showFPS
	}
	if rl.IsKeyPressed(rl.KeyG) && v.opts.ExportPath != "" {
		if err := gltfexport.Save(v.opts.ExportPath, sess.Scene()); err != nil {
			v.log.Error("export failed", zap.Error(err))
			v.Alert("Export failed.")
		} else {
			v.log.Info("scene exported", zap.String("path", v.opts.ExportPath))
		}
	}
}

// HitTest casts the mouse ray against the floor square.
func (v *Viewer) HitTest(_ context.Context, _ placement.Frame) (spatial.Matrix, bool, error) {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), v.camera)
	const e = floorExtent
	hit := rl.GetRayCollisionQuad(ray,
		rl.NewVector3(-e, 0, -e),
		rl.NewVector3(-e, 0, e),
		rl.NewVector3(e, 0, e),
		rl.NewVector3(e, 0, -e),
	)
	if !hit.Hit {
		return spatial.Matrix{}, false, nil
	}
	p := hit.Point
	// Surface +Z faces the viewer so image planes read upright.
	yaw := math32.Atan2(v.camera.Position.X-p.X, v.camera.Position.Z-p.Z)
	return spatial.Translate(p.X, p.Y, p.Z).Mul(spatial.RotationY(yaw)), true, nil
}

// Alert shows msg in the overlay for a few seconds.
func (v *Viewer) Alert(msg string) {
	v.hud.alert(msg, 4*time.Second)
}

// IsSessionSupported always reports true: the simulator is an AR platform.
func (v *Viewer) IsSessionSupported(context.Context, string) (bool, error) {
	return true, nil
}

// RequestSession accepts any feature set; hit-testing is the mouse ray.
func (v *Viewer) RequestSession(context.Context, string, []string) error {
	return nil
}

// ShowMessage shows the lines as a banner until the first tap.
func (v *Viewer) ShowMessage(lines []string) {
	v.hud.banner = lines
}

// Render draws the 3D scene; the session calls it after every update.
func (v *Viewer) Render(s *scene.Scene, m placement.Marker) {
	if v.closed {
		return
	}
	if m.Visible && len(v.hud.banner) > 0 && rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		v.hud.banner = nil
	}
	for _, n := range s.Nodes() {
		if n.Kind == scene.KindLight && n.Visible {
			v.assets.light.setLight(n.Color, n.Intensity)
		}
	}
	v.assets.light.apply(v.camera.Position)

	rl.BeginMode3D(v.camera)
	if v.opts.GridVisible {
		drawEditorGrid()
	}
	for _, n := range s.Nodes() {
		v.drawNode(n)
	}
	rl.EndMode3D()
}

var (
	_ session.Platform    = (*Viewer)(nil)
	_ session.Renderer    = (*Viewer)(nil)
	_ placement.HitTester = (*Viewer)(nil)
)
