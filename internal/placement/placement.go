// Package placement turns hit-test results and taps into placed scene content.
package placement

import (
	"errors"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

// ErrNoTemplate is reported when a model tap arrives before the model asset loaded.
var ErrNoTemplate = errors.New("placement: model template not loaded")

// Marker is the single cached placement pose. It is overwritten by every
// hit-test event and read by every tap.
type Marker struct {
	Transform spatial.Matrix
	Visible   bool
}

// ImageRequest asks the caller to build an image plane for a tap that hit a
// visible marker. Pose is the marker pose at the time of the tap.
type ImageRequest struct {
	Pose spatial.Matrix
}

// Outcome is what one Update call changed.
type Outcome struct {
	Placed   []*scene.Node
	Requests []ImageRequest
	Errors   []error
}

// Options configure model placement.
type Options struct {
	// Template is cloned for every model tap.
	Template *scene.Node
	// Yaw is the fixed orientation (radians around Y) of placed models.
	Yaw float32
	// RandomYaw replaces Yaw with a random angle in [0, 2π) per placement.
	RandomYaw bool
	// Rand returns a value in [0, 1); defaults to math/rand/v2.
	Rand   func() float32
	Logger *zap.Logger
}

// Context owns the placement marker and the scene it places content into.
// It is not safe for concurrent use; the frame loop is its only caller.
type Context struct {
	marker Marker
	scene  *scene.Scene
	opts   Options
	log    *zap.Logger
}

// NewContext returns a context with a hidden marker.
func NewContext(s *scene.Scene, opts Options) *Context {
	if opts.Rand == nil {
		opts.Rand = rand.Float32
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		marker: Marker{Transform: spatial.Identity()},
		scene:  s,
		opts:   opts,
		log:    log,
	}
}

// Marker returns the current placement pose.
func (c *Context) Marker() Marker {
	return c.marker
}

// Scene returns the scene content is placed into.
func (c *Context) Scene() *scene.Scene {
	return c.scene
}

// SetTemplate replaces the model template, e.g. once the asset finished loading.
func (c *Context) SetTemplate(n *scene.Node) {
	c.opts.Template = n
}

// Update applies events in order and reports what changed.
func (c *Context) Update(events ...Event) Outcome {
	var out Outcome
	for _, ev := range events {
		switch e := ev.(type) {
		case HitTestResult:
			c.marker = Marker{Transform: e.Pose, Visible: true}
		case HitTestEmpty:
			c.marker.Visible = false
		case Select:
			c.handleSelect(e, &out)
		case AddContent:
			if e.Node == nil {
				continue
			}
			e.Node.Visible = true
			c.scene.Add(e.Node)
			out.Placed = append(out.Placed, e.Node)
		}
	}
	c.syncMarkerNode()
	return out
}

func (c *Context) handleSelect(e Select, out *Outcome) {
	if !c.marker.Visible {
		return
	}
	switch e.Variant {
	case VariantImagePlane:
		out.Requests = append(out.Requests, ImageRequest{Pose: c.marker.Transform})
	default:
		n, err := c.placeModel()
		if err != nil {
			c.log.Warn("model placement failed", zap.Error(err))
			out.Errors = append(out.Errors, err)
			return
		}
		c.scene.Add(n)
		out.Placed = append(out.Placed, n)
	}
}

func (c *Context) placeModel() (*scene.Node, error) {
	if c.opts.Template == nil {
		return nil, ErrNoTemplate
	}
	n, err := c.opts.Template.Clone()
	if err != nil {
		return nil, err
	}
	yaw := c.opts.Yaw
	if c.opts.RandomYaw {
		yaw = c.opts.Rand() * 2 * math32.Pi
	}
	p := c.marker.Transform.Position()
	s := c.opts.Template.Transform.ScaleOf()
	n.Transform = spatial.Translate(p.X, p.Y, p.Z).Mul(spatial.RotationY(yaw)).Mul(spatial.Scale(s.X, s.Y, s.Z))
	n.Visible = true
	return n, nil
}

func (c *Context) syncMarkerNode() {
	m := c.scene.Marker()
	if m == nil {
		return
	}
	m.Visible = c.marker.Visible
	if c.marker.Visible {
		m.Transform = c.marker.Transform
	}
}
