package placement

import (
	"context"
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

func newTestContext(t *testing.T) (*Context, *scene.Scene) {
	t.Helper()
	s := scene.Compose()
	tmpl := scene.NewNode(scene.KindModel, "koala")
	tmpl.Asset = "models/koala.glb"
	tmpl.Visible = false
	return NewContext(s, Options{Template: tmpl}), s
}

func TestEmptyHitHidesMarker(t *testing.T) {
	c, s := newTestContext(t)

	c.Update(HitTestResult{Pose: spatial.Translate(1, 0, 1)})
	require.True(t, c.Marker().Visible)
	require.True(t, s.Marker().Visible)

	c.Update(HitTestEmpty{})
	assert.False(t, c.Marker().Visible)
	assert.False(t, s.Marker().Visible)
}

func TestEveryHitOverwritesPose(t *testing.T) {
	c, _ := newTestContext(t)

	c.Update(HitTestResult{Pose: spatial.Translate(1, 0, 0)}, HitTestResult{Pose: spatial.Translate(0, 0, 2)})
	assert.Equal(t, spatial.Vec3{Z: 2}, c.Marker().Transform.Position())
}

func TestTapWithVisibleIdentityPosePlacesOneAtOrigin(t *testing.T) {
	c, s := newTestContext(t)
	before := s.Len()

	out := c.Update(HitTestResult{Pose: spatial.Identity()}, Select{})

	require.Len(t, out.Placed, 1)
	assert.Equal(t, before+1, s.Len())
	assert.Equal(t, spatial.Vec3{}, out.Placed[0].Transform.Position())
	assert.True(t, out.Placed[0].Visible)
	assert.Equal(t, scene.KindModel, out.Placed[0].Kind)
}

func TestTapWithHiddenMarkerIsNoop(t *testing.T) {
	c, s := newTestContext(t)
	before := s.Len()

	out := c.Update(Select{}, Select{Variant: VariantImagePlane})
	assert.Empty(t, out.Placed)
	assert.Empty(t, out.Requests)
	assert.Empty(t, out.Errors)
	assert.Equal(t, before, s.Len())

	out = c.Update(HitTestResult{Pose: spatial.Identity()}, HitTestEmpty{}, Select{})
	assert.Empty(t, out.Placed)
	assert.Equal(t, before, s.Len())
}

func TestEachTapPlacesIndependentInstance(t *testing.T) {
	c, s := newTestContext(t)
	pose := spatial.Translate(0.5, -1.2, -2)

	out := c.Update(HitTestResult{Pose: pose}, Select{}, Select{}, Select{})

	require.Len(t, out.Placed, 3)
	assert.Equal(t, 3, s.Count(scene.KindModel))
	ids := map[string]bool{}
	for _, n := range out.Placed {
		assert.Equal(t, pose.Position(), n.Transform.Position())
		ids[n.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestModelUsesFixedOrientationNotPoseRotation(t *testing.T) {
	c, _ := newTestContext(t)
	c.opts.Yaw = math32.Pi / 2
	pose := spatial.Translate(1, 0, 0).Mul(spatial.RotationX(0.8))

	out := c.Update(HitTestResult{Pose: pose}, Select{})
	require.Len(t, out.Placed, 1)
	q := out.Placed[0].Transform.Rotation()
	assert.InDelta(t, math32.Pi/2, q.Yaw(), 1e-4)
	assert.InDelta(t, 0, q.X, 1e-4)
}

func TestRandomYawUsesRandSource(t *testing.T) {
	c, _ := newTestContext(t)
	c.opts.RandomYaw = true
	c.opts.Rand = func() float32 { return 0.25 }

	out := c.Update(HitTestResult{Pose: spatial.Identity()}, Select{})
	require.Len(t, out.Placed, 1)
	assert.InDelta(t, math32.Pi/2, out.Placed[0].Transform.Rotation().Yaw(), 1e-4)
}

func TestImageTapRequestsPlaneAtPose(t *testing.T) {
	c, s := newTestContext(t)
	pose := spatial.Translate(0, 1, 0).Mul(spatial.RotationX(0.3))
	before := s.Len()

	out := c.Update(HitTestResult{Pose: pose}, Select{Variant: VariantImagePlane})
	require.Len(t, out.Requests, 1)
	assert.Equal(t, pose, out.Requests[0].Pose)
	assert.Equal(t, before, s.Len())

	plane := scene.NewNode(scene.KindImagePlane, "plane")
	plane.Transform = pose
	plane.Visible = false
	out = c.Update(HitTestEmpty{}, AddContent{Node: plane})
	require.Len(t, out.Placed, 1)
	assert.True(t, plane.Visible)
	assert.Equal(t, before+1, s.Len())
}

func TestMissingTemplateReportsError(t *testing.T) {
	s := scene.Compose()
	c := NewContext(s, Options{})

	out := c.Update(HitTestResult{Pose: spatial.Identity()}, Select{})
	require.Len(t, out.Errors, 1)
	assert.ErrorIs(t, out.Errors[0], ErrNoTemplate)
	assert.Equal(t, 0, s.Count(scene.KindModel))
}

type stubTester struct {
	pose spatial.Matrix
	ok   bool
	err  error
}

func (s stubTester) HitTest(context.Context, Frame) (spatial.Matrix, bool, error) {
	return s.pose, s.ok, s.err
}

func TestAdapterMapsResults(t *testing.T) {
	ctx := context.Background()
	pose := spatial.Translate(1, 2, 3)

	ev := NewAdapter(stubTester{pose: pose, ok: true}, nil).Event(ctx, Frame{})
	assert.Equal(t, HitTestResult{Pose: pose}, ev)

	ev = NewAdapter(stubTester{}, nil).Event(ctx, Frame{})
	assert.Equal(t, HitTestEmpty{}, ev)

	ev = NewAdapter(stubTester{pose: pose, ok: true, err: errors.New("lost tracking")}, nil).Event(ctx, Frame{})
	assert.Equal(t, HitTestEmpty{}, ev)
}
