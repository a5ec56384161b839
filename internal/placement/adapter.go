package placement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"xr-anchor/internal/spatial"
)

// Frame is one display frame handed to the hit-test adapter by the host loop.
type Frame struct {
	Index int
	Time  time.Time
}

// HitTester asks the platform for the nearest surface under the view ray.
// ok is false when no surface was found this frame.
type HitTester interface {
	HitTest(ctx context.Context, f Frame) (pose spatial.Matrix, ok bool, err error)
}

// Adapter turns a HitTester answer into exactly one hit event per frame.
// There is no smoothing and no retry: an error counts as "no surface".
type Adapter struct {
	tester HitTester
	log    *zap.Logger
}

// NewAdapter wraps tester. A nil logger discards output.
func NewAdapter(tester HitTester, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{tester: tester, log: log}
}

// Event runs the hit-test for f.
func (a *Adapter) Event(ctx context.Context, f Frame) Event {
	pose, ok, err := a.tester.HitTest(ctx, f)
	if err != nil {
		a.log.Debug("hit-test failed", zap.Int("frame", f.Index), zap.Error(err))
		return HitTestEmpty{}
	}
	if !ok {
		return HitTestEmpty{}
	}
	return HitTestResult{Pose: pose}
}
