// Package ocrwidget samples a boxed region of a live camera feed and shows
// the text recognized in it.
package ocrwidget

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the minimum time between two recognitions.
	DefaultInterval = 500 * time.Millisecond
	// DefaultTick approximates a display refresh.
	DefaultTick = time.Second / 60

	cameraErrorText = "Error: Could not access camera"
	engineErrorText = "Error: Failed to initialize text recognition"
)

var (
	// ErrCameraUnavailable is returned by Start when the camera could not be opened.
	ErrCameraUnavailable = errors.New("ocrwidget: camera unavailable")
	// ErrEngineUnavailable is returned by Start when the engine failed to initialize.
	ErrEngineUnavailable = errors.New("ocrwidget: text recognition unavailable")
)

// acceptPattern filters out recognition noise.
var acceptPattern = regexp.MustCompile(`^[A-Za-z0-9\s.,!?]+$`)

// State is the widget's capture state.
type State int

const (
	StateIdle State = iota
	StateCapturing
)

func (s State) String() string {
	if s == StateCapturing {
		return "capturing"
	}
	return "idle"
}

// Camera opens the video stream.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open video stream.
type Stream interface {
	// Frame returns the current frame; ok is false until enough data arrived.
	Frame() (img image.Image, ok bool)
	Close() error
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Display shows the recognized text.
type Display interface {
	SetText(text string)
}

// Rect is an on-screen rectangle in display (CSS) pixels.
type Rect struct {
	X, Y, W, H float64
}

// Geometry is where the video and the detection box are on screen.
type Geometry struct {
	Video Rect
	Box   Rect
}

// Options configure a Widget. Camera, Display and NewEngine are required.
type Options struct {
	Camera    Camera
	Display   Display
	NewEngine func() (Engine, error)
	Geometry  Geometry
	Interval  time.Duration
	Tick      time.Duration
	Logger    *zap.Logger
}

// Widget is the OCR widget. Start and Stop may be called from any goroutine.
type Widget struct {
	camera   Camera
	display  Display
	engine   Engine
	interval time.Duration
	tick     time.Duration
	log      *zap.Logger

	geomMu sync.RWMutex
	geom   Geometry

	mu     sync.Mutex
	state  State
	stream Stream
	cancel context.CancelFunc
	done   chan struct{}

	// owned by the loop goroutine
	lastRecognized time.Time
}

// New creates the widget and initializes the engine. An engine failure is
// shown on the display; the widget is still returned and Start then fails.
func New(opts Options) *Widget {
	w := &Widget{
		camera:   opts.Camera,
		display:  opts.Display,
		interval: opts.Interval,
		tick:     opts.Tick,
		log:      opts.Logger,
		geom:     opts.Geometry,
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	if w.tick <= 0 {
		w.tick = DefaultTick
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	engine, err := opts.NewEngine()
	if err != nil {
		w.log.Error("failed to initialize text recognition", zap.Error(err))
		w.display.SetText(engineErrorText)
		return w
	}
	w.engine = engine
	return w
}

// State returns the current state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SetGeometry updates the on-screen layout, e.g. after a resize.
func (w *Widget) SetGeometry(g Geometry) {
	w.geomMu.Lock()
	w.geom = g
	w.geomMu.Unlock()
}

func (w *Widget) geometry() Geometry {
	w.geomMu.RLock()
	defer w.geomMu.RUnlock()
	return w.geom
}

// Start opens the camera and starts sampling. It is a no-op while capturing.
// The loop ends on Stop or when ctx is cancelled.
func (w *Widget) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateCapturing {
		return nil
	}
	if w.engine == nil {
		return ErrEngineUnavailable
	}
	stream, err := w.camera.Open(ctx)
	if err != nil {
		w.log.Error("error accessing camera", zap.Error(err))
		w.display.SetText(cameraErrorText)
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.stream = stream
	w.cancel = cancel
	w.done = make(chan struct{})
	w.lastRecognized = time.Time{}
	w.state = StateCapturing
	go w.loop(loopCtx, w.done)
	return nil
}

// Stop ends sampling, waits for an in-flight recognition, releases the
// camera and clears the display.
func (w *Widget) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCapturing {
		return
	}
	w.cancel()
	<-w.done
	if err := w.stream.Close(); err != nil {
		w.log.Warn("closing camera stream", zap.Error(err))
	}
	w.stream = nil
	w.cancel = nil
	w.display.SetText("")
	w.state = StateIdle
}

// Close stops sampling and terminates the engine.
func (w *Widget) Close() error {
	w.Stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine == nil {
		return nil
	}
	err := w.engine.Close()
	w.engine = nil
	return err
}

func (w *Widget) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.processFrame(ctx, now)
		}
	}
}

// processFrame is one display tick. Recognition runs inline, so a slow
// engine delays the next tick instead of overlapping with it.
func (w *Widget) processFrame(ctx context.Context, now time.Time) {
	img, ok := w.stream.Frame()
	if !ok {
		return
	}
	if !w.lastRecognized.IsZero() && now.Sub(w.lastRecognized) < w.interval {
		return
	}
	w.lastRecognized = now

	region := boxRegion(w.geometry(), img.Bounds())
	if region.Empty() {
		return
	}
	text, err := w.engine.Recognize(ctx, transform.Crop(img, region))
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("text recognition error", zap.Error(err))
		}
		return
	}
	if clean, ok := accept(text); ok {
		w.display.SetText(clean)
	}
}

// accept trims text and reports whether it is worth showing.
func accept(text string) (string, bool) {
	clean := strings.TrimSpace(text)
	return clean, len(clean) > 1 && acceptPattern.MatchString(clean)
}

// boxRegion maps the on-screen box into frame pixels. X and Y scale
// independently, since the video may be stretched on screen.
func boxRegion(g Geometry, frame image.Rectangle) image.Rectangle {
	if g.Video.W <= 0 || g.Video.H <= 0 {
		return image.Rectangle{}
	}
	scaleX := float64(frame.Dx()) / g.Video.W
	scaleY := float64(frame.Dy()) / g.Video.H
	x := (g.Box.X - g.Video.X) * scaleX
	y := (g.Box.Y - g.Video.Y) * scaleY
	r := image.Rect(
		int(math.Round(x)),
		int(math.Round(y)),
		int(math.Round(x+g.Box.W*scaleX)),
		int(math.Round(y+g.Box.H*scaleY)),
	).Add(frame.Min)
	return r.Intersect(frame)
}

// CenteredBox returns the geometry of a w x h box centered on a video shown
// at video.
func CenteredBox(video Rect, w, h float64) Geometry {
	return Geometry{
		Video: video,
		Box: Rect{
			X: video.X + (video.W-w)/2,
			Y: video.Y + (video.H-h)/2,
			W: w,
			H: h,
		},
	}
}
