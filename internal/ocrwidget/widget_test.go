package ocrwidget

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStream struct {
	mu     sync.Mutex
	img    image.Image
	ready  bool
	closed bool
}

func (s *fakeStream) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.ready
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeCamera struct {
	stream *fakeStream
	err    error
	opens  int
}

func (c *fakeCamera) Open(context.Context) (Stream, error) {
	c.opens++
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type fakeEngine struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	regions []image.Rectangle
	closed  bool
}

func (e *fakeEngine) Recognize(_ context.Context, img image.Image) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.regions = append(e.regions, img.Bounds())
	return e.text, e.err
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeDisplay struct {
	mu   sync.Mutex
	text string
	sets int
}

func (d *fakeDisplay) SetText(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = s
	d.sets++
}

func (d *fakeDisplay) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

type fixture struct {
	widget  *Widget
	camera  *fakeCamera
	stream  *fakeStream
	engine  *fakeEngine
	display *fakeDisplay
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()
	stream := &fakeStream{img: image.NewRGBA(image.Rect(0, 0, 640, 480)), ready: true}
	f := &fixture{
		camera:  &fakeCamera{stream: stream},
		stream:  stream,
		engine:  &fakeEngine{text: text},
		display: &fakeDisplay{},
	}
	f.widget = New(Options{
		Camera:    f.camera,
		Display:   f.display,
		NewEngine: func() (Engine, error) { return f.engine, nil },
		Geometry:  CenteredBox(Rect{W: 320, H: 240}, 200, 100),
		Tick:      time.Millisecond,
	})
	return f
}

func TestThrottle(t *testing.T) {
	f := newFixture(t, "STOP")
	f.widget.stream = f.stream
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	f.widget.processFrame(ctx, t0)
	assert.Equal(t, 1, f.engine.callCount())

	for _, d := range []time.Duration{16, 100, 250, 499} {
		f.widget.processFrame(ctx, t0.Add(d*time.Millisecond))
	}
	assert.Equal(t, 1, f.engine.callCount(), "no recognition within the interval")

	f.widget.processFrame(ctx, t0.Add(500*time.Millisecond))
	assert.Equal(t, 2, f.engine.callCount())
	f.widget.processFrame(ctx, t0.Add(900*time.Millisecond))
	assert.Equal(t, 2, f.engine.callCount())
}

func TestFrameNotReadySkipsRecognition(t *testing.T) {
	f := newFixture(t, "STOP")
	f.stream.ready = false
	f.widget.stream = f.stream

	f.widget.processFrame(context.Background(), time.Now())
	assert.Equal(t, 0, f.engine.callCount())
	assert.True(t, f.widget.lastRecognized.IsZero())
}

func TestBoxRegionScalesAxesIndependently(t *testing.T) {
	g := Geometry{Video: Rect{X: 10, Y: 20, W: 320, H: 240}, Box: Rect{X: 60, Y: 70, W: 100, H: 50}}

	r := boxRegion(g, image.Rect(0, 0, 640, 480))
	assert.Equal(t, image.Rect(100, 100, 300, 200), r)

	r = boxRegion(g, image.Rect(0, 0, 640, 240))
	assert.Equal(t, image.Rect(100, 50, 300, 100), r)

	assert.True(t, boxRegion(Geometry{}, image.Rect(0, 0, 10, 10)).Empty())
}

func TestCropUsesMappedRegion(t *testing.T) {
	f := newFixture(t, "STOP")
	f.widget.stream = f.stream

	f.widget.processFrame(context.Background(), time.Now())
	require.Len(t, f.engine.regions, 1)
	// 200x100 CSS box on a 320x240 view of a 640x480 frame.
	assert.Equal(t, 400, f.engine.regions[0].Dx())
	assert.Equal(t, 200, f.engine.regions[0].Dy())
}

func TestAccept(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"STOP", "STOP", true},
		{"  Hello, world!\n", "Hello, world!", true},
		{"a", "a", false},
		{"   ", "", false},
		{"Straße", "Straße", false},
		{"#$%", "#$%", false},
		{"Exit 12?", "Exit 12?", true},
	}
	for _, tt := range tests {
		got, ok := accept(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestRejectedTextKeepsDisplay(t *testing.T) {
	f := newFixture(t, "STOP")
	f.widget.stream = f.stream
	t0 := time.Now()

	f.widget.processFrame(context.Background(), t0)
	assert.Equal(t, "STOP", f.display.Text())

	f.engine.text = "x"
	f.widget.processFrame(context.Background(), t0.Add(time.Second))
	assert.Equal(t, "STOP", f.display.Text())

	f.engine.err = errors.New("tesseract crashed")
	f.widget.processFrame(context.Background(), t0.Add(2*time.Second))
	assert.Equal(t, "STOP", f.display.Text())
	assert.Equal(t, 3, f.engine.callCount())
}

func TestStartCameraFailure(t *testing.T) {
	f := newFixture(t, "STOP")
	f.camera.err = errors.New("permission denied")

	err := f.widget.Start(context.Background())
	assert.True(t, errors.Is(err, ErrCameraUnavailable))
	assert.Equal(t, "Error: Could not access camera", f.display.Text())
	assert.Equal(t, StateIdle, f.widget.State())
}

func TestEngineInitFailure(t *testing.T) {
	d := &fakeDisplay{}
	w := New(Options{
		Camera:    &fakeCamera{},
		Display:   d,
		NewEngine: func() (Engine, error) { return nil, errors.New("no traineddata") },
	})
	assert.Equal(t, "Error: Failed to initialize text recognition", d.Text())
	assert.ErrorIs(t, w.Start(context.Background()), ErrEngineUnavailable)
	assert.NoError(t, w.Close())
}

func TestStartStopLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "HELLO")
	require.NoError(t, f.widget.Start(context.Background()))
	require.NoError(t, f.widget.Start(context.Background()))
	assert.Equal(t, 1, f.camera.opens, "start while capturing is a no-op")
	assert.Equal(t, StateCapturing, f.widget.State())

	require.Eventually(t, func() bool { return f.display.Text() == "HELLO" }, time.Second, time.Millisecond)

	f.widget.Stop()
	assert.Equal(t, StateIdle, f.widget.State())
	assert.Equal(t, "", f.display.Text())
	assert.True(t, f.stream.closed)

	f.widget.Stop()
	require.NoError(t, f.widget.Close())
	assert.True(t, f.engine.closed)
}

func TestDirCamera(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"b.png", "a.png"} {
		file, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(file, image.NewGray(image.Rect(0, 0, 10+i, 10))))
		require.NoError(t, file.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	s, err := (&DirCamera{Dir: dir, FrameDuration: time.Hour}).Open(context.Background())
	require.NoError(t, err)
	img, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, 11, img.Bounds().Dx(), "a.png plays first")

	require.NoError(t, s.Close())
	_, ok = s.Frame()
	assert.False(t, ok)

	_, err = (&DirCamera{Dir: t.TempDir()}).Open(context.Background())
	assert.Error(t, err)
}
