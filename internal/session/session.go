package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"xr-anchor/internal/enrich"
	"xr-anchor/internal/placement"
	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

const imagePlanesDisabledText = "Image planes are not available."

// Enricher builds an image plane for a tapped pose.
type Enricher interface {
	Enrich(ctx context.Context, pose spatial.Matrix) (*scene.Node, error)
}

// Renderer draws the scene after each frame's update.
type Renderer interface {
	Render(s *scene.Scene, m placement.Marker)
}

// Options configure a Session. Context and HitTester are required.
type Options struct {
	Context   *placement.Context
	HitTester placement.HitTester
	// Enricher serves image-plane taps; without it they only raise an alert.
	Enricher Enricher
	Notifier enrich.Notifier
	Renderer Renderer
	Logger   *zap.Logger
}

type enrichResult struct {
	node *scene.Node
	err  error
}

// Session is the frame loop. Step and Run must be called from one goroutine;
// Select may be called from any goroutine.
type Session struct {
	place    *placement.Context
	adapter  *placement.Adapter
	enricher Enricher
	notifier enrich.Notifier
	renderer Renderer
	log      *zap.Logger

	mu      sync.Mutex
	taps    []placement.Variant
	results []enrichResult

	wg sync.WaitGroup
}

// New returns a session around an already composed placement context.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		place:    opts.Context,
		adapter:  placement.NewAdapter(opts.HitTester, log),
		enricher: opts.Enricher,
		notifier: opts.Notifier,
		renderer: opts.Renderer,
		log:      log,
	}
}

// Select queues a tap for the next frame.
func (s *Session) Select(v placement.Variant) {
	s.mu.Lock()
	s.taps = append(s.taps, v)
	s.mu.Unlock()
}

// Step runs one frame: queued taps and finished image planes are applied,
// then the frame's hit-test result, in that order.
func (s *Session) Step(ctx context.Context, f placement.Frame) placement.Outcome {
	events := s.drain()
	events = append(events, s.adapter.Event(ctx, f))
	return s.apply(ctx, events)
}

// Run steps every frame until frames is closed or ctx is done, then calls
// Finish with ctx.
func (s *Session) Run(ctx context.Context, frames <-chan placement.Frame) {
	defer s.Finish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			s.Step(ctx, f)
		}
	}
}

// Finish applies taps queued since the last frame, waits for every pending
// enrichment and adds the finished planes. Enrichments started here run with
// ctx, so a cancelled ctx turns late image taps into alerts. Taps queued
// while Finish waits are dropped.
func (s *Session) Finish(ctx context.Context) placement.Outcome {
	out := s.apply(ctx, s.drain())
	s.wg.Wait()

	s.mu.Lock()
	dropped := len(s.taps)
	s.taps = nil
	s.mu.Unlock()
	if dropped > 0 {
		s.log.Debug("taps after finish dropped", zap.Int("count", dropped))
	}

	late := s.apply(ctx, s.drain())
	out.Placed = append(out.Placed, late.Placed...)
	out.Requests = append(out.Requests, late.Requests...)
	out.Errors = append(out.Errors, late.Errors...)
	return out
}

// Marker returns the current placement pose.
func (s *Session) Marker() placement.Marker {
	return s.place.Marker()
}

// Scene returns the scene being placed into.
func (s *Session) Scene() *scene.Scene {
	return s.place.Scene()
}

func (s *Session) drain() []placement.Event {
	s.mu.Lock()
	taps, results := s.taps, s.results
	s.taps, s.results = nil, nil
	s.mu.Unlock()

	var events []placement.Event
	for _, r := range results {
		if r.err != nil {
			s.alert(enrich.UserMessage(r.err))
			continue
		}
		events = append(events, placement.AddContent{Node: r.node})
	}
	for _, v := range taps {
		events = append(events, placement.Select{Variant: v})
	}
	return events
}

func (s *Session) apply(ctx context.Context, events []placement.Event) placement.Outcome {
	out := s.place.Update(events...)
	for _, n := range out.Placed {
		s.log.Info("content placed",
			zap.String("kind", string(n.Kind)),
			zap.String("name", n.Name),
			zap.Any("position", n.Transform.Position()),
		)
	}
	for _, req := range out.Requests {
		s.startEnrichment(ctx, req)
	}
	if s.renderer != nil {
		s.renderer.Render(s.place.Scene(), s.place.Marker())
	}
	return out
}

func (s *Session) startEnrichment(ctx context.Context, req placement.ImageRequest) {
	if s.enricher == nil {
		s.log.Warn("image plane tap ignored: enrichment disabled")
		s.alert(imagePlanesDisabledText)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		node, err := s.enricher.Enrich(ctx, req.Pose)
		s.mu.Lock()
		s.results = append(s.results, enrichResult{node: node, err: err})
		s.mu.Unlock()
	}()
}

func (s *Session) alert(msg string) {
	if s.notifier != nil {
		s.notifier.Alert(msg)
	}
}
