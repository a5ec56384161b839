// Package enrich turns a camera frame into a textured image plane: the frame
// is uploaded for text extraction, the text becomes an image search query and
// the first hit is fetched and sized into a plane at the tapped pose.
package enrich

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"xr-anchor/internal/download"
	"xr-anchor/internal/imagesearch"
	"xr-anchor/internal/scene"
	"xr-anchor/internal/spatial"
)

// DefaultBudget is the plane's larger side in meters.
const DefaultBudget float32 = 1.0

// ErrEmptyText is returned when the server answered without any text.
var ErrEmptyText = errors.New("no text recognized")

// Stage names the pipeline step an Error came from.
type Stage string

const (
	StageCapture Stage = "capture"
	StageEncode  Stage = "encode"
	StageUpload  Stage = "upload"
	StageText    Stage = "text"
	StageSearch  Stage = "search"
	StageFetch   Stage = "fetch"
	StageDecode  Stage = "decode"
	StageSave    Stage = "save"
)

// Error is the single error type returned by Pipeline.Enrich.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return "enrich: " + string(e.Stage) + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the alert text shown for an enrichment failure.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Please try again."
	}
	switch {
	case errors.Is(err, ErrEmptyText):
		return "No text could be recognized in the picture."
	case errors.Is(err, imagesearch.ErrNoImage):
		return "No image was found for the recognized text."
	case e.Stage == StageUpload:
		return "The text recognition server could not be reached."
	}
	return "The image could not be loaded."
}

// Notifier shows an alert to the user.
type Notifier interface {
	Alert(msg string)
}

// FrameSource captures the current camera frame.
type FrameSource interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Fetcher downloads the found image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*download.Resource, error)
}

// ImageFile is a FrameSource that decodes the same file on every capture.
type ImageFile string

// Capture decodes the file.
func (f ImageFile) Capture(context.Context) (image.Image, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	return img, err
}

// Pipeline runs one enrichment per call. All fields except Logger, Budget,
// TextureDir and Timeout are required.
type Pipeline struct {
	Frames   FrameSource
	Uploader Uploader
	Searcher imagesearch.Searcher
	Fetcher  Fetcher
	// Budget is the plane's larger side; DefaultBudget when zero.
	Budget float32
	// TextureDir, when set, is where fetched images are saved; the node's
	// Texture then refers to the file instead of the URL.
	TextureDir string
	// Timeout bounds one Enrich call; zero means no limit.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Enrich builds an image-plane node at pose. It makes a single attempt; any
// failure is returned as *Error.
func (p *Pipeline) Enrich(ctx context.Context, pose spatial.Matrix) (*scene.Node, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	fail := func(stage Stage, err error) (*scene.Node, error) {
		log.Warn("enrichment failed", zap.String("stage", string(stage)), zap.Error(err))
		return nil, &Error{Stage: stage, Err: err}
	}

	frame, err := p.Frames.Capture(ctx)
	if err != nil {
		return fail(StageCapture, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return fail(StageEncode, err)
	}

	text, err := p.Uploader.Upload(ctx, "frame.png", buf.Bytes())
	if err != nil {
		return fail(StageUpload, err)
	}
	query := Query(text)
	if query == "" {
		return fail(StageText, ErrEmptyText)
	}
	log.Info("text extracted", zap.String("query", query))

	hit, err := p.Searcher.Search(ctx, query)
	if err != nil {
		return fail(StageSearch, err)
	}
	res, err := p.Fetcher.Fetch(ctx, hit.URL)
	if err != nil {
		return fail(StageFetch, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		return fail(StageDecode, err)
	}
	budget := p.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	size, err := PlaneSize(cfg.Width, cfg.Height, budget)
	if err != nil {
		return fail(StageDecode, err)
	}

	texture := hit.URL
	if p.TextureDir != "" {
		if texture, err = download.Save(res, p.TextureDir); err != nil {
			return fail(StageSave, err)
		}
	}

	n := scene.NewNode(scene.KindImagePlane, query)
	n.Transform = pose
	n.Texture = texture
	n.Size = size
	n.Visible = true
	log.Info("image plane ready",
		zap.String("url", hit.URL),
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)
	return n, nil
}
