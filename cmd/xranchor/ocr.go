package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xr-anchor/internal/ocrwidget"
	"xr-anchor/internal/ocrwidget/tesseract"
)

var (
	ocrFrames   string
	ocrFrameDur time.Duration
	ocrDuration time.Duration
	ocrVideoW   float64
	ocrVideoH   float64
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Run the standalone OCR widget",
	Long: `Reads text inside the box at the center of the camera image and prints
every new reading. The camera is a directory of still frames played in
name order.

Example:
  xranchor ocr --frames testdata/frames --duration 10s`,
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().StringVar(&ocrFrames, "frames", "", "Directory of camera frames (required)")
	ocrCmd.Flags().DurationVar(&ocrFrameDur, "frame-duration", time.Second, "How long each frame is shown")
	ocrCmd.Flags().DurationVar(&ocrDuration, "duration", 0, "Stop after this long (default: until interrupted)")
	ocrCmd.Flags().Float64Var(&ocrVideoW, "video-width", 640, "Displayed video width")
	ocrCmd.Flags().Float64Var(&ocrVideoH, "video-height", 480, "Displayed video height")
	ocrCmd.MarkFlagRequired("frames")
}

// lineDisplay prints text whenever it changes.
type lineDisplay struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (d *lineDisplay) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.last {
		return
	}
	d.last = text
	if text != "" {
		fmt.Fprintln(d.w, text)
	}
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if ocrDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ocrDuration)
		defer cancel()
	}

	video := ocrwidget.Rect{W: ocrVideoW, H: ocrVideoH}
	w := ocrwidget.New(ocrwidget.Options{
		Camera:  &ocrwidget.DirCamera{Dir: ocrFrames, FrameDuration: ocrFrameDur},
		Display: &lineDisplay{w: cmd.OutOrStdout()},
		NewEngine: func() (ocrwidget.Engine, error) {
			e, err := tesseract.New(cfg.OCR.Languages...)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		Geometry: ocrwidget.CenteredBox(video, cfg.OCR.BoxWidth, cfg.OCR.BoxHeight),
		Interval: cfg.OCR.Interval,
		Logger:   log.Named("ocr"),
	})
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}
