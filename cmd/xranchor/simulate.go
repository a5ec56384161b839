package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xr-anchor/internal/enrich"
	"xr-anchor/internal/gltfexport"
	"xr-anchor/internal/hittest"
	"xr-anchor/internal/placement"
	"xr-anchor/internal/scene"
	"xr-anchor/internal/session"
)

var (
	simTrace  string
	simFrame  string
	simExport string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a recorded hit-test trace",
	Long: `Runs the placement loop over a recorded trace: one hit-test answer per
frame plus the taps that followed it.

With --frame, image taps upload that picture through the enrichment
pipeline. With --export, the final scene is written as glTF.

Example:
  xranchor simulate --trace testdata/desk.yaml --export exports/desk.glb`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simTrace, "trace", "t", "", "Trace file (required)")
	simulateCmd.Flags().StringVar(&simFrame, "frame", "", "Camera image used for image taps")
	simulateCmd.Flags().StringVar(&simExport, "export", "", "Write the final scene to this .gltf/.glb file")
	simulateCmd.MarkFlagRequired("trace")
}

// logNotifier shows alerts as warnings.
type logNotifier struct{ log *zap.Logger }

func (n logNotifier) Alert(msg string) { n.log.Warn("alert", zap.String("message", msg)) }

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	trace, err := hittest.Load(simTrace, log.Named("trace"))
	if err != nil {
		return err
	}
	if err := session.Bootstrap(ctx, trace, session.DefaultMessages()); err != nil {
		return err
	}

	var enricher session.Enricher
	if simFrame != "" {
		p, err := newPipeline(ctx, enrich.ImageFile(simFrame))
		if err != nil {
			return err
		}
		if p != nil {
			enricher = p
		}
	}

	sess := session.New(session.Options{
		Context:   newPlacement(ctx),
		HitTester: trace,
		Enricher:  enricher,
		Notifier:  logNotifier{log.Logger},
		Logger:    log.Named("session"),
	})

	var placed, failed int
	count := func(out placement.Outcome) {
		placed += len(out.Placed)
		failed += len(out.Errors)
	}
	for i := 0; i < trace.Len(); i++ {
		count(sess.Step(ctx, placement.Frame{Index: i}))
		for _, v := range trace.Taps(i) {
			sess.Select(v)
		}
	}
	// Taps after the last frame still see its marker.
	count(sess.Finish(ctx))

	s := sess.Scene()
	log.Info("simulation done",
		zap.Int("frames", trace.Len()),
		zap.Int("placed", placed),
		zap.Int("failed", failed),
		zap.Int("models", s.Count(scene.KindModel)),
		zap.Int("image_planes", s.Count(scene.KindImagePlane)),
	)

	if simExport != "" {
		if err := gltfexport.Save(simExport, s); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		log.Info("scene exported", zap.String("path", simExport))
	}
	return nil
}
