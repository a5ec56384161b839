package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xr-anchor/internal/enrich"
	"xr-anchor/internal/session"
	"xr-anchor/internal/viewer"
)

var (
	viewFrame string
	viewServe bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the desktop AR simulator",
	Long: `Opens a window where the floor grid stands in for detected surfaces.

Click to place the model under the mouse, press E for an image plane
built from --frame, G to export the scene, F to toggle the FPS counter.
Hold the right mouse button to look around.

With --serve the text extraction server runs in the same process.`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewFrame, "frame", "", "Camera image used for image planes")
	viewCmd.Flags().BoolVar(&viewServe, "serve", false, "Also run the text extraction server")
}

func runView(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	if viewServe {
		srv, err := newServer(ctx, cfg.Server.Addr)
		if err != nil {
			cancel()
			return err
		}
		g.Go(func() error {
			log.Info("listening", zap.String("addr", cfg.Server.Addr))
			return srv.ListenAndServe(ctx)
		})
	}

	v := viewer.New(viewer.Options{
		Width:       cfg.Viewer.Width,
		Height:      cfg.Viewer.Height,
		ShowFPS:     cfg.Viewer.ShowFPS,
		GridVisible: cfg.Viewer.GridVisible,
		ExportPath:  cfg.Viewer.ExportPath,
		Lines:       log.Lines,
		Logger:      log.Named("viewer"),
	})
	err := func() error {
		// The window and every GPU call stay on this goroutine.
		defer cancel()
		if err := session.Bootstrap(ctx, v, session.DefaultMessages()); err != nil {
			return err
		}
		var enricher session.Enricher
		if viewFrame != "" {
			p, err := newPipeline(ctx, enrich.ImageFile(viewFrame))
			if err != nil {
				return err
			}
			if p != nil {
				enricher = p
			}
		}
		sess := session.New(session.Options{
			Context:   newPlacement(ctx),
			HitTester: v,
			Enricher:  enricher,
			Notifier:  v,
			Renderer:  v,
			Logger:    log.Named("session"),
		})
		v.UseCamera(sess.Scene().Camera)
		v.Open()
		v.Run(ctx, sess)
		return nil
	}()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}
