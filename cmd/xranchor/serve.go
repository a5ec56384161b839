package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xr-anchor/internal/ocrserver"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the text extraction server",
	Long: `Serves POST /upload-image and GET /health, plus static files.

The uploaded picture is passed to the configured vision backend, which is
asked for the bare text in the image.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv, err := newServer(ctx, addr)
	if err != nil {
		return err
	}
	log.Info("listening", zap.String("addr", addr), zap.String("vision", cfg.Vision.Backend))
	return srv.ListenAndServe(ctx)
}

// newServer builds the extraction server from config.
func newServer(ctx context.Context, addr string) (*ocrserver.Server, error) {
	vision, err := newVision(ctx, cfg.Vision)
	if err != nil {
		return nil, err
	}
	if cfg.Server.StaticDir != "" {
		if _, err := os.Stat(cfg.Server.StaticDir); err != nil {
			log.Warn("static dir not found", zap.String("dir", cfg.Server.StaticDir))
		}
	}
	return ocrserver.New(ocrserver.Options{
		Addr:      addr,
		UploadDir: cfg.Server.UploadDir,
		StaticDir: cfg.Server.StaticDir,
		Extractor: &ocrserver.VisionExtractor{Vision: vision, Model: cfg.Vision.Model},
		Health:    uploadDirWritable(cfg.Server.UploadDir),
		Logger:    log.Named("server"),
	})
}

// uploadDirWritable reports whether uploads can be stored. The vision
// backend is not probed: a cold local model would fail every check.
func uploadDirWritable(dir string) func(context.Context) error {
	return func(context.Context) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return err
		}
		f.Close()
		return os.Remove(f.Name())
	}
}
