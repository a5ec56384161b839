// Command xranchor runs the text extraction server, the desktop AR
// simulator, trace replay and the OCR widget.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xr-anchor/internal/config"
	"xr-anchor/internal/env"
	"xr-anchor/internal/logger"
)

var (
	// Global flags
	cfgPath string
	envPath string
	verbose bool

	cfg config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xranchor",
	Short: "Place 3D content on detected surfaces",
	Long: `xranchor places a model or a textured image plane wherever the hit-test
marker sits when you tap.

The image plane shows a picture found for the text the camera sees: the
frame is sent to the text extraction server, the text is used as an image
search query, and the first result becomes the plane's texture.

Subcommands run the extraction server, replay recorded sessions, open the
desktop simulator, and run the standalone OCR widget.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := env.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv()
		if verbose {
			cfg.Log.Verbose = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log, err = logger.New(logger.Options{Verbose: cfg.Log.Verbose, File: cfg.Log.File})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log.Debug("config loaded", zap.String("path", cfgPath), zap.String("vision", cfg.Vision.Backend))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
