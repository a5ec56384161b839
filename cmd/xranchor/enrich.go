package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xr-anchor/internal/enrich"
	"xr-anchor/internal/imagesearch"
	"xr-anchor/internal/spatial"
)

var enrichImage string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the image plane pipeline once",
	Long: `Uploads --image to the extraction server, searches an image for the
returned text and saves it to the texture directory. Prints the plane size.

Example:
  xranchor enrich --image testdata/sign.jpg`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichImage, "image", "i", "", "Camera image (required)")
	enrichCmd.MarkFlagRequired("image")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := newPipeline(ctx, enrich.ImageFile(enrichImage))
	if err != nil {
		return err
	}
	if p == nil {
		return errors.New("image search key not set: export " + imagesearch.APIKeyEnv)
	}
	node, err := p.Enrich(ctx, spatial.Identity())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), enrich.UserMessage(err))
		return err
	}
	log.Info("image plane ready",
		zap.String("texture", node.Texture),
		zap.Float32("width", node.Size[0]),
		zap.Float32("height", node.Size[1]),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %.3fx%.3f\n", node.Texture, node.Size[0], node.Size[1])
	return nil
}
