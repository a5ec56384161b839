// Package llm talks to multimodal models that read text out of images.
package llm

import "context"

// Vision sends a prompt together with one or more encoded images (PNG/JPEG
// bytes) to a multimodal model and returns the reply text. An empty model
// selects the backend's default.
type Vision interface {
	Describe(ctx context.Context, model, prompt string, images ...[]byte) (string, error)
}
