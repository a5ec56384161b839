package llm

import (
	"context"
	"errors"
)

// VisionFallback tries Primary first and Secondary when it fails, e.g. when
// the local model server is down but a hosted one is configured.
// SecondaryModel replaces the model name on the second attempt; empty selects
// the secondary backend's default.
type VisionFallback struct {
	Primary        Vision
	Secondary      Vision
	SecondaryModel string
}

// Describe calls Primary.Describe; on any error, calls Secondary.Describe.
// When both fail the errors are joined.
func (f *VisionFallback) Describe(ctx context.Context, model, prompt string, images ...[]byte) (string, error) {
	s, err := f.Primary.Describe(ctx, model, prompt, images...)
	if err == nil || f.Secondary == nil {
		return s, err
	}
	s, err2 := f.Secondary.Describe(ctx, f.SecondaryModel, prompt, images...)
	if err2 != nil {
		return "", errors.Join(err, err2)
	}
	return s, nil
}
