package ocrserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"xr-anchor/internal/llm"
)

// ExtractionPrompt asks the vision model for the bare text in the image.
const ExtractionPrompt = "Extract only the text from the image exactly as it appears. Do not add any extra words, comments, or formatting. Output strictly the extracted text, nothing else."

// Extractor returns the text found in the image stored at path.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// VisionExtractor sends the stored image to a multimodal model.
type VisionExtractor struct {
	Vision llm.Vision
	Model  string // the backend's default when empty
	Prompt string // ExtractionPrompt when empty
}

// ExtractText reads path and asks the model for its text.
func (e *VisionExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	prompt := e.Prompt
	if prompt == "" {
		prompt = ExtractionPrompt
	}
	text, err := e.Vision.Describe(ctx, e.Model, prompt, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
