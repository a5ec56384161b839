package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when Describe is called without a model.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Vision using the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini returns a Gemini vision client. baseURL is optional and only
// used to point the client at a different endpoint.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key not set")
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: http.DefaultClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Describe sends the prompt and inline images and returns the reply text.
func (g *Gemini) Describe(ctx context.Context, model, prompt string, images ...[]byte) (string, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img, http.DetectContentType(img)))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}
