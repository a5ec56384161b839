package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	// GroqBaseURL serves the same Chat Completions shape as OpenAI.
	GroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultOpenAIModel is used when Describe is called without a model.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultGroqModel is Groq's default multimodal model.
	DefaultGroqModel = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// OpenAI implements Vision using an OpenAI-compatible Chat Completions API
// (OpenAI itself, Groq, or a local gateway).
type OpenAI struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewOpenAI returns a client for the OpenAI API with the given API key.
func NewOpenAI(apiKey string) *OpenAI {
	return NewOpenAICompatible(openAIBaseURL, apiKey)
}

// NewGroq returns a client for Groq's OpenAI-compatible API.
func NewGroq(apiKey string) *OpenAI {
	c := NewOpenAICompatible(GroqBaseURL, apiKey)
	c.defaultModel = DefaultGroqModel
	return c
}

// NewOpenAICompatible returns a client for any server exposing
// {baseURL}/chat/completions with bearer auth.
func NewOpenAICompatible(baseURL, apiKey string) *OpenAI {
	return &OpenAI{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: DefaultOpenAIModel,
		client:       http.DefaultClient,
	}
}

type openAIRequest struct {
	Model    string `json:"model"`
	Messages []any  `json:"messages"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type partsMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Describe sends the prompt and images as data URLs in one user message.
func (c *OpenAI) Describe(ctx context.Context, model, prompt string, images ...[]byte) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, img := range images {
		url := "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}
	return c.do(ctx, openAIRequest{
		Model:    model,
		Messages: []any{partsMessage{Role: "user", Content: parts}},
	})
}

func (c *OpenAI) do(ctx context.Context, reqBody openAIRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: API key not set")
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: %s", resp.Status)
	}
	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
