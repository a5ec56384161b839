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

// DefaultOllamaBaseURL is the default base URL for a local Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

// DefaultVisionModel is the multimodal model used for text extraction.
const DefaultVisionModel = "llava-phi3"

// Ollama implements Vision using the Ollama /api/chat endpoint.
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama returns a client for the Ollama API at baseURL (e.g. http://localhost:11434).
// If baseURL is empty, DefaultOllamaBaseURL is used. A bare host:port, the
// usual form of OLLAMA_HOST, gets an http:// scheme.
func NewOllama(baseURL string) *Ollama {
	u := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if u == "" {
		u = DefaultOllamaBaseURL
	}
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return &Ollama{
		baseURL: u,
		client:  http.DefaultClient,
	}
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Describe sends a user prompt with base64-encoded images and returns the reply.
func (c *Ollama) Describe(ctx context.Context, model, prompt string, images ...[]byte) (string, error) {
	if model == "" {
		model = DefaultVisionModel
	}
	encoded := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img))
	}
	return c.chat(ctx, model, []ollamaMessage{
		{Role: "user", Content: prompt, Images: encoded},
	})
}

func (c *Ollama) chat(ctx context.Context, model string, msgs []ollamaMessage) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{Model: model, Messages: msgs, Stream: false})
	if err != nil {
		return "", err
	}
	url := c.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != "" {
			return "", fmt.Errorf("ollama: %s: %s", resp.Status, out.Error)
		}
		return "", fmt.Errorf("ollama: %s", resp.Status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("ollama: %w", decodeErr)
	}
	return out.Message.Content, nil
}
