package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

func TestOllamaDescribeSendsBase64Images(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"HELLO WORLD"}}`)
	}))
	defer srv.Close()

	text, err := NewOllama(srv.URL+"/").Describe(context.Background(), "", "extract", pngMagic)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", text)

	assert.Equal(t, DefaultVisionModel, got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "extract", got.Messages[0].Content)
	require.Len(t, got.Messages[0].Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngMagic), got.Messages[0].Images[0])
}

func TestOllamaReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"llava-phi3\" not found"}`)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL).Describe(context.Background(), "", "extract", pngMagic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOpenAIDescribeSendsDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"type":"image_url"`)
		assert.Contains(t, string(body), "data:image/png;base64,")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"STOP"}}]}`)
	}))
	defer srv.Close()

	text, err := NewOpenAICompatible(srv.URL+"/v1", "k").Describe(context.Background(), "gpt-4o-mini", "extract", pngMagic)
	require.NoError(t, err)
	assert.Equal(t, "STOP", text)
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("").Describe(context.Background(), "m", "extract", pngMagic)
	require.Error(t, err)
}

func TestOpenAIEmptyModelUsesBackendDefault(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"EXIT"}}]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAICompatible(srv.URL, "k").Describe(context.Background(), "", "extract", pngMagic)
	require.NoError(t, err)

	groq := NewGroq("k")
	groq.baseURL = srv.URL
	_, err = groq.Describe(context.Background(), "", "extract", pngMagic)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultOpenAIModel, DefaultGroqModel}, models)
}

func TestNewOllamaBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultOllamaBaseURL},
		{"127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"http://gpu-box:11434/", "http://gpu-box:11434"},
		{"https://ollama.example.com", "https://ollama.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewOllama(tt.in).baseURL, tt.in)
	}
}

func TestGeminiDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"EXIT"}]}}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", srv.URL+"/")
	require.NoError(t, err)
	text, err := g.Describe(context.Background(), "", "extract", pngMagic)
	require.NoError(t, err)
	assert.Equal(t, "EXIT", text)
}

type visionFunc func(model string) (string, error)

func (f visionFunc) Describe(_ context.Context, model, _ string, _ ...[]byte) (string, error) {
	return f(model)
}

func TestVisionFallback(t *testing.T) {
	down := visionFunc(func(string) (string, error) { return "", errors.New("connection refused") })
	var secondModel string
	up := visionFunc(func(m string) (string, error) { secondModel = m; return "ok", nil })

	f := &VisionFallback{Primary: down, Secondary: up, SecondaryModel: "gemini"}
	s, err := f.Describe(context.Background(), "llava-phi3", "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
	assert.Equal(t, "gemini", secondModel)

	f = &VisionFallback{Primary: down, Secondary: down}
	_, err = f.Describe(context.Background(), "llava-phi3", "p")
	require.Error(t, err)
}
