package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xranchor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vision:
  backend: gemini
enrich:
  plane_budget: 0.5
  timeout: 30s
placement:
  random_yaw: true
ocr:
  interval: 750ms
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.Vision.Backend)
	assert.Empty(t, cfg.Vision.Model, "the backend picks its own model")
	assert.Equal(t, "http://localhost:11434", cfg.Vision.OllamaHost, "unset keys keep defaults")
	assert.Equal(t, float32(0.5), cfg.Enrich.PlaneBudget)
	assert.Equal(t, 30*time.Second, cfg.Enrich.Timeout)
	assert.True(t, cfg.Placement.RandomYaw)
	assert.Equal(t, 750*time.Millisecond, cfg.OCR.Interval)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GOOGLE_SEARCH_API_KEY", "search-key")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("XRANCHOR_ENDPOINT", "")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "search-key", cfg.Search.APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.Vision.OllamaHost)
	assert.Equal(t, Default().Enrich.Endpoint, cfg.Enrich.Endpoint)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Vision.Backend = "clippy"
	cfg.Enrich.PlaneBudget = 0
	cfg.Search.Locale = "not a tag!"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clippy")
	assert.Contains(t, err.Error(), "plane_budget")
	assert.Contains(t, err.Error(), "search.locale")
}

func TestSaveOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Search.APIKey = "secret"
	path := filepath.Join(t.TempDir(), "config", "xranchor.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), back)
}

func TestWriteUsesYAMLKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Default()))
	out := buf.String()
	assert.Contains(t, out, "plane_budget: 1")
	assert.Contains(t, out, "interval: 500ms")
}
