// Package config loads, validates and saves the YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file path, relative to the process working directory.
const DefaultPath = "config/xranchor.yaml"

// Vision backends.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGroq   = "groq"
	BackendGemini = "gemini"
)

// Config holds every tunable of the app. Secrets are normally left out of the
// file and come from the environment (see ApplyEnv).
type Config struct {
	Server    Server    `yaml:"server"`
	Vision    Vision    `yaml:"vision"`
	Enrich    Enrich    `yaml:"enrich"`
	Search    Search    `yaml:"search"`
	Placement Placement `yaml:"placement"`
	OCR       OCR       `yaml:"ocr"`
	Viewer    Viewer    `yaml:"viewer"`
	Log       Log       `yaml:"log"`
}

// Server is the local text extraction server.
type Server struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
	StaticDir string `yaml:"static_dir"`
}

// Vision selects the multimodal model used for extraction.
type Vision struct {
	Backend string `yaml:"backend"`
	// Model is empty to use the backend's default.
	Model string `yaml:"model,omitempty"`
	// Fallback is an optional second backend tried when Backend fails.
	Fallback      string `yaml:"fallback,omitempty"`
	FallbackModel string `yaml:"fallback_model,omitempty"`
	OllamaHost    string `yaml:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
	OpenAIAPIKey  string `yaml:"-"`
	GroqAPIKey    string `yaml:"-"`
	GeminiAPIKey  string `yaml:"-"`
}

// Enrich is the client side of the enrichment pipeline.
type Enrich struct {
	Endpoint    string        `yaml:"endpoint"`
	PlaneBudget float32       `yaml:"plane_budget"`
	TextureDir  string        `yaml:"texture_dir"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Search is the image search.
type Search struct {
	APIKey   string `yaml:"-"`
	EngineID string `yaml:"engine_id"`
	Locale   string `yaml:"locale"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Placement tunes model placement.
type Placement struct {
	// ModelPath is a .glb/.gltf file, a .zip bundle or an http(s) URL.
	ModelPath string  `yaml:"model_path"`
	CacheDir  string  `yaml:"cache_dir"`
	Yaw       float32 `yaml:"yaw"`
	RandomYaw bool    `yaml:"random_yaw"`
}

// OCR is the standalone OCR widget.
type OCR struct {
	Languages []string      `yaml:"languages"`
	Interval  time.Duration `yaml:"interval"`
	BoxWidth  float64       `yaml:"box_width"`
	BoxHeight float64       `yaml:"box_height"`
}

// Viewer holds desktop simulator preferences.
type Viewer struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	ShowFPS     bool   `yaml:"show_fps"`
	GridVisible bool   `yaml:"grid_visible"`
	ExportPath  string `yaml:"export_path"`
}

// Log configures the zap logger.
type Log struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:      ":3000",
			UploadDir: "uploads",
			StaticDir: "public",
		},
		Vision: Vision{
			Backend:    BackendOllama,
			OllamaHost: "http://localhost:11434",
		},
		Enrich: Enrich{
			Endpoint:    "http://localhost:3000/upload-image",
			PlaneBudget: 1.0,
			TextureDir:  "textures",
		},
		Search: Search{
			EngineID: "850e1dffcd2124733",
			Locale:   "de-AT",
		},
		Placement: Placement{
			ModelPath: "models/koala.glb",
			CacheDir:  "models/cache",
		},
		OCR: OCR{
			Languages: []string{"eng", "deu"},
			Interval:  500 * time.Millisecond,
			BoxWidth:  200,
			BoxHeight: 100,
		},
		Viewer: Viewer{
			Width:       1280,
			Height:      720,
			ShowFPS:     true,
			GridVisible: true,
			ExportPath:  "exports/scene.glb",
		},
		Log: Log{
			File: "logs/xranchor.log",
		},
	}
}

// Load reads path over Default(). A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv copies secrets and endpoint overrides from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Search.APIKey, "GOOGLE_SEARCH_API_KEY")
	set(&c.Vision.GeminiAPIKey, "GEMINI_API_KEY")
	set(&c.Vision.OpenAIAPIKey, "OPENAI_API_KEY")
	set(&c.Vision.GroqAPIKey, "GROQ_API_KEY")
	set(&c.Vision.OllamaHost, "OLLAMA_HOST")
	set(&c.Enrich.Endpoint, "XRANCHOR_ENDPOINT")
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var errs []error
	for _, b := range []string{c.Vision.Backend, c.Vision.Fallback} {
		switch b {
		case "", BackendOllama, BackendOpenAI, BackendGroq, BackendGemini:
		default:
			errs = append(errs, fmt.Errorf("vision backend %q unknown", b))
		}
	}
	if c.Vision.Backend == "" {
		errs = append(errs, errors.New("vision backend is required"))
	}
	if c.Enrich.PlaneBudget <= 0 {
		errs = append(errs, fmt.Errorf("enrich.plane_budget must be positive, got %v", c.Enrich.PlaneBudget))
	}
	if c.Enrich.Timeout < 0 {
		errs = append(errs, errors.New("enrich.timeout must not be negative"))
	}
	if _, err := language.Parse(c.Search.Locale); err != nil {
		errs = append(errs, fmt.Errorf("search.locale: %w", err))
	}
	if c.OCR.Interval <= 0 {
		errs = append(errs, errors.New("ocr.interval must be positive"))
	}
	if c.OCR.BoxWidth <= 0 || c.OCR.BoxHeight <= 0 {
		errs = append(errs, errors.New("ocr box size must be positive"))
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, errors.New("viewer size must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
// Secrets are never written.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return enc.Close()
}
