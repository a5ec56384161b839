package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"xr-anchor/internal/asset"
	"xr-anchor/internal/config"
	"xr-anchor/internal/download"
	"xr-anchor/internal/enrich"
	"xr-anchor/internal/imagesearch"
	"xr-anchor/internal/llm"
	"xr-anchor/internal/placement"
	"xr-anchor/internal/scene"
)

// newVision builds the configured vision backend, wrapped in a fallback when
// a second backend is configured.
func newVision(ctx context.Context, c config.Vision) (llm.Vision, error) {
	primary, err := visionBackend(ctx, c, c.Backend)
	if err != nil {
		return nil, err
	}
	if c.Fallback == "" {
		return primary, nil
	}
	secondary, err := visionBackend(ctx, c, c.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return &llm.VisionFallback{Primary: primary, Secondary: secondary, SecondaryModel: c.FallbackModel}, nil
}

func visionBackend(ctx context.Context, c config.Vision, backend string) (llm.Vision, error) {
	switch backend {
	case config.BackendOllama:
		return llm.NewOllama(c.OllamaHost), nil
	case config.BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
		}
		if c.OpenAIBaseURL != "" {
			return llm.NewOpenAICompatible(c.OpenAIBaseURL, c.OpenAIAPIKey), nil
		}
		return llm.NewOpenAI(c.OpenAIAPIKey), nil
	case config.BackendGroq:
		if c.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq: GROQ_API_KEY not set")
		}
		return llm.NewGroq(c.GroqAPIKey), nil
	case config.BackendGemini:
		return llm.NewGemini(ctx, c.GeminiAPIKey, "")
	}
	return nil, fmt.Errorf("vision backend %q unknown", backend)
}

// newPipeline builds the enrichment pipeline around frames. It returns nil
// when no image search key is configured; image taps then only alert.
func newPipeline(ctx context.Context, frames enrich.FrameSource) (*enrich.Pipeline, error) {
	if cfg.Search.APIKey == "" {
		log.Warn("image search disabled", zap.String("env", imagesearch.APIKeyEnv))
		return nil, nil
	}
	searcher, err := imagesearch.NewGoogle(ctx, imagesearch.Options{
		APIKey:   cfg.Search.APIKey,
		EngineID: cfg.Search.EngineID,
		Locale:   language.Make(cfg.Search.Locale),
		Endpoint: cfg.Search.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return &enrich.Pipeline{
		Frames:     frames,
		Uploader:   &enrich.HTTPUploader{Endpoint: cfg.Enrich.Endpoint},
		Searcher:   searcher,
		Fetcher:    &download.Client{},
		Budget:     cfg.Enrich.PlaneBudget,
		TextureDir: cfg.Enrich.TextureDir,
		Timeout:    cfg.Enrich.Timeout,
		Logger:     log.Named("enrich"),
	}, nil
}

// newPlacement composes the scene and loads the model template. A model that
// cannot be loaded is logged; model taps then report ErrNoTemplate.
func newPlacement(ctx context.Context) *placement.Context {
	s := scene.Compose()
	template, err := loadTemplate(ctx, cfg.Placement.ModelPath)
	if err != nil {
		log.Warn("model template not loaded", zap.String("model", cfg.Placement.ModelPath), zap.Error(err))
	}
	return placement.NewContext(s, placement.Options{
		Template:  template,
		Yaw:       cfg.Placement.Yaw,
		RandomYaw: cfg.Placement.RandomYaw,
		Logger:    log.Named("placement"),
	})
}

func loadTemplate(ctx context.Context, ref string) (*scene.Node, error) {
	path, err := asset.Resolve(ctx, ref, cfg.Placement.CacheDir)
	if err != nil {
		return nil, err
	}
	return asset.LoadModel(path)
}
