// Package ocrserver is the local HTTP server that receives camera frames and
// answers with the text a vision model reads from them.
package ocrserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultAddr matches the port the AR client posts to.
	DefaultAddr = ":3000"
	// DefaultUploadDir is where frames are stored while they are processed.
	DefaultUploadDir = "uploads"
	// DefaultStaticDir is served at the root.
	DefaultStaticDir = "public"
	maxUploadBytes   = 32 << 20
)

const (
	healthyText    = "Application is healthy!"
	unhealthyText  = "Error, not healthy :("
	processingText = "Error processing the image"
)

// Options configure a Server. Extractor is required.
type Options struct {
	Addr      string
	UploadDir string
	StaticDir string // empty disables static files
	Extractor Extractor
	// Health, when set, is consulted by GET /health.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

// Server routes /health and /upload-image.
type Server struct {
	opts   Options
	log    *zap.Logger
	router chi.Router
}

// New builds the router. The upload dir is created on first upload.
func New(opts Options) (*Server, error) {
	if opts.Extractor == nil {
		return nil, errors.New("ocrserver: extractor is required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.UploadDir == "" {
		opts.UploadDir = DefaultUploadDir
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{opts: opts, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(allowAnyOrigin())
	s.RegisterHTTP(r)
	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}
	s.router = r
	return s, nil
}

// RegisterHTTP mounts the API routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Post("/upload-image", s.handleUpload)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("ocrserver: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("server running", zap.String("addr", "http://"+ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ocrserver: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ocrserver: shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.log.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": unhealthyText})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": healthyText})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	text, err := s.processUpload(w, r)
	if err != nil {
		s.log.Error("upload failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": processingText})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) processUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("form field image: %w", err)
	}
	defer file.Close()

	path, err := s.store(file, hdr.Filename)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)
	s.log.Debug("upload stored",
		zap.String("original_name", hdr.Filename),
		zap.Int64("size", hdr.Size),
		zap.String("path", path),
	)

	text, err := s.opts.Extractor.ExtractText(r.Context(), path)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	s.log.Info("text extracted", zap.String("text", text))
	return text, nil
}

// store writes the upload under a random name, keeping a short extension.
func (s *Server) store(src io.Reader, original string) (string, error) {
	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return "", err
	}
	name := uuid.NewString()
	if ext := strings.ToLower(filepath.Ext(original)); len(ext) > 1 && len(ext) <= 5 {
		name += ext
	}
	path := filepath.Join(s.opts.UploadDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
