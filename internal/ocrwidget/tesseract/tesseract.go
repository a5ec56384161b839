// Package tesseract is the Tesseract OCR engine for the OCR widget.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguages are loaded when none are given.
var DefaultLanguages = []string{"eng", "deu"}

// Engine keeps one gosseract client for the widget's lifetime. Calls are
// serialized since a client holds a single image.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates the client and loads languages.
func New(languages ...string) (*Engine, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	c := gosseract.NewClient()
	if err := c.SetLanguage(languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("tesseract: set languages: %w", err)
	}
	return &Engine{client: c}, nil
}

// Recognize returns the plain text found in img.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("tesseract: encode: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", fmt.Errorf("tesseract: engine closed")
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("tesseract: set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: recognize text: %w", err)
	}
	return text, nil
}

// Close terminates the client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
