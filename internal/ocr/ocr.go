// Package ocr turns a saved screenshot into text.
//
// Two recognizers are provided: Gemini, a remote vision model that needs an
// API key, and Tesseract, a local engine that needs the tesseract libraries
// installed. Both satisfy Recognizer. Reloadable wraps whichever is active
// so the credential can change at runtime.
package ocr

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
)

// Prompt is sent to vision backends alongside the image.
const Prompt = "Extract text from the image without changing the content. Please use $...$ or $$...$$ to denote math expressions."

// Recognizer extracts text from an image file.
type Recognizer interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// ExtractText returns the text found in the image at path. Errors are
	// *errors.GrabError with code CONFIG_ERROR or RECOGNITION_FAILED.
	ExtractText(ctx context.Context, path string) (string, error)
}

// New builds the recognizer selected by cfg.Backend. A missing API key is
// not an error here: the Gemini recognizer is still returned and fails each
// call with CONFIG_ERROR until a key is configured.
func New(cfg *config.Config, log *zap.Logger) (Recognizer, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		if !cfg.HasAPIKey() {
			log.Warn("gemini api key not configured; recognition disabled until set")
		}
		return NewGemini(cfg.APIKey(), cfg.Model), nil
	case config.BackendTesseract:
		return NewTesseract(cfg.TesseractLang), nil
	default:
		return nil, errors.NewConfig(config.KeyBackend, "unknown OCR backend "+cfg.Backend)
	}
}

// Reloadable is a Recognizer whose backend can be swapped, e.g. after the
// user saves a new API key. Safe for concurrent use.
type Reloadable struct {
	mu   sync.RWMutex
	curr Recognizer
	log  *zap.Logger
}

// NewReloadable builds the initial recognizer from cfg.
func NewReloadable(cfg *config.Config, log *zap.Logger) (*Reloadable, error) {
	r, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Reloadable{curr: r, log: log}, nil
}

// Reload rebuilds the recognizer from cfg. On error the old one stays.
func (r *Reloadable) Reload(cfg *config.Config) error {
	next, err := New(cfg, r.log)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.curr = next
	r.mu.Unlock()
	r.log.Info("recognizer reloaded", zap.String("backend", next.Name()))
	return nil
}

// Name returns the active backend's name.
func (r *Reloadable) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curr.Name()
}

// ExtractText delegates to the active backend.
func (r *Reloadable) ExtractText(ctx context.Context, path string) (string, error) {
	r.mu.RLock()
	curr := r.curr
	r.mu.RUnlock()
	return curr.ExtractText(ctx, path)
}

// cleanText trims surrounding whitespace and normalizes line endings.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
