package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/otiai10/gosseract/v2"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
)

// minOCRHeight is the height below which captures are upscaled before OCR.
// Tesseract does poorly on text under ~20px tall.
const minOCRHeight = 64

// Tesseract extracts text locally with the Tesseract engine.
type Tesseract struct {
	lang string
}

// NewTesseract creates a Tesseract recognizer for the given language code.
func NewTesseract(lang string) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{lang: lang}
}

// Name implements Recognizer.
func (t *Tesseract) Name() string {
	return config.BackendTesseract
}

// ExtractText preprocesses the image and runs Tesseract on it. ctx is only
// checked before the engine starts; gosseract calls cannot be interrupted.
func (t *Tesseract) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), err)
	}

	img, err := imgio.Open(path)
	if err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), fmt.Errorf("open image: %w", err))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Preprocess(img)); err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), fmt.Errorf("encode image: %w", err))
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), fmt.Errorf("failed to set language: %w", err))
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), fmt.Errorf("failed to set image: %w", err))
	}

	text, err := client.Text()
	if err != nil {
		return "", errors.NewRecognitionFailed(t.Name(), fmt.Errorf("OCR failed: %w", err))
	}
	return cleanText(text), nil
}

// Preprocess converts to grayscale, boosts contrast and upscales short
// images so small UI text is legible to Tesseract.
func Preprocess(img image.Image) image.Image {
	out := adjust.Contrast(effect.Grayscale(img), 0.3)

	b := out.Bounds()
	if b.Dy() > 0 && b.Dy() < minOCRHeight {
		scale := (minOCRHeight + b.Dy() - 1) / b.Dy()
		out = transform.Resize(out, b.Dx()*scale, b.Dy()*scale, transform.Linear)
	}
	return out
}
