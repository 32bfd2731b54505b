package ocr

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
)

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())

	r, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.BackendGemini, r.Name())

	cfg.Backend = config.BackendTesseract
	r, err = New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.BackendTesseract, r.Name())

	cfg.Backend = "abbyy"
	_, err = New(cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestGemini_MissingKeyIsConfigError(t *testing.T) {
	g := NewGemini("", "gemini-2.0-flash")

	_, err := g.ExtractText(context.Background(), "/does/not/matter.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
	assert.Equal(t, config.KeyAPIKey, errors.As(err).Details["setting"])
}

func TestGemini_UnreadableImage(t *testing.T) {
	g := NewGemini("key", "gemini-2.0-flash")

	_, err := g.ExtractText(context.Background(), t.TempDir()+"/missing.png")
	assert.True(t, errors.Is(err, errors.ErrRecognitionFailed))
}

func TestReloadable_SwapsBackend(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	r, err := NewReloadable(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = r.ExtractText(context.Background(), "x.png")
	assert.True(t, errors.Is(err, errors.ErrConfig), "no key yet")

	cfg.Backend = config.BackendTesseract
	require.NoError(t, r.Reload(cfg))
	assert.Equal(t, config.BackendTesseract, r.Name())

	cfg.Backend = "bogus"
	assert.Error(t, r.Reload(cfg))
	assert.Equal(t, config.BackendTesseract, r.Name(), "failed reload keeps the old backend")
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"no candidates", &genai.GenerateContentResponse{}, "", false},
		{"nil content", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{}},
		}, "", false},
		{"joins parts and skips thoughts", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "Hello, "},
					{Text: "$x^2$"},
				}},
			}},
		}, "Hello, $x^2$", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := responseText(tt.resp)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "image/png", mimeType("a/screenshot_1.png"))
	assert.Equal(t, "image/jpeg", mimeType("a/photo.JPG"))
	assert.Equal(t, "image/webp", mimeType("a/b.webp"))
	assert.Equal(t, "image/png", mimeType("noext"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a\nb", cleanText("  a\r\nb \n\n"))
	assert.Equal(t, "", cleanText(" \t\n"))
}

func TestPreprocess_UpscalesShortImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 20))
	for x := 0; x < 100; x++ {
		src.Set(x, 10, color.RGBA{R: 200, G: 30, B: 30, A: 255})
	}

	out := Preprocess(src)
	assert.Equal(t, 400, out.Bounds().Dx())
	assert.Equal(t, 80, out.Bounds().Dy())

	r, g, b, _ := out.At(0, 0).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestPreprocess_KeepsTallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 90))

	out := Preprocess(src)
	assert.Equal(t, src.Bounds().Size(), out.Bounds().Size())
}

func TestNewTesseract_DefaultLang(t *testing.T) {
	assert.Equal(t, "eng", NewTesseract("").lang)
	assert.Equal(t, "deu", NewTesseract("deu").lang)
}
