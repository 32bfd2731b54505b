package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
)

// Gemini extracts text with a Gemini vision model.
type Gemini struct {
	apiKey string
	model  string
}

// NewGemini creates a Gemini recognizer. An empty apiKey is allowed.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{apiKey: apiKey, model: model}
}

// Name implements Recognizer.
func (g *Gemini) Name() string {
	return config.BackendGemini
}

// ExtractText uploads the image inline with Prompt and returns the model's
// text parts joined together.
func (g *Gemini) ExtractText(ctx context.Context, path string) (string, error) {
	if g.apiKey == "" {
		return "", errors.NewConfig(config.KeyAPIKey, "Gemini API key is not set; save one in Settings first")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewRecognitionFailed(g.Name(), fmt.Errorf("read %s: %w", filepath.Base(path), err))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", errors.NewRecognitionFailed(g.Name(), err)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: Prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType(path), Data: data}},
		},
	}}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", errors.NewRecognitionFailed(g.Name(), err)
	}

	text, ok := responseText(resp)
	if !ok {
		return "", errors.NewRecognitionFailed(g.Name(), fmt.Errorf("response contained no text"))
	}
	return cleanText(text), nil
}

// responseText concatenates the text parts of the first candidate, skipping
// thought summaries.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", false
	}

	var sb strings.Builder
	found := false
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
		found = true
	}
	return sb.String(), found
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
