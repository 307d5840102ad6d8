package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini classifies messages with a Gemini model in JSON mode.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a client for the Gemini API. An empty apiKey lets the SDK
// read GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Classify(ctx context.Context, text string, categories []string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(text, categories)}},
		},
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %w", ErrUnavailable, err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrUnavailable)
	}
	clean := cleanModelJSON(raw)

	slog.DebugContext(ctx, "Classifier response",
		"model", g.model,
		"duration", time.Since(start),
		"raw", raw)
	return []byte(clean), nil
}

// IsUnavailable reports whether err came from the remote model rather than
// from the message itself.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
