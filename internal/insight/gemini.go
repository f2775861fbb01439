package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiGenerator is the production Generator backed by the Google
// generative AI SDK.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator opens a client for the given credential.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Models lists the model names the credential may call through
// generateContent, with the "models/" prefix stripped.
func (g *GeminiGenerator) Models(ctx context.Context) ([]string, error) {
	var names []string

	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}

		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}

	return names, nil
}

// Generate runs one generation against the named model.
func (g *GeminiGenerator) Generate(ctx context.Context, name, prompt string, opts GenOptions) (string, error) {
	model := g.client.GenerativeModel(name)
	model.SetTemperature(opts.Temperature)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from %s", name)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in response from %s", name)
	}

	return b.String(), nil
}
