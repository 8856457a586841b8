package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient generates text with the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string

	// Search-grounded calls go over the REST endpoint directly; the SDK has
	// no hook for the google_search built-in tool.
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a new Gemini API client for the given model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the
// generated text. Params are applied per call so each use case can run with
// its own temperature and output budget.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, p Params) (ContentResponse, error) {
	if p.SearchEnabled {
		return c.generateWithSearch(ctx, prompt, p)
	}

	model := c.client.GenerativeModel(c.model)
	if p.Temperature > 0 {
		model.SetTemperature(p.Temperature)
	}
	if p.TopP > 0 {
		model.SetTopP(p.TopP)
	}
	if p.TopK > 0 {
		model.SetTopK(p.TopK)
	}
	if p.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(p.MaxOutputTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := TokenUsage{Model: c.model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
