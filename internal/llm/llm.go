package llm

import "context"

// Params controls a single generation call. Zero values fall back to the
// backend defaults.
type Params struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	// SearchEnabled asks the backend to ground the response with web search.
	SearchEnabled bool
}

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string, p Params) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
