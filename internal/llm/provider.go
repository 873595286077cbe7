package llm

import "context"

// Provider is the interface the planner calls; implementations handle
// protocol-specific details (auth, request shape, response parsing).
type Provider interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
}

// Config holds the common fields every provider implementation needs.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}
