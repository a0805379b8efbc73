package llm

import (
	"context"
	"errors"
)

// ErrTransport marks failures reaching the model: network errors, timeouts
// and non-success API responses.
var ErrTransport = errors.New("generation transport failure")

// IsTransport reports whether err is a gateway transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, context.DeadlineExceeded)
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends a prompt and returns the raw completion text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one completion
type GenerateRequest struct {
	Prompt string

	// System is an optional system prompt (DefaultSystemPrompt when empty)
	System string

	// Model is the specific model to use (provider-specific)
	Model string

	Temperature float64

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the model output, untouched
type GenerateResponse struct {
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// DefaultSystemPrompt frames every generation call.
const DefaultSystemPrompt = "You are a senior intelligence analyst producing concise, structured briefs for decision makers. Respond only with the JSON requested."

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Model:       "",
		Timeout:     60,
		MaxTokens:   4000,
		Temperature: 0.3,
	}
}

// resolve fills request gaps from the provider config.
func (c Config) resolve(req GenerateRequest, defaultModel string) GenerateRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 4000
	}
	if req.Temperature == 0 {
		req.Temperature = c.Temperature
	}
	if req.System == "" {
		req.System = DefaultSystemPrompt
	}
	return req
}
