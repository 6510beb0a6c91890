// Package llm provides a small client for text and vision generation
// against the two wire dialects that matter here: OpenAI-compatible chat
// completions and Gemini generateContent.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider selects the wire dialect. It is configured explicitly, never
// guessed from the base URL.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Config contains LLM client configuration
type Config struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	// Timeout bounds a single generation call end to end.
	Timeout time.Duration
}

// DefaultConfig returns the gemini defaults
func DefaultConfig() Config {
	return DefaultConfigFor(ProviderGemini)
}

// DefaultConfigFor returns defaults appropriate for the given provider.
// For openai the BaseURL stays empty so the client library's own host
// applies.
func DefaultConfigFor(provider Provider) Config {
	config := Config{
		Provider:    provider,
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     60 * time.Second,
	}
	switch provider {
	case ProviderOpenAI:
		config.Model = "gpt-4o-mini"
	default:
		config.BaseURL = "https://generativelanguage.googleapis.com"
		config.Model = "gemini-2.5-flash"
	}
	return config
}

// ProviderError is returned when the provider answered with a non-2xx
// status. The body is kept verbatim for logging; callers branch on the
// status code.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("LLM provider returned %d: %s", e.StatusCode, e.Body)
}

// Client calls a generative model endpoint
type Client struct {
	config     Config
	httpClient *http.Client
	openai     *openai.Client
}

// NewClient creates a client for the configured provider
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
	if config.Provider == ProviderOpenAI {
		oc := openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			oc.BaseURL = strings.TrimSuffix(config.BaseURL, "/") + "/v1"
		}
		oc.HTTPClient = c.httpClient
		c.openai = openai.NewClientWithConfig(oc)
	}
	return c
}

// Generate sends a prompt, with an optional inline image, and returns the
// raw model output. Callers own prompt construction and response parsing;
// this layer only speaks the wire dialects.
func (c *Client) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	if c.config.APIKey == "" {
		return "", errors.New("LLM API key is not configured")
	}
	switch c.config.Provider {
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt, image)
	case ProviderGemini:
		return c.generateGemini(ctx, prompt, image)
	default:
		return "", fmt.Errorf("unknown LLM provider: %q", c.config.Provider)
	}
}
