package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. baseURL may point at any OpenAI-compatible
// embeddings server; apiKey is required only when baseURL is empty.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// Retries are handled by the embedder's backoff loop.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}
