// Package embedding turns text passages into float32 vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/docsearch/internal/config"
)

// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
const DefaultBatchSize = 500

// ErrShortResponse is returned when the server answers with fewer vectors than inputs.
var ErrShortResponse = errors.New("embedding response missing vectors")

// Embedder maps passages to fixed-dimension vectors. The i-th output belongs to the
// i-th input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector size, or 0 when it is only known after the first call.
	Dimension() int
	Name() string
}

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderHash:
		return NewHashEmbedder(cfg.Dimension), nil
	case config.ProviderOpenAI:
		client, err := NewClient(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return NewOpenAIEmbedder(client, cfg.Model, cfg.Dimension, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// It batches requests and retries with exponential backoff on rate limit and server errors.
type OpenAIEmbedder struct {
	client    *Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder for model. If batchSize is 0, DefaultBatchSize is used.
// dimension is informational and may be 0.
func NewOpenAIEmbedder(client *Client, model string, dimension, batchSize int) *OpenAIEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

// Name reports the model used.
func (e *OpenAIEmbedder) Name() string { return "openai:" + e.model }

// Dimension reports the configured vector size.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed generates embeddings for texts, batch by batch, preserving input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// embedBatchWithRetry embeds a single batch. 429 and 5xx responses are retried,
// everything else fails immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		out := make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(out) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", data.Index))
			}
			out[data.Index] = toFloat32(data.Embedding)
		}
		for i, v := range out {
			if v == nil {
				return backoff.Permanent(fmt.Errorf("%w: input %d", ErrShortResponse, i))
			}
		}
		embeddings = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// isRetryable reports rate limit (429) and server-side (5xx) API errors.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// toFloat32 converts []float64 to []float32; the index operates in single precision.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
