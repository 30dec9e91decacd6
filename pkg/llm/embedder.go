package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	Model   string
	Token   string
	BaseURL string
	Retry   RetryPolicy
}

// Embedder converts texts into vectors through the OpenAI embeddings API.
type Embedder struct {
	config EmbedderConfig
	client *openai.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryPolicy()
	}

	opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
	if config.Token != "" {
		opts = append(opts, openai.WithToken(config.Token))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// CreateEmbedding embeds all texts in a single order-preserving call,
// retrying transient failures per the configured policy.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := e.config.Retry.Do(ctx, func() error {
		out, err := e.client.CreateEmbedding(ctx, texts)
		if err != nil {
			return err
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return vectors, nil
}
