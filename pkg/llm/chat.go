package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatConfig represents the configuration for the answer synthesizer.
type ChatConfig struct {
	Model        string
	Token        string
	BaseURL      string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

const defaultSystemPrompt = "You are a helpful, concise assistant. Use ONLY the provided context to answer. " +
	"If the answer is not in the context, say you don't know."

// ChatEngine synthesizes answers from retrieved context chunks.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewChatWithConfig creates a new ChatEngine with the given configuration.
func NewChatWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}

	opts := []openai.Option{openai.WithModel(config.Model)}
	if config.Token != "" {
		opts = append(opts, openai.WithToken(config.Token))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Complete generates an answer grounded in the numbered context chunks.
func (ce *ChatEngine) Complete(ctx context.Context, contextChunks []string, question string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(contextChunks, question)),
	}

	resp, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat error: empty response")
	}

	return resp.Choices[0].Content, nil
}

func buildPrompt(contextChunks []string, question string) string {
	var contextBuilder strings.Builder
	for i, chunk := range contextChunks {
		contextBuilder.WriteString(fmt.Sprintf("[Chunk %d] %s\n\n", i+1, chunk))
	}

	return fmt.Sprintf(
		"Context:\n%s\nQuestion: %s\nAnswer using only the context. Cite chunk numbers in brackets when relevant.",
		contextBuilder.String(), question)
}
