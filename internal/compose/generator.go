package compose

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultGenerationModel is the chat model used for the generative path.
	DefaultGenerationModel = "gpt-4o-mini"
	// DefaultGenerationMaxTokens bounds the reply at roughly two sentences.
	DefaultGenerationMaxTokens = 80
	// DefaultGenerationTemperature keeps replies warm but on-topic.
	DefaultGenerationTemperature = 0.7
)

// GeneratorOptions tunes the generative path. A nil Temperature selects the
// default; an explicit zero requests deterministic output.
type GeneratorOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// OpenAIGenerator produces short conversational replies via chat completion.
// The underlying client is created lazily on first use; concurrent first
// requests share a single initialization.
type OpenAIGenerator struct {
	apiKey string
	opts   GeneratorOptions
	logger *zap.Logger

	once    sync.Once
	client  *openai.Client
	initErr error
}

// NewOpenAIGenerator creates a generator with default options. The API client
// is not created until the first Generate call.
func NewOpenAIGenerator(apiKey string, logger *zap.Logger) *OpenAIGenerator {
	return NewOpenAIGeneratorWithOptions(apiKey, GeneratorOptions{}, logger)
}

// NewOpenAIGeneratorWithOptions creates a generator with custom model
// settings. Zero-value fields fall back to the defaults.
func NewOpenAIGeneratorWithOptions(apiKey string, opts GeneratorOptions, logger *zap.Logger) *OpenAIGenerator {
	if opts.Model == "" {
		opts.Model = DefaultGenerationModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultGenerationMaxTokens
	}
	if opts.Temperature == nil {
		temp := float64(DefaultGenerationTemperature)
		opts.Temperature = &temp
	}

	return &OpenAIGenerator{apiKey: apiKey, opts: opts, logger: logger}
}

// Generate produces a reply for the prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.initErr = fmt.Errorf("API key is required")
			return
		}
		g.client = openai.NewClient(g.apiKey)
		g.logger.Info("Generation client initialized", zap.String("model", g.opts.Model))
	})
	if g.initErr != nil {
		return "", g.initErr
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: float32(*g.opts.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
