// Copyright 2025 Artisan Chat Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package embedding generates query embeddings through the OpenAI API with
// retry and dimension validation.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// Model defines the model to use for embeddings
	Model = openai.SmallEmbedding3
	// ExpectedDimensions defines the expected embedding dimensions
	ExpectedDimensions = 1536
	// MaxRetries defines the maximum number of retry attempts
	MaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
)

// Client wraps the go-openai client for query embedding generation.
type Client struct {
	client *openai.Client
	logger *zap.Logger
	model  openai.EmbeddingModel
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a new embedding client.
func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if !strings.HasPrefix(apiKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}

	client := &Client{
		client: openai.NewClient(apiKey),
		logger: logger,
		model:  Model,
	}

	client.logger.Info("Embedding client initialized",
		zap.String("model", string(Model)),
		zap.Int("expected_dimensions", ExpectedDimensions),
		zap.Int("max_retries", MaxRetries),
	)

	return client, nil
}

// EmbedQuery generates an embedding for a single query text.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	c.logger.Debug("Starting query embedding generation",
		zap.String("query_preview", truncateText(query, 100)),
		zap.String("model", string(c.model)),
	)

	start := time.Now()

	embedding, err := c.createEmbeddingWithRetry(ctx, query)
	if err != nil {
		c.logger.Error("Failed to create embedding", zap.Error(err))
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != ExpectedDimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), ExpectedDimensions)
	}

	c.logger.Debug("Query embedding generation completed",
		zap.Int("embedding_dimensions", len(embedding)),
		zap.Duration("processing_time", time.Since(start)),
	)

	return embedding, nil
}

// createEmbeddingWithRetry creates an embedding with exponential backoff retry logic
func (c *Client) createEmbeddingWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", MaxRetries),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: c.model,
		})
		if err != nil {
			lastErr = c.handleAPIError(err)

			if retryErr, ok := lastErr.(*RetryableError); ok {
				if retryErr.RetryAfter > 0 {
					delay = retryErr.RetryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}
				continue
			}

			return nil, lastErr
		}

		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}

		if attempt > 0 {
			c.logger.Info("Embedding request succeeded after retry",
				zap.Int("attempt", attempt+1))
		}

		return resp.Data[0].Embedding, nil
	}

	c.logger.Error("All retry attempts exhausted",
		zap.Int("max_retries", MaxRetries),
		zap.Error(lastErr),
	)

	return nil, fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// handleAPIError handles OpenAI API errors and determines if they are retryable
func (c *Client) handleAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			// The API error carries no retry hint; the retry loop falls back
			// to exponential backoff when RetryAfter is zero.
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}

// truncateText truncates text to a maximum length for logging
func truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}
