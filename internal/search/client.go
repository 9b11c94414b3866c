package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client wraps the remote similarity-search service's REST API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
	maxRetries     int
	baseRetryDelay time.Duration
}

// NewClient creates a similarity-search client with default settings.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return NewClientWithOptions(baseURL, logger, 3, time.Second)
}

// NewClientWithOptions creates a similarity-search client with custom retry
// settings.
func NewClientWithOptions(baseURL string, logger *zap.Logger, maxRetries int, baseRetryDelay time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
		maxRetries:     maxRetries,
		baseRetryDelay: baseRetryDelay,
	}
}

// matchRequest is the wire format of a similarity query.
type matchRequest struct {
	Embedding  []float32 `json:"query_embedding"`
	Threshold  float64   `json:"match_threshold"`
	MatchCount int       `json:"match_count"`
}

// ServiceError represents an error response from the search service.
type ServiceError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("search service error (status %d): %s", e.StatusCode, e.Message)
}

// Search returns candidate products ranked by similarity to the query
// embedding. Candidates below the threshold are excluded by the service.
func (c *Client) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Product, error) {
	var products []Product

	err := c.retryWithBackoff(ctx, func() error {
		var opErr error
		products, opErr = c.search(ctx, embedding, threshold, limit)
		return opErr
	}, "Search")
	if err != nil {
		return nil, err
	}

	return products, nil
}

func (c *Client) search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Product, error) {
	payload, err := json.Marshal(matchRequest{
		Embedding:  embedding,
		Threshold:  threshold,
		MatchCount: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := c.baseURL + "/rpc/match_products"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)

		var svcErr ServiceError
		if json.Unmarshal(body, &svcErr) == nil && svcErr.Message != "" {
			svcErr.StatusCode = resp.StatusCode
			return nil, svcErr
		}

		return nil, fmt.Errorf("search service returned status %d: %s", resp.StatusCode, string(body))
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.Debug("Similarity search completed",
		zap.Int("candidate_count", len(products)),
		zap.Float64("threshold", threshold),
		zap.Int("limit", limit))

	return products, nil
}

// retryWithBackoff executes an operation with exponential backoff retry logic.
func (c *Client) retryWithBackoff(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			c.logger.Info("Retrying operation after delay",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := operation(); err != nil {
			lastErr = err
			c.logger.Warn("Operation failed, will retry",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		return nil
	}

	c.logger.Error("Operation failed after all retries",
		zap.String("operation", operationName),
		zap.Int("max_retries", c.maxRetries),
		zap.Error(lastErr))
	return fmt.Errorf("operation failed after %d retries: %w", c.maxRetries, lastErr)
}

// HealthCheck verifies the search service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check search service health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search service health check failed with status %d", resp.StatusCode)
	}

	return nil
}
