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

// Package retrieval orchestrates embedding generation, similarity search,
// price filtering, and result ordering for a parsed query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/your-org/artisan-chat/internal/query"
	"github.com/your-org/artisan-chat/internal/search"
	"go.uber.org/zap"
)

const (
	// SimilarityThreshold is applied by the search backend; candidates below
	// it never reach this package.
	SimilarityThreshold = 0.3
	// DefaultCandidates is the candidate cap for a fresh query.
	DefaultCandidates = 50
	// FollowUpCandidates is the larger cap used when a follow-up re-embeds
	// the previous query, anticipating that price filtering will remove many.
	FollowUpCandidates = 100
	// MaxResults bounds the final ranked list returned to the caller.
	MaxResults = 12
	// DefaultTimeout bounds the two sequential network calls.
	DefaultTimeout = 15 * time.Second
)

// Embedder generates a fixed-length vector for arbitrary text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns candidate products ranked by similarity to an embedding.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]search.Product, error)
}

// Orchestrator turns a parsed query into a ranked product list.
type Orchestrator struct {
	embedder Embedder
	searcher Searcher
	logger   *zap.Logger
	timeout  time.Duration
}

// NewOrchestrator creates a retrieval orchestrator with the default timeout.
func NewOrchestrator(embedder Embedder, searcher Searcher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
}

// NewOrchestratorWithTimeout creates a retrieval orchestrator with a custom
// timeout for the embed+search round trip.
func NewOrchestratorWithTimeout(embedder Embedder, searcher Searcher, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
		timeout:  timeout,
	}
}

// Retrieve embeds the query, runs the similarity search, applies price
// filters with a fallback-to-unfiltered-on-empty rule, sorts, and truncates.
//
// A follow-up turn with no meaningful keywords of its own embeds the previous
// query text instead of the raw current query. Exhausting the retrieval
// timeout surfaces as an empty result rather than an error; caller
// cancellation still aborts.
func (o *Orchestrator) Retrieve(ctx context.Context, parsed *query.ParsedQuery, rawQuery string, res query.Resolution) ([]search.Product, error) {
	rctx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	embedText := rawQuery
	limit := DefaultCandidates
	if res.IsFollowUp && res.UsePreviousQuery && res.PreviousQuery != "" {
		embedText = res.PreviousQuery
		limit = FollowUpCandidates
	}

	embedding, err := o.embedder.EmbedQuery(rctx, embedText)
	if err != nil {
		if timedOut := o.asTimeout(ctx, err); timedOut {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := o.searcher.Search(rctx, embedding, SimilarityThreshold, limit)
	if err != nil {
		if timedOut := o.asTimeout(ctx, err); timedOut {
			return nil, nil
		}
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	products := o.applyPriceFilter(candidates, parsed)
	sortProducts(products, parsed.SortBy)

	if len(products) > MaxResults {
		products = products[:MaxResults]
	}

	o.logger.Debug("Retrieval completed",
		zap.Int("candidate_count", len(candidates)),
		zap.Int("result_count", len(products)),
		zap.Bool("follow_up", res.IsFollowUp),
		zap.String("sort_by", string(parsed.SortBy)))

	return products, nil
}

// applyPriceFilter applies inclusive min/max bounds over the candidate set.
// If filtering would empty a non-empty candidate set, the filter is discarded
// and both bounds are cleared on the parsed query so downstream response text
// does not claim a price range that yielded nothing.
func (o *Orchestrator) applyPriceFilter(candidates []search.Product, parsed *query.ParsedQuery) []search.Product {
	if parsed.MinPrice == nil && parsed.MaxPrice == nil {
		return candidates
	}

	var filtered []search.Product
	for _, p := range candidates {
		if parsed.MinPrice != nil && p.Price < float64(*parsed.MinPrice) {
			continue
		}
		if parsed.MaxPrice != nil && p.Price > float64(*parsed.MaxPrice) {
			continue
		}
		filtered = append(filtered, p)
	}

	if len(filtered) == 0 && len(candidates) > 0 {
		o.logger.Info("Price filter emptied candidate set, reverting to unfiltered results",
			zap.Int("candidate_count", len(candidates)))
		parsed.MinPrice = nil
		parsed.MaxPrice = nil
		return candidates
	}

	return filtered
}

// sortProducts orders products in place. Relevance keeps the search backend's
// native similarity ordering.
func sortProducts(products []search.Product, sortBy query.SortOrder) {
	switch sortBy {
	case query.SortPrice:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case query.SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	}
}

// asTimeout reports whether err is the retrieval deadline expiring, as
// opposed to the caller going away.
func (o *Orchestrator) asTimeout(callerCtx context.Context, err error) bool {
	if callerCtx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		o.logger.Warn("Retrieval timed out, returning empty result", zap.Error(err))
		return true
	}
	return false
}
