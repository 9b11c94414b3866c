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

// Package chat runs the conversational product-search pipeline and exposes
// it over HTTP: parse, resolve follow-up, retrieve, compose, record.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/artisan-chat/internal/compose"
	"github.com/your-org/artisan-chat/internal/history"
	"github.com/your-org/artisan-chat/internal/prefs"
	"github.com/your-org/artisan-chat/internal/query"
	"github.com/your-org/artisan-chat/internal/retrieval"
	"github.com/your-org/artisan-chat/internal/search"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("Query is required")

// Request is an inbound chat turn.
type Request struct {
	Query               string       `json:"query"`
	UserID              string       `json:"userId,omitempty"`
	SessionID           string       `json:"sessionId,omitempty"`
	ConversationHistory []query.Turn `json:"conversationHistory,omitempty"`
}

// Response is the completed turn returned to the caller.
type Response struct {
	Message   string            `json:"message"`
	Products  []search.Product  `json:"products"`
	Parsed    query.ParsedQuery `json:"parsed"`
	Count     int               `json:"count"`
	SessionID string            `json:"sessionId"`
}

// Service runs the five pipeline stages sequentially for each request. The
// pipeline is request-scoped and stateless between requests; durable state
// lives only in the conversation and preference stores.
type Service struct {
	parser       *query.Parser
	resolver     *query.Resolver
	orchestrator *retrieval.Orchestrator
	composer     *compose.Composer
	recorder     *history.Recorder
	historyStore history.Store
	prefsStore   prefs.Store
	logger       *zap.Logger
}

// NewService wires the pipeline stages together. historyStore and prefsStore
// may be nil, which disables history fetch and personalization respectively.
func NewService(
	parser *query.Parser,
	resolver *query.Resolver,
	orchestrator *retrieval.Orchestrator,
	composer *compose.Composer,
	recorder *history.Recorder,
	historyStore history.Store,
	prefsStore prefs.Store,
	logger *zap.Logger,
) *Service {
	return &Service{
		parser:       parser,
		resolver:     resolver,
		orchestrator: orchestrator,
		composer:     composer,
		recorder:     recorder,
		historyStore: historyStore,
		prefsStore:   prefsStore,
		logger:       logger,
	}
}

// Chat processes one conversational turn.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	parsed := s.parser.Parse(req.Query)

	turns := req.ConversationHistory
	if len(turns) == 0 && req.UserID != "" && req.SessionID != "" && s.historyStore != nil {
		turns = s.loadHistory(ctx, sessionID)
	}

	res := s.resolver.Resolve(&parsed, req.Query, turns)

	products, err := s.orchestrator.Retrieve(ctx, &parsed, req.Query, res)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if products == nil {
		products = []search.Product{}
	}

	userPrefs := s.loadPreferences(ctx, req.UserID)

	message := s.composer.Compose(ctx, compose.GenerationContext{
		Query:        req.Query,
		ProductCount: len(products),
		Categories:   parsed.Categories,
		Occasion:     parsed.Occasion,
		PriceRange: compose.PriceRange{
			Min: parsed.MinPrice,
			Max: parsed.MaxPrice,
		},
		UserPreferences: compose.UserPreferences{
			FavoriteCategories: userPrefs.FavoriteCategories,
			RecentSearches:     userPrefs.RecentSearches,
		},
		IsFollowUp:    res.IsFollowUp,
		PreviousQuery: res.PreviousQuery,
	})

	productIDs := make([]string, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}

	s.recorder.Record(ctx, req.UserID, sessionID, req.Query, message, parsed, productIDs, len(products))
	s.recordSearchTerm(ctx, req.UserID, req.Query, parsed.Categories)

	s.logger.Info("Chat turn completed",
		zap.String("session_id", sessionID),
		zap.Int("result_count", len(products)),
		zap.Bool("follow_up", res.IsFollowUp),
		zap.Bool("anonymous", req.UserID == ""))

	return &Response{
		Message:   message,
		Products:  products,
		Parsed:    parsed,
		Count:     len(products),
		SessionID: sessionID,
	}, nil
}

// History returns a session's stored turns.
func (s *Service) History(ctx context.Context, sessionID string) ([]history.Turn, error) {
	if s.historyStore == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return s.historyStore.ListTurns(ctx, sessionID)
}

// loadHistory fetches prior turns for follow-up resolution when the caller
// did not supply them. Fetch failure degrades to a fresh conversation.
func (s *Service) loadHistory(ctx context.Context, sessionID string) []query.Turn {
	stored, err := s.historyStore.ListTurns(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Failed to load conversation history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil
	}

	turns := make([]query.Turn, 0, len(stored))
	for _, t := range stored {
		turns = append(turns, query.Turn{Role: string(t.Role), Message: t.Message})
	}
	return turns
}

// loadPreferences fetches stored taste signals best-effort.
func (s *Service) loadPreferences(ctx context.Context, userID string) prefs.Preferences {
	if userID == "" || s.prefsStore == nil {
		return prefs.Preferences{}
	}

	p, err := s.prefsStore.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load user preferences",
			zap.String("user_id", userID),
			zap.Error(err))
		return prefs.Preferences{}
	}
	return p
}

// recordSearchTerm keeps the shopper's recent searches and favorite
// categories fresh, best-effort.
func (s *Service) recordSearchTerm(ctx context.Context, userID, term string, categories []string) {
	if userID == "" || s.prefsStore == nil {
		return
	}
	if err := s.prefsStore.RecordSearch(ctx, userID, term, categories); err != nil {
		s.logger.Warn("Failed to record search term", zap.Error(err))
	}
}
