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

// Package compose builds the natural-language reply for a chat turn. A
// generative path is attempted first when configured; the deterministic
// template path is the reliable fallback and never fails.
package compose

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// MinGeneratedLength and MaxGeneratedLength bound acceptable generative
	// output; anything outside the band falls back to templates.
	MinGeneratedLength = 10
	MaxGeneratedLength = 200
)

// PriceRange carries the effective price bounds after retrieval.
type PriceRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// UserPreferences carries the shopper's stored taste signals.
type UserPreferences struct {
	FavoriteCategories []string `json:"favorite_categories"`
	RecentSearches     []string `json:"recent_searches"`
}

// GenerationContext is the sole input to response composition. It carries no
// raw product records, keeping composition decoupled from retrieval
// internals.
type GenerationContext struct {
	Query           string
	ProductCount    int
	Categories      []string
	Occasion        string
	PriceRange      PriceRange
	UserPreferences UserPreferences
	IsFollowUp      bool
	PreviousQuery   string
}

// Generator produces a short conversational reply from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer assembles the reply text for a turn.
type Composer struct {
	generator Generator
	logger    *zap.Logger
}

// NewComposer creates a template-only composer.
func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

// NewComposerWithGenerator creates a composer that tries the generative path
// first and falls back to templates on any failure.
func NewComposerWithGenerator(generator Generator, logger *zap.Logger) *Composer {
	return &Composer{generator: generator, logger: logger}
}

// Compose returns the reply for a turn. Generation failures are recovered
// locally and never propagate to the caller.
func (c *Composer) Compose(ctx context.Context, gc GenerationContext) string {
	if c.generator != nil {
		message, err := c.tryGenerate(ctx, gc)
		if err == nil {
			return message
		}
		c.logger.Warn("Generative response failed, falling back to templates", zap.Error(err))
	}

	return c.composeFromTemplates(gc)
}

// tryGenerate runs the generative path and validates the output length band.
func (c *Composer) tryGenerate(ctx context.Context, gc GenerationContext) (string, error) {
	message, err := c.generator.Generate(ctx, buildPrompt(gc))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	message = strings.TrimSpace(message)
	length := utf8.RuneCountInString(message)
	if length < MinGeneratedLength || length > MaxGeneratedLength {
		return "", fmt.Errorf("generated response length %d outside acceptable band", length)
	}

	return message, nil
}

// composeFromTemplates assembles [opening] + [main message] + [closing].
func (c *Composer) composeFromTemplates(gc GenerationContext) string {
	if gc.ProductCount == 0 {
		return pick(noResultsPool)
	}

	return pickOpening(gc) + " " + mainMessage(gc) + " " + pick(closings)
}

func pickOpening(gc GenerationContext) string {
	switch {
	case gc.IsFollowUp:
		return pick(followUpOpenings)
	case len(gc.UserPreferences.FavoriteCategories) > 0:
		return fmt.Sprintf(pick(personalizedOpenings), gc.UserPreferences.FavoriteCategories[0])
	}
	return pick(genericOpenings)
}

// mainMessage builds the count sentence with conditional occasion, category,
// and price clauses.
func mainMessage(gc GenerationContext) string {
	noun := "amazing products"
	if gc.ProductCount == 1 {
		noun = "beautiful piece"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d %s", gc.ProductCount, noun)

	if gc.Occasion != "" {
		fmt.Fprintf(&sb, pick(occasionPhrases), gc.Occasion)
	}

	// The bare "gift" placeholder category adds nothing worth saying.
	if len(gc.Categories) > 0 && !(len(gc.Categories) == 1 && gc.Categories[0] == "gift") {
		sb.WriteString(" in " + strings.Join(gc.Categories, " & "))
	}

	switch {
	case gc.PriceRange.Min != nil && gc.PriceRange.Max != nil:
		fmt.Fprintf(&sb, " between ₹%d-₹%d", *gc.PriceRange.Min, *gc.PriceRange.Max)
	case gc.PriceRange.Max != nil:
		fmt.Fprintf(&sb, " under ₹%d", *gc.PriceRange.Max)
	case gc.PriceRange.Min != nil:
		fmt.Fprintf(&sb, " starting from ₹%d", *gc.PriceRange.Min)
	}

	sb.WriteString(".")
	return sb.String()
}

// buildPrompt embeds the turn context into a compact instruction for the
// generative model.
func buildPrompt(gc GenerationContext) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly shopping assistant for an artisan goods marketplace. ")
	sb.WriteString("Write a warm 1-2 sentence reply to the shopper.\n\n")
	fmt.Fprintf(&sb, "Shopper asked: %q\n", gc.Query)
	fmt.Fprintf(&sb, "Matching products found: %d\n", gc.ProductCount)

	if len(gc.Categories) > 0 {
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(gc.Categories, ", "))
	}
	if gc.Occasion != "" {
		fmt.Fprintf(&sb, "Occasion: %s\n", gc.Occasion)
	}
	if gc.IsFollowUp && gc.PreviousQuery != "" {
		fmt.Fprintf(&sb, "This refines their earlier search: %q\n", gc.PreviousQuery)
	}
	if len(gc.UserPreferences.FavoriteCategories) > 0 {
		fmt.Fprintf(&sb, "Shopper's favorite categories: %s\n", strings.Join(gc.UserPreferences.FavoriteCategories, ", "))
	}

	sb.WriteString("\nMention the product count. Do not invent products or prices.")
	return sb.String()
}

func pick(pool []string) string {
	return pool[rand.Intn(len(pool))]
}
