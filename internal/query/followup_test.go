package query

import (
	"reflect"
	"testing"
)

func TestResolve_NoHistoryIsNeverFollowUp(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	parsed := parser.Parse("show me cheaper")
	res := resolver.Resolve(&parsed, "show me cheaper", nil)

	if res.IsFollowUp {
		t.Error("Expected no follow-up without history")
	}
}

func TestResolve_KeywordDetection(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{{Role: "user", Message: "diwali diyas"}}

	testCases := []struct {
		name             string
		query            string
		expectedFollowUp bool
	}{
		{
			name:             "cheaper alone is a follow-up via keyword",
			query:            "cheaper",
			expectedFollowUp: true,
		},
		{
			name:             "show me triggers follow-up",
			query:            "show me similar ones",
			expectedFollowUp: true,
		},
		{
			name:             "fresh query is not a follow-up",
			query:            "terracotta planters",
			expectedFollowUp: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := parser.Parse(tc.query)
			res := resolver.Resolve(&parsed, tc.query, history)

			if res.IsFollowUp != tc.expectedFollowUp {
				t.Errorf("Expected IsFollowUp=%v, got %v", tc.expectedFollowUp, res.IsFollowUp)
			}
		})
	}
}

func TestResolve_FilterOnlyDetection(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{{Role: "user", Message: "handmade pottery"}}

	// "between 200 and 500" carries a price bound but no follow-up keyword,
	// no categories, no occasion, and only bare-number keywords.
	parsed := parser.Parse("between 200 and 500")
	res := resolver.Resolve(&parsed, "between 200 and 500", history)

	if !res.IsFollowUp {
		t.Fatal("Expected filter-only turn to be a follow-up")
	}

	if res.PreviousQuery != "handmade pottery" {
		t.Errorf("Expected previous query to be inherited, got %q", res.PreviousQuery)
	}
}

func TestResolve_ContextInheritance(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{
		{Role: "user", Message: "show me paintings"},
		{Role: "assistant", Message: "I found 5 amazing products. Here are my top picks!"},
	}

	parsed := parser.Parse("cheaper")
	res := resolver.Resolve(&parsed, "cheaper", history)

	if !res.IsFollowUp {
		t.Fatal("Expected follow-up")
	}

	if res.PreviousQuery != "show me paintings" {
		t.Errorf("Expected previous query from last meaningful user turn, got %q", res.PreviousQuery)
	}

	// Previous turn had no price bounds, so the cheaper adjustment does
	// nothing numerically, but category inheritance still applies.
	if !reflect.DeepEqual(parsed.Categories, []string{"painting"}) {
		t.Errorf("Expected inherited categories [painting], got %v", parsed.Categories)
	}

	if parsed.MinPrice != nil || parsed.MaxPrice != nil {
		t.Errorf("Expected no price bounds, got min=%v max=%v", parsed.MinPrice, parsed.MaxPrice)
	}
}

func TestResolve_KeywordInheritanceSignalsEmbeddingSwitch(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{{Role: "user", Message: "diwali diyas under 500"}}

	parsed := parser.Parse("under 300")
	res := resolver.Resolve(&parsed, "under 300", history)

	if !res.IsFollowUp {
		t.Fatal("Expected follow-up")
	}

	if !res.UsePreviousQuery {
		t.Error("Expected embedding-source switch for a turn with no meaningful keywords")
	}

	if len(MeaningfulKeywords(parsed.Keywords)) == 0 {
		t.Error("Expected keywords to be inherited from previous turn")
	}

	// Explicit bound on the current turn survives inheritance.
	if parsed.MaxPrice == nil || *parsed.MaxPrice != 300 {
		t.Errorf("Expected max price 300, got %v", parsed.MaxPrice)
	}
}

func TestResolve_MeaningfulCurrentKeywordsKeepRawEmbedding(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{{Role: "user", Message: "diwali diyas"}}

	parsed := parser.Parse("show me similar lanterns")
	res := resolver.Resolve(&parsed, "show me similar lanterns", history)

	if !res.IsFollowUp {
		t.Fatal("Expected follow-up")
	}

	if res.UsePreviousQuery {
		t.Error("Expected raw query embedding when current turn has meaningful keywords")
	}
}

func TestResolve_PriceAdjustments(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	testCases := []struct {
		name        string
		previous    string
		query       string
		expectedMin *int
		expectedMax *int
	}{
		{
			name:        "higher shifts min to previous max",
			previous:    "diyas under 500",
			query:       "show me more expensive ones",
			expectedMin: intPtr(500),
		},
		{
			name:        "cheaper uses previous min as max",
			previous:    "paintings above 2000",
			query:       "cheaper",
			expectedMax: intPtr(2000),
		},
		{
			name:        "cheaper reduces previous max by factor",
			previous:    "diyas under 500",
			query:       "cheaper",
			expectedMax: intPtr(350),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			history := []Turn{{Role: "user", Message: tc.previous}}

			parsed := parser.Parse(tc.query)
			res := resolver.Resolve(&parsed, tc.query, history)

			if !res.IsFollowUp {
				t.Fatal("Expected follow-up")
			}

			assertPrice(t, "min", parsed.MinPrice, tc.expectedMin)
			assertPrice(t, "max", parsed.MaxPrice, tc.expectedMax)
		})
	}
}

func TestResolve_CustomCheaperFactor(t *testing.T) {
	parser := NewParser()
	resolver := NewResolverWithFactor(parser, 0.5)

	history := []Turn{{Role: "user", Message: "diyas under 400"}}

	parsed := parser.Parse("cheaper")
	resolver.Resolve(&parsed, "cheaper", history)

	if parsed.MaxPrice == nil || *parsed.MaxPrice != 200 {
		t.Errorf("Expected max price 200 with factor 0.5, got %v", parsed.MaxPrice)
	}
}

func TestResolve_SkipsAssistantAndEmptyTurns(t *testing.T) {
	parser := NewParser()
	resolver := NewResolver(parser)

	history := []Turn{
		{Role: "user", Message: "wooden carvings"},
		{Role: "assistant", Message: "Here are my picks!"},
		{Role: "user", Message: "200?"},
	}

	parsed := parser.Parse("cheaper")
	res := resolver.Resolve(&parsed, "cheaper", history)

	if res.PreviousQuery != "wooden carvings" {
		t.Errorf("Expected scan to skip non-meaningful turns, got %q", res.PreviousQuery)
	}
}
