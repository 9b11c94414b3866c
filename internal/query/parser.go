// Package query provides natural-language query parsing and follow-up
// resolution for marketplace product search.
package query

import (
	"regexp"
	"strconv"
	"strings"
)

// SortOrder controls how retrieved products are ordered.
type SortOrder string

const (
	// SortRelevance preserves the similarity-search ranking
	SortRelevance SortOrder = "relevance"
	// SortPrice orders products by ascending price
	SortPrice SortOrder = "price"
	// SortNewest orders products by descending creation time
	SortNewest SortOrder = "newest"
)

// Intent classifies what the shopper is trying to do. It is carried on the
// parsed query for downstream use but does not gate retrieval behavior.
type Intent string

const (
	IntentSearch         Intent = "search"
	IntentRecommendation Intent = "recommendation"
	IntentComparison     Intent = "comparison"
)

// ParsedQuery is the structured form of a natural-language search query.
type ParsedQuery struct {
	Keywords   []string  `json:"keywords"`
	MinPrice   *int      `json:"min_price"`
	MaxPrice   *int      `json:"max_price"`
	Categories []string  `json:"categories"`
	Occasion   string    `json:"occasion,omitempty"`
	SortBy     SortOrder `json:"sort_by"`
	Intent     Intent    `json:"intent"`
}

// Price extraction rules, applied in this fixed order. Later rules override
// earlier ones when both match the same query.
var (
	reMaxPrice   = regexp.MustCompile(`(?:under|below|less than|max(?:imum)?|cheaper than|lower than)\s*(?:rs\.?\s*|₹\s*)?(\d+)`)
	reMinPrice   = regexp.MustCompile(`(?:above|over|more than|higher than|greater than|min(?:imum)?|expensive than)\s*(?:rs\.?\s*|₹\s*)?(\d+)`)
	rePriceMin   = regexp.MustCompile(`price\s+(?:higher|above|more|greater)(?:\s+than)?\s*(?:rs\.?\s*|₹\s*)?(\d+)`)
	rePriceMax   = regexp.MustCompile(`price\s+(?:lower|below|less|under)(?:\s+than)?\s*(?:rs\.?\s*|₹\s*)?(\d+)`)
	rePriceRange = regexp.MustCompile(`between\s*(?:rs\.?\s*|₹\s*)?(\d+)\s*(?:and|to|-)\s*(?:rs\.?\s*|₹\s*)?(\d+)`)
)

// reBareNumber matches tokens that carry no semantic signal of their own,
// such as "200" or "500?".
var reBareNumber = regexp.MustCompile(`^\d+\??$`)

// categoryEntry maps a canonical category tag to its keyword variants.
// Variants are matched as substrings of the lowercased query, so a query can
// hit multiple categories.
type categoryEntry struct {
	tag      string
	variants []string
}

// occasionEntry maps a canonical occasion tag to its variant phrases.
// Table order defines tie-break priority: the first matching entry wins and
// a query carries at most one occasion.
type occasionEntry struct {
	tag      string
	variants []string
}

// Parser extracts structured search criteria from free-text queries.
// Parsing is pure and deterministic: no I/O, no hidden state.
type Parser struct {
	stopwords  map[string]struct{}
	categories []categoryEntry
	occasions  []occasionEntry
}

// NewParser creates a parser with the marketplace keyword tables.
func NewParser() *Parser {
	stopwords := []string{
		"show", "me", "find", "get", "want", "need", "looking", "for",
		"a", "an", "the", "is", "are", "under", "below", "above", "between",
		"and", "or", "with", "without", "rs", "rupees", "inr", "price",
		"than", "higher", "lower",
	}
	sw := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		sw[w] = struct{}{}
	}

	return &Parser{
		stopwords: sw,
		categories: []categoryEntry{
			{"decoration", []string{"decor", "decoration", "decorative", "diya", "lantern", "wall hanging", "toran", "rangoli"}},
			{"pottery", []string{"pottery", "ceramic", "clay", "terracotta"}},
			{"jewelry", []string{"jewelry", "jewellery", "necklace", "earring", "bangle", "bracelet", "pendant"}},
			{"textile", []string{"textile", "fabric", "saree", "scarf", "shawl", "dupatta", "weave", "embroidery"}},
			{"painting", []string{"painting", "paint", "canvas", "madhubani", "warli", "miniature art"}},
			{"handicraft", []string{"handicraft", "handmade", "handcrafted", "hand crafted", "craft"}},
			{"woodwork", []string{"wooden", "woodwork", "carving", "carved"}},
			{"gift", []string{"gift", "present", "hamper"}},
		},
		occasions: []occasionEntry{
			{"diwali", []string{"diwali", "deepavali", "festival of lights"}},
			{"wedding", []string{"wedding", "marriage", "shaadi", "bridal"}},
			{"birthday", []string{"birthday", "bday"}},
			{"housewarming", []string{"housewarming", "house warming", "griha pravesh"}},
			{"anniversary", []string{"anniversary"}},
			{"rakhi", []string{"rakhi", "raksha bandhan"}},
			{"holi", []string{"holi"}},
		},
	}
}

// Parse converts a natural-language query into structured search criteria.
func (p *Parser) Parse(query string) ParsedQuery {
	lower := strings.ToLower(strings.TrimSpace(query))

	parsed := ParsedQuery{
		SortBy: SortRelevance,
		Intent: IntentSearch,
	}

	p.extractPrices(lower, &parsed)
	parsed.Keywords = p.extractKeywords(lower)
	parsed.Categories = p.detectCategories(lower)
	parsed.Occasion = p.detectOccasion(lower)
	parsed.SortBy = detectSort(lower)
	parsed.Intent = detectIntent(lower)

	return parsed
}

// extractPrices applies the five price rules in order. Rule order is policy:
// the "price higher/lower than N" forms override the generic bound forms, and
// an explicit "between N and M" range overrides everything before it.
func (p *Parser) extractPrices(lower string, parsed *ParsedQuery) {
	if m := reMaxPrice.FindStringSubmatch(lower); m != nil {
		parsed.MaxPrice = parseAmount(m[1])
	}
	if m := reMinPrice.FindStringSubmatch(lower); m != nil {
		parsed.MinPrice = parseAmount(m[1])
	}
	if m := rePriceMin.FindStringSubmatch(lower); m != nil {
		parsed.MinPrice = parseAmount(m[1])
	}
	if m := rePriceMax.FindStringSubmatch(lower); m != nil {
		parsed.MaxPrice = parseAmount(m[1])
	}
	if m := rePriceRange.FindStringSubmatch(lower); m != nil {
		parsed.MinPrice = parseAmount(m[1])
		parsed.MaxPrice = parseAmount(m[2])
	}
}

// extractKeywords splits the query on whitespace, drops short tokens and
// stopwords, and deduplicates preserving first-seen order.
func (p *Parser) extractKeywords(lower string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, token := range strings.Fields(lower) {
		if len(token) <= 2 {
			continue
		}
		if _, stop := p.stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	return keywords
}

// detectCategories returns every canonical category with a variant present in
// the query. Matching is raw substring containment, not tokenized.
func (p *Parser) detectCategories(lower string) []string {
	var categories []string
	for _, entry := range p.categories {
		for _, variant := range entry.variants {
			if strings.Contains(lower, variant) {
				categories = append(categories, entry.tag)
				break
			}
		}
	}
	return categories
}

// detectOccasion returns the first occasion in table order with a matching
// variant phrase, or empty when none match.
func (p *Parser) detectOccasion(lower string) string {
	for _, entry := range p.occasions {
		for _, variant := range entry.variants {
			if strings.Contains(lower, variant) {
				return entry.tag
			}
		}
	}
	return ""
}

func detectSort(lower string) SortOrder {
	switch {
	case strings.Contains(lower, "cheap") || strings.Contains(lower, "affordable") || strings.Contains(lower, "budget"):
		return SortPrice
	case strings.Contains(lower, "new") || strings.Contains(lower, "latest") || strings.Contains(lower, "recent"):
		return SortNewest
	}
	return SortRelevance
}

func detectIntent(lower string) Intent {
	switch {
	case strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest") || strings.Contains(lower, "best"):
		return IntentRecommendation
	case strings.Contains(lower, "compare") || strings.Contains(lower, "difference") || strings.Contains(lower, "vs"):
		return IntentComparison
	}
	return IntentSearch
}

// MeaningfulKeywords filters out bare number tokens such as "200" or "500?".
func MeaningfulKeywords(keywords []string) []string {
	var meaningful []string
	for _, kw := range keywords {
		if !reBareNumber.MatchString(kw) {
			meaningful = append(meaningful, kw)
		}
	}
	return meaningful
}

func parseAmount(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
