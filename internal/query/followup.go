package query

import "strings"

// DefaultCheaperFactor scales a previous upper price bound when the shopper
// asks for cheaper items without naming a number. The 0.7 value is a product
// heuristic carried over from the original behavior, kept overridable.
const DefaultCheaperFactor = 0.7

const roleUser = "user"

// followUpKeywords are matched as substrings of the raw lowercased query to
// detect turns that refine a previous turn rather than start a new search.
var followUpKeywords = []string{
	"cheaper", "expensive", "similar", "other", "more", "different",
	"show me", "another", "else", "instead", "rather", "better", "less",
	"higher", "lower", "bigger", "smaller", "larger", "above", "below",
	"under", "over",
}

// Turn is a single prior message in the conversation, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Resolution describes how the current turn relates to the conversation.
type Resolution struct {
	// IsFollowUp reports whether this turn refines a prior turn.
	IsFollowUp bool `json:"is_follow_up"`
	// PreviousQuery is the most recent prior user turn with meaningful
	// content, when one exists.
	PreviousQuery string `json:"previous_query,omitempty"`
	// UsePreviousQuery signals that the current turn carries no semantic
	// signal of its own (a pure price or relative adjustment) and the
	// previous query text should be embedded instead.
	UsePreviousQuery bool `json:"-"`
}

// Resolver decides whether a turn is a follow-up and merges context from
// prior turns into the current parsed query.
type Resolver struct {
	parser        *Parser
	cheaperFactor float64
}

// NewResolver creates a resolver that re-parses prior turns with the given
// parser.
func NewResolver(parser *Parser) *Resolver {
	return &Resolver{parser: parser, cheaperFactor: DefaultCheaperFactor}
}

// NewResolverWithFactor creates a resolver with a custom cheaper-adjustment
// factor.
func NewResolverWithFactor(parser *Parser, cheaperFactor float64) *Resolver {
	return &Resolver{parser: parser, cheaperFactor: cheaperFactor}
}

// Resolve inspects the conversation history and, when the current turn is a
// follow-up, mutates parsed in place to inherit context from the most recent
// meaningful prior user turn.
//
// A turn is a follow-up iff at least one prior turn exists and either the raw
// query contains a follow-up keyword or the turn is filter-only: it has a
// price bound but no categories, no occasion, and no meaningful keywords.
func (r *Resolver) Resolve(parsed *ParsedQuery, rawQuery string, history []Turn) Resolution {
	if len(history) == 0 {
		return Resolution{}
	}

	lower := strings.ToLower(rawQuery)

	hasKeyword := false
	for _, kw := range followUpKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}

	filterOnly := (parsed.MinPrice != nil || parsed.MaxPrice != nil) &&
		len(parsed.Categories) == 0 &&
		parsed.Occasion == "" &&
		len(MeaningfulKeywords(parsed.Keywords)) == 0

	if !hasKeyword && !filterOnly {
		return Resolution{}
	}

	res := Resolution{IsFollowUp: true}

	// Walk prior user turns newest-first; the first one whose parse carries
	// any meaningful keyword, category, or occasion provides the context.
	var previous *ParsedQuery
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != roleUser {
			continue
		}
		p := r.parser.Parse(turn.Message)
		if len(MeaningfulKeywords(p.Keywords)) > 0 || len(p.Categories) > 0 || p.Occasion != "" {
			previous = &p
			res.PreviousQuery = turn.Message
			break
		}
	}

	if previous == nil {
		return res
	}

	// Decided before keyword inheritance below: once keywords are copied in,
	// the current parse no longer looks empty.
	res.UsePreviousQuery = len(MeaningfulKeywords(parsed.Keywords)) == 0

	if len(parsed.Categories) == 0 && len(previous.Categories) > 0 {
		parsed.Categories = append([]string(nil), previous.Categories...)
	}
	if parsed.Occasion == "" && previous.Occasion != "" {
		parsed.Occasion = previous.Occasion
	}
	if len(MeaningfulKeywords(parsed.Keywords)) == 0 && len(MeaningfulKeywords(previous.Keywords)) > 0 {
		parsed.Keywords = append([]string(nil), previous.Keywords...)
	}

	r.adjustPrices(parsed, previous, lower)

	return res
}

// adjustPrices infers new price bounds from relative language ("cheaper",
// "more expensive") against the previous turn's explicit bounds.
func (r *Resolver) adjustPrices(parsed, previous *ParsedQuery, lower string) {
	switch {
	case strings.Contains(lower, "higher") || strings.Contains(lower, "expensive"):
		if previous.MaxPrice != nil {
			min := *previous.MaxPrice
			parsed.MinPrice = &min
			parsed.MaxPrice = nil
		}
	case strings.Contains(lower, "cheaper") || strings.Contains(lower, "lower"):
		if previous.MinPrice != nil {
			max := *previous.MinPrice
			parsed.MaxPrice = &max
			parsed.MinPrice = nil
		} else if previous.MaxPrice != nil {
			max := int(float64(*previous.MaxPrice) * r.cheaperFactor)
			parsed.MaxPrice = &max
		}
	}
}
