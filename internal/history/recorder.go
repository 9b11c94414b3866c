package history

import (
	"context"

	"github.com/your-org/artisan-chat/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxRecordedProductIDs caps the product-id context stored with an
// assistant turn.
const MaxRecordedProductIDs = 3

// Recorder persists completed chat turns. Recording is best-effort: write
// failures are logged and swallowed, and anonymous turns are never stored.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record writes the user and assistant turns for a completed chat exchange.
// The two inserts are independent and issued concurrently; both complete (or
// are skipped) before Record returns. A missing userID makes Record a no-op.
func (r *Recorder) Record(ctx context.Context, userID, sessionID, rawQuery, response string, parsed query.ParsedQuery, productIDs []string, resultCount int) {
	if userID == "" {
		return
	}

	if len(productIDs) > MaxRecordedProductIDs {
		productIDs = productIDs[:MaxRecordedProductIDs]
	}

	userTurn := &Turn{
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleUser,
		Message:   rawQuery,
		Metadata: map[string]interface{}{
			"keywords":     parsed.Keywords,
			"categories":   parsed.Categories,
			"occasion":     parsed.Occasion,
			"min_price":    parsed.MinPrice,
			"max_price":    parsed.MaxPrice,
			"sort_by":      string(parsed.SortBy),
			"intent":       string(parsed.Intent),
			"result_count": resultCount,
		},
	}

	assistantTurn := &Turn{
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleAssistant,
		Message:   response,
		Metadata: map[string]interface{}{
			"product_ids":  productIDs,
			"result_count": resultCount,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.store.Append(gctx, userTurn) })
	g.Go(func() error { return r.store.Append(gctx, assistantTurn) })

	if err := g.Wait(); err != nil {
		r.logger.Warn("Failed to record conversation turns",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
