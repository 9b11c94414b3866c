// Package prefs exposes stored shopper taste signals used to personalize
// response text.
package prefs

import "context"

// Preferences holds a shopper's favorite categories and recent search terms.
type Preferences struct {
	FavoriteCategories []string `json:"favorite_categories"`
	RecentSearches     []string `json:"recent_searches"`
}

// Store defines the interface for preference storage backends.
type Store interface {
	// GetPreferences returns a shopper's stored preferences; a shopper with
	// no history yields empty preferences, not an error
	GetPreferences(ctx context.Context, userID string) (Preferences, error)
	// RecordSearch stores a search term and bumps the weight of each
	// category the query mentioned, so recent searches and favorite
	// categories both stay fresh
	RecordSearch(ctx context.Context, userID, term string, categories []string) error
	// Close closes the storage backend
	Close() error
}
