package prefs

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore provides in-memory preference storage for tests and
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	weights  map[string]map[string]int
	searches map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		weights:  make(map[string]map[string]int),
		searches: make(map[string][]string),
	}
}

// SetFavorites replaces a shopper's favorite categories, heaviest first.
func (m *MemoryStore) SetFavorites(userID string, categories []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	weights := make(map[string]int, len(categories))
	for i, category := range categories {
		weights[category] = len(categories) - i
	}
	m.weights[userID] = weights
}

// GetPreferences returns the shopper's stored preferences.
func (m *MemoryStore) GetPreferences(_ context.Context, userID string) (Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	favorites := make([]string, 0, len(m.weights[userID]))
	for category := range m.weights[userID] {
		favorites = append(favorites, category)
	}
	weights := m.weights[userID]
	sort.Slice(favorites, func(i, j int) bool {
		if weights[favorites[i]] != weights[favorites[j]] {
			return weights[favorites[i]] > weights[favorites[j]]
		}
		return favorites[i] < favorites[j]
	})

	return Preferences{
		FavoriteCategories: favorites,
		RecentSearches:     append([]string(nil), m.searches[userID]...),
	}, nil
}

// RecordSearch prepends a search term to the shopper's recent searches and
// bumps the weight of each mentioned category.
func (m *MemoryStore) RecordSearch(_ context.Context, userID, term string, categories []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches[userID] = append([]string{term}, m.searches[userID]...)

	if len(categories) > 0 {
		if m.weights[userID] == nil {
			m.weights[userID] = make(map[string]int)
		}
		for _, category := range categories {
			m.weights[userID][category]++
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
