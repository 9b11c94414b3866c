package prefs

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	maxFavoriteCategories = 5
	maxRecentSearches     = 10
)

// SQLiteStore persists shopper preferences in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the preference database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS favorite_categories (
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			weight INTEGER DEFAULT 1,
			PRIMARY KEY (user_id, category)
		);
		CREATE TABLE IF NOT EXISTS recent_searches (
			user_id TEXT NOT NULL,
			term TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_searches_user ON recent_searches(user_id, created_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// GetPreferences returns the shopper's favorite categories (heaviest first)
// and most recent search terms.
func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	var prefs Preferences

	favorites, err := s.queryStrings(ctx,
		`SELECT category FROM favorite_categories WHERE user_id = ? ORDER BY weight DESC LIMIT ?`,
		userID, maxFavoriteCategories)
	if err != nil {
		return prefs, fmt.Errorf("failed to load favorite categories: %w", err)
	}
	prefs.FavoriteCategories = favorites

	searches, err := s.queryStrings(ctx,
		`SELECT term FROM recent_searches WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, maxRecentSearches)
	if err != nil {
		return prefs, fmt.Errorf("failed to load recent searches: %w", err)
	}
	prefs.RecentSearches = searches

	return prefs, nil
}

// RecordSearch stores a search term for the shopper and increments the
// weight of each category the search mentioned.
func (s *SQLiteStore) RecordSearch(ctx context.Context, userID, term string, categories []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_searches (user_id, term) VALUES (?, ?)`, userID, term)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}

	for _, category := range categories {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO favorite_categories (user_id, category, weight) VALUES (?, ?, 1)
			 ON CONFLICT(user_id, category) DO UPDATE SET weight = weight + 1`,
			userID, category)
		if err != nil {
			return fmt.Errorf("failed to bump favorite category: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
