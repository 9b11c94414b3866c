package search

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// PgvectorStore runs similarity searches directly against a Postgres table
// with a pgvector embedding column.
type PgvectorStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPgvectorStore opens a Postgres connection for similarity search.
func NewPgvectorStore(dsn string, logger *zap.Logger) (*PgvectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PgvectorStore{db: db, logger: logger}, nil
}

// Search returns products whose cosine similarity to the query embedding
// meets the threshold, ranked by similarity, capped at limit.
func (s *PgvectorStore) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Product, error) {
	query := `
		SELECT id, title, description, price, category, created_at,
			1 - (embedding <=> $1) AS similarity
		FROM products
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run similarity query: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Category, &p.CreatedAt, &p.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}

	s.logger.Debug("Pgvector search completed",
		zap.Int("candidate_count", len(products)),
		zap.Float64("threshold", threshold),
		zap.Int("limit", limit))

	return products, nil
}

// HealthCheck verifies the database connection is alive.
func (s *PgvectorStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PgvectorStore) Close() error {
	return s.db.Close()
}
