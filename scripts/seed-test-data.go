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

// Seeds the pgvector products table with sample artisan goods for local
// development. Requires a running Postgres with the vector extension and an
// OpenAI API key for embeddings.
//
// Usage: go run scripts/seed-test-data.go -dsn "postgres://..."
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/your-org/artisan-chat/internal/embedding"
	"go.uber.org/zap"
)

const seedTimeout = 2 * time.Minute

// SeedProduct is a sample catalog entry
type SeedProduct struct {
	Title       string
	Description string
	Price       float64
	Category    string
}

var sampleProducts = []SeedProduct{
	{"Brass Diya Set of 4", "Hand-polished brass diyas for festive lighting", 450, "decoration"},
	{"Terracotta Table Vase", "Wheel-thrown terracotta vase with natural finish", 300, "pottery"},
	{"Madhubani Canvas Painting", "Traditional Madhubani fish motif on canvas", 1200, "painting"},
	{"Warli Art Wall Hanging", "Warli tribal art on handmade paper, framed", 650, "painting"},
	{"Silver Oxidized Bangle Pair", "Handcrafted oxidized silver bangles", 900, "jewelry"},
	{"Handwoven Cotton Dupatta", "Naturally dyed handloom dupatta", 550, "textile"},
	{"Carved Wooden Elephant", "Rosewood elephant figurine, hand carved", 800, "woodwork"},
	{"Rangoli Stencil Kit", "Reusable rangoli stencils with color powders", 250, "decoration"},
	{"Clay Tea Cup Set", "Unglazed clay kulhads, set of 6", 350, "pottery"},
	{"Festive Gift Hamper", "Assorted handmade treats and a diya", 999, "gift"},
}

func main() {
	dsn := flag.String("dsn", os.Getenv("SEARCH_DSN"), "Postgres DSN for the product catalog")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("a Postgres DSN is required: pass -dsn or set SEARCH_DSN")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is required to embed product descriptions")
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := ensureSchema(ctx, db); err != nil {
		log.Fatalf("failed to prepare schema: %v", err)
	}

	embedder, err := embedding.NewClient(apiKey, logger)
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}

	for _, p := range sampleProducts {
		vector, err := embedder.EmbedQuery(ctx, p.Title+". "+p.Description)
		if err != nil {
			log.Fatalf("failed to embed %q: %v", p.Title, err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO products (id, title, description, price, category, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.NewString(), p.Title, p.Description, p.Price, p.Category,
			pgvector.NewVector(vector), time.Now().UTC())
		if err != nil {
			log.Fatalf("failed to insert %q: %v", p.Title, err)
		}

		fmt.Printf("seeded %s (%s, ₹%.0f)\n", p.Title, p.Category, p.Price)
	}

	fmt.Printf("done: %d products seeded\n", len(sampleProducts))
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			price NUMERIC NOT NULL,
			category TEXT NOT NULL,
			embedding vector(1536) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}
