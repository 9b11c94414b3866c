// Package search provides similarity-search backends for marketplace
// products. Both backends rank candidates by embedding similarity against a
// query vector and apply the similarity threshold server-side.
package search

import "time"

// Product is a candidate returned by a similarity search. Downstream stages
// read, filter, and sort products but never mutate them.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	Similarity  float64   `json:"similarity"`
}
