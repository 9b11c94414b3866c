package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc/match_products" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}

		if req.Threshold != 0.3 {
			t.Errorf("Expected threshold 0.3, got %f", req.Threshold)
		}
		if req.MatchCount != 50 {
			t.Errorf("Expected match count 50, got %d", req.MatchCount)
		}
		if len(req.Embedding) != 3 {
			t.Errorf("Expected 3-dim embedding, got %d", len(req.Embedding))
		}

		products := []Product{
			{ID: "p1", Title: "Brass Diya Set", Price: 450, Category: "decoration", Similarity: 0.91},
			{ID: "p2", Title: "Terracotta Lamp", Price: 300, Category: "pottery", Similarity: 0.85},
		}
		_ = json.NewEncoder(w).Encode(products)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	products, err := client.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 0.3, 50)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}

	if products[0].ID != "p1" || products[0].Similarity != 0.91 {
		t.Errorf("Unexpected first product: %+v", products[0])
	}
}

func TestClient_SearchServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid embedding dimensions"})
	}))
	defer server.Close()

	client := NewClientWithOptions(server.URL, zap.NewNop(), 0, time.Millisecond)

	_, err := client.Search(context.Background(), []float32{0.1}, 0.3, 50)
	if err == nil {
		t.Fatal("Expected error from failing service")
	}
}

func TestClient_SearchRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]Product{{ID: "p1", Title: "Madhubani Painting"}})
	}))
	defer server.Close()

	client := NewClientWithOptions(server.URL, zap.NewNop(), 2, time.Millisecond)

	products, err := client.Search(context.Background(), []float32{0.5}, 0.3, 10)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}

	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}

	if len(products) != 1 {
		t.Errorf("Expected 1 product, got %d", len(products))
	}
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy, got %v", err)
	}
}
