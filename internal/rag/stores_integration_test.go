//go:build integration

package rag

import (
	"context"
	"os"
	"testing"
	"time"
)

// exerciseStore runs the same upsert → query → delete cycle against any backend.
func exerciseStore(t *testing.T, s VectorStore) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coll := "moviechat_it_" + time.Now().Format("150405")
	recs := []Record{
		{ID: "a", Text: "a battle at sea", Description: "Movie A", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "a quiet romance", Description: "Movie B", Embedding: []float32{0, 1, 0}},
	}
	for _, r := range recs {
		if err := s.Upsert(ctx, coll, r); err != nil {
			t.Fatalf("Upsert(%s): %v", r.ID, err)
		}
	}
	t.Cleanup(func() {
		for _, r := range recs {
			_ = s.Delete(context.Background(), coll, r.ID)
		}
	})

	got, err := s.Query(ctx, coll, []float32{1, 0.1, 0}, 1, 0.1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Description != "Movie A" {
		t.Fatalf("Query: got %+v, want a single match for a", got)
	}

	if err := s.Delete(ctx, coll, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Query(ctx, coll, []float32{1, 0, 0}, 10, -1)
	if err != nil {
		t.Fatalf("Query after delete: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("after delete: got %+v, want [b]", got)
	}
}

// TestQdrantStore_Integration requires a running Qdrant:
//
//	docker run -p 6334:6334 qdrant/qdrant
//	go test -tags=integration -run TestQdrantStore_Integration ./internal/rag/
func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		host = "localhost"
	}
	s, err := NewQdrantStore(QdrantConfig{Host: host, VectorSize: 3})
	if err != nil {
		t.Fatalf("NewQdrantStore: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

// TestRedisStore_Integration requires a running Redis:
//
//	docker run -p 6379:6379 redis
//	go test -tags=integration -run TestRedisStore_Integration ./internal/rag/
func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s := NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "moviechat_it"})
	defer s.Close()

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	exerciseStore(t, s)
}
