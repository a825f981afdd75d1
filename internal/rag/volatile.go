package rag

import (
	"context"
	"fmt"
	"sync"
)

// VolatileStore is an in-process VectorStore using brute-force cosine
// similarity. Contents are lost when the process exits.
type VolatileStore struct {
	// mu guards the collections map itself, not the collections' contents.
	mu sync.RWMutex

	// collections maps a collection name to its records.
	collections map[string]*volatileCollection
}

// volatileCollection holds one collection's records in insertion order.
type volatileCollection struct {
	mu sync.RWMutex

	// dim is fixed by the first record upserted into the collection.
	dim int

	// order lists record ids in insertion order so ties rank stably.
	order []string

	// records maps id to record.
	records map[string]Record
}

// NewVolatileStore returns an empty VolatileStore.
func NewVolatileStore() *VolatileStore {
	return &VolatileStore{collections: make(map[string]*volatileCollection)}
}

// collection returns the named collection, creating it when create is true.
// It returns nil when the collection does not exist and create is false.
func (s *VolatileStore) collection(name string, create bool) *volatileCollection {
	s.mu.RLock()
	c, ok := s.collections[name]
	s.mu.RUnlock()
	if ok || !create {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.collections[name]; ok {
		return c
	}
	c = &volatileCollection{records: make(map[string]Record)}
	s.collections[name] = c
	return c
}

// Upsert inserts or replaces rec. The first record fixes the collection's
// dimension; later records of a different length fail with ErrDimensionMismatch.
func (s *VolatileStore) Upsert(ctx context.Context, collection string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("volatile: record %q has an empty embedding", rec.ID)
	}

	c := s.collection(collection, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dim == 0 {
		c.dim = len(rec.Embedding)
	} else if len(rec.Embedding) != c.dim {
		return fmt.Errorf("volatile: upsert %q into %q: got %d, want %d: %w",
			rec.ID, collection, len(rec.Embedding), c.dim, ErrDimensionMismatch)
	}

	if _, exists := c.records[rec.ID]; !exists {
		c.order = append(c.order, rec.ID)
	}
	stored := rec
	stored.Embedding = append([]float32(nil), rec.Embedding...)
	c.records[rec.ID] = stored
	return nil
}

// Query scores every record in collection against vector.
func (s *VolatileStore) Query(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := s.collection(collection, false)
	if c == nil {
		return []Match{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.order) > 0 && len(vector) != c.dim {
		return nil, fmt.Errorf("volatile: query %q: got %d, want %d: %w",
			collection, len(vector), c.dim, ErrDimensionMismatch)
	}

	matches := make([]Match, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		score := CosineSimilarity(vector, rec.Embedding)
		rec.Embedding = nil
		matches = append(matches, Match{Record: rec, Score: score})
	}
	return rankMatches(matches, limit, minScore), nil
}

// Delete removes id from collection.
func (s *VolatileStore) Delete(ctx context.Context, collection string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := s.collection(collection, false)
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return nil
	}
	delete(c.records, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of records in collection.
func (s *VolatileStore) Len(collection string) int {
	c := s.collection(collection, false)
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Close is a no-op; the store holds no external resources.
func (s *VolatileStore) Close() error { return nil }
