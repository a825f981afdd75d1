package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of the embeddings stored in new collections.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// payload keys written on every point.
const (
	qdrantKeyID          = "id"
	qdrantKeyText        = "text"
	qdrantKeyDescription = "description"
)

// QdrantStore implements VectorStore backed by a Qdrant instance. Each
// memory collection maps one-to-one to a Qdrant collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg QdrantConfig

	// ensured records collections known to exist, so CollectionExists is
	// called at most once per collection.
	ensured sync.Map
}

// NewQdrantStore creates a QdrantStore. Collections are created lazily on
// first upsert.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// pointID maps an arbitrary record id onto the UUID form Qdrant requires.
// The mapping is deterministic so upserts of the same id replace the point.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context, name string) error {
	if _, ok := s.ensured.Load(name); ok {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
		}
	}

	s.ensured.Store(name, struct{}{})
	return nil
}

// Upsert stores or replaces rec. The original id is kept in the payload
// because the point id is a derived UUID.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, rec Record) error {
	if uint64(len(rec.Embedding)) != s.cfg.VectorSize {
		return fmt.Errorf("qdrant: upsert %q: got %d, want %d: %w",
			rec.ID, len(rec.Embedding), s.cfg.VectorSize, ErrDimensionMismatch)
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return err
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID(rec.ID)),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				qdrantKeyID:          rec.ID,
				qdrantKeyText:        rec.Text,
				qdrantKeyDescription: rec.Description,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Query performs a cosine similarity search with Qdrant's score threshold.
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return []Match{}, nil
	}

	l := uint64(limit)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &l,
		ScoreThreshold: &minScore,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Score: r.Score}
		if p := r.Payload; p != nil {
			m.ID = p[qdrantKeyID].GetStringValue()
			m.Text = p[qdrantKeyText].GetStringValue()
			m.Description = p[qdrantKeyDescription].GetStringValue()
		}
		matches = append(matches, m)
	}

	return matches, nil
}

// Delete removes the point derived from id.
func (s *QdrantStore) Delete(ctx context.Context, collection string, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointID(id))),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}

	return nil
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
