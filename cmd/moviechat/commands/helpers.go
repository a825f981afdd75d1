package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/moviechat-go/internal/config"
	"github.com/54b3r/moviechat-go/internal/embedder"
	"github.com/54b3r/moviechat-go/internal/ingestion"
	"github.com/54b3r/moviechat-go/internal/memory"
	"github.com/54b3r/moviechat-go/internal/metrics"
	"github.com/54b3r/moviechat-go/internal/movies"
	"github.com/54b3r/moviechat-go/internal/rag"
	"github.com/54b3r/moviechat-go/internal/server"
	"github.com/54b3r/moviechat-go/internal/tools"
)

// redisKeyPrefix namespaces moviechat keys in a shared Redis.
const redisKeyPrefix = "moviechat"

// runtime is the set of components every data-touching command needs.
type runtime struct {
	source   movies.Source
	store    rag.VectorStore
	memory   *memory.Memory
	reseeder *ingestion.Reseeder
	search   *tools.TypedTool[tools.SearchInput, []memory.QueryResult]
	tools    *tools.Registry
	pingers  []server.Pinger

	closers []func() error
}

// Close releases the source and store, joining their errors.
func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runtimeOptions tunes buildRuntime per command.
type runtimeOptions struct {
	// progress receives reseed progress lines. Nil discards them.
	progress func(string)
	// metrics is optional.
	metrics *metrics.Metrics
}

// buildRuntime wires source → embedder → store → memory → reseeder → tools
// from cfg. The caller must Close the result.
func buildRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger, opts runtimeOptions) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	embedder.WarnMisconfiguration(cfg.Embedding, log)
	emb, err := embedder.New(cfg)
	if err != nil {
		return nil, err
	}
	if p := embedderPinger(cfg); p != nil {
		rt.pingers = append(rt.pingers, p)
	}

	src, srcPinger, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.source = src
	rt.closers = append(rt.closers, src.Close)
	if srcPinger != nil {
		rt.pingers = append(rt.pingers, srcPinger)
	}

	store, storePinger, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)
	if storePinger != nil {
		rt.pingers = append(rt.pingers, storePinger)
	}
	log.Info("memory ready",
		slog.String("backend", cfg.Memory.Backend),
		slog.String("collection", cfg.Memory.Collection),
		slog.String("source", cfg.Source.Backend),
	)

	rt.memory, err = memory.New(emb, store)
	if err != nil {
		return nil, err
	}

	rt.reseeder, err = ingestion.New(src, rt.memory, ingestion.Config{
		Collection: cfg.Memory.Collection,
		PageLimit:  cfg.Memory.PageLimit,
		ClearLimit: cfg.Memory.ClearLimit,
		Progress:   opts.progress,
		Metrics:    opts.metrics,
	}, log)
	if err != nil {
		return nil, err
	}

	rt.search, err = tools.NewSearchTool(rt.memory, tools.SearchConfig{
		Collection:   cfg.Memory.Collection,
		MinRelevance: cfg.Memory.MinRelevance,
		DefaultLimit: cfg.Memory.SearchLimit,
		Metrics:      opts.metrics,
	})
	if err != nil {
		return nil, err
	}

	rt.tools = tools.NewRegistry()
	if err := rt.tools.Register(rt.search); err != nil {
		return nil, err
	}

	return rt, nil
}

// openSource connects the configured movie source.
func openSource(ctx context.Context, cfg *config.Config) (movies.Source, server.Pinger, error) {
	switch cfg.Source.Backend {
	case "sqlite":
		src, err := movies.OpenSQLite(cfg.Source.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		src, err := openMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return src, server.NewPinger("mongo", src.Ping), nil
	}
}

// openMongo connects to the configured MongoDB collection.
func openMongo(ctx context.Context, cfg *config.Config) (*movies.MongoSource, error) {
	return movies.NewMongoSource(ctx, movies.MongoConfig{
		URI:        cfg.Source.Mongo.URI,
		Database:   cfg.Source.Mongo.Database,
		Collection: cfg.Source.Mongo.Collection,
	})
}

// openStore constructs the configured vector store.
func openStore(cfg *config.Config) (rag.VectorStore, server.Pinger, error) {
	switch cfg.Memory.Backend {
	case "qdrant":
		if cfg.Embedding.Dimensions <= 0 {
			return nil, nil, fmt.Errorf("qdrant backend requires embedding.dimensions (EMBEDDING_DIMENSIONS)")
		}
		s, err := rag.NewQdrantStore(rag.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			VectorSize: uint64(cfg.Embedding.Dimensions), //nolint:gosec // validated positive above
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.TLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, server.NewPinger("qdrant", s.Ping), nil
	case "redis":
		s := rag.NewRedisStore(rag.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: redisKeyPrefix,
		})
		return s, server.NewPinger("redis", s.Ping), nil
	default:
		return rag.NewVolatileStore(), nil, nil
	}
}

// embedderPinger probes the embedding backend when it is a local Ollama.
// Hosted APIs are not probed to avoid spending quota on health checks.
func embedderPinger(cfg *config.Config) server.Pinger {
	if p := cfg.Embedding.Provider; p != "" && p != "ollama" {
		return nil
	}
	host := cfg.Embedding.Endpoint
	if host == "" {
		host = cfg.Model.Ollama.Host
	}
	e := embedder.NewOllamaEmbedder(embedder.OllamaConfig{Host: host, Model: cfg.Embedding.Model})
	return server.NewPinger("ollama", e.Ping)
}

// summarise renders a reseed report as one line.
func summarise(r *ingestion.Report) string {
	return fmt.Sprintf("Cleared %d, saved %d of %d movies (%d failed)",
		r.Cleared, r.Saved, r.Attempted, len(r.Failures))
}
