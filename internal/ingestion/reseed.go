// Package ingestion implements the seeding workflow that rebuilds the movie
// memory collection: clear what is there, read one page of movies from the
// document source, and save each plot into semantic memory.
// It backs the `moviechat seed` command and runs before `chat`, `search`
// and `serve`.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/54b3r/moviechat-go/internal/memory"
	"github.com/54b3r/moviechat-go/internal/metrics"
	"github.com/54b3r/moviechat-go/internal/movies"
)

// wildcardQuery is the query used to enumerate a collection before clearing.
// Combined with a relevance floor of -1 it matches every entry.
const wildcardQuery = "*"

// Memory is the subset of *memory.Memory the workflow uses.
type Memory interface {
	Save(ctx context.Context, item memory.Item) (string, error)
	Search(ctx context.Context, collection, query string, limit int, minRelevance float32) ([]memory.QueryResult, error)
	Remove(ctx context.Context, collection, id string) error
}

// Config holds the configuration for the seeding workflow.
type Config struct {
	// Collection is the memory collection to rebuild.
	Collection string

	// PageLimit caps how many movies are read from the source. Defaults to 50.
	PageLimit int

	// ClearLimit caps how many existing entries are removed. Defaults to 1000.
	ClearLimit int

	// Progress, when set, receives one human-readable line per clear step and
	// per saved record.
	Progress func(msg string)

	// Metrics, when set, records per-record outcomes.
	Metrics *metrics.Metrics
}

// Failure records one movie that could not be saved.
type Failure struct {
	// ID is the movie id.
	ID string
	// Err is the save error.
	Err error
}

// Report summarises one Reseed run.
type Report struct {
	// Cleared is the number of pre-existing entries removed.
	Cleared int
	// Attempted is the number of movies read from the source.
	Attempted int
	// Saved is the number of movies written to memory.
	Saved int
	// Failures lists the movies that could not be saved, in source order.
	Failures []Failure
}

// Run describes the outcome of the most recent Reseed.
type Run struct {
	// Collection is the collection that was rebuilt.
	Collection string
	// Finished is when the run returned.
	Finished time.Time
	// Report holds the counts, partial when Err is set.
	Report Report
	// Err is the error that aborted the run, or nil.
	Err error
}

// Reseeder rebuilds a memory collection from a movie source.
type Reseeder struct {
	source movies.Source
	mem    Memory
	cfg    Config
	log    *slog.Logger

	// mu serialises Reseed so a clear never interleaves with another run's saves.
	mu sync.Mutex

	lastMu sync.RWMutex
	last   *Run
}

// New constructs a Reseeder from the provided dependencies and config.
func New(source movies.Source, mem Memory, cfg Config, log *slog.Logger) (*Reseeder, error) {
	if source == nil {
		return nil, fmt.Errorf("ingestion: source must not be nil")
	}
	if mem == nil {
		return nil, fmt.Errorf("ingestion: memory must not be nil")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("ingestion: collection must not be empty")
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 50
	}
	if cfg.ClearLimit <= 0 {
		cfg.ClearLimit = 1000
	}
	if cfg.Progress == nil {
		cfg.Progress = func(string) {}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reseeder{source: source, mem: mem, cfg: cfg, log: log}, nil
}

// Reseed clears the collection, fetches one page of movies and saves each of
// them. Clear failures are logged and ignored. A fetch failure aborts the run
// and is returned. A save failure is logged and recorded in the report, and
// the remaining movies are still processed. Cancelling ctx stops the run
// between records and returns the partial report with ctx's error.
func (r *Reseeder) Reseed(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.reseed(ctx)
	r.record(report, err)
	return report, err
}

// LastRun returns the outcome of the most recent Reseed. ok is false until
// one has finished. It does not block while a run is in progress.
func (r *Reseeder) LastRun() (run Run, ok bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return Run{}, false
	}
	run = *r.last
	run.Report.Failures = append([]Failure(nil), r.last.Report.Failures...)
	return run, true
}

func (r *Reseeder) record(report *Report, err error) {
	run := &Run{Collection: r.cfg.Collection, Finished: time.Now(), Report: *report, Err: err}
	r.lastMu.Lock()
	r.last = run
	r.lastMu.Unlock()
}

func (r *Reseeder) reseed(ctx context.Context) (*Report, error) {
	report := &Report{}
	log := r.log.With(slog.String("collection", r.cfg.Collection))

	report.Cleared = r.clear(ctx, log)

	page, err := r.source.Fetch(ctx, r.cfg.PageLimit)
	if err != nil {
		return report, fmt.Errorf("ingestion: fetch movies: %w", err)
	}
	log.Info("ingestion: fetched movies", slog.Int("count", len(page)))

	for _, m := range page {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingestion: interrupted after %d of %d: %w", report.Attempted, len(page), err)
		}
		report.Attempted++

		r.cfg.Progress(fmt.Sprintf("Saving %s...", m.ID))
		_, err := r.mem.Save(ctx, memory.Item{
			Collection:  r.cfg.Collection,
			ID:          m.ID,
			Text:        m.Plot,
			Description: Describe(m),
		})
		r.cfg.Metrics.RecordSave(err)
		if err != nil {
			log.Error("ingestion: save failed", slog.String("id", m.ID), slog.Any("error", err))
			r.cfg.Progress(fmt.Sprintf("Error saving %s: %s", m.ID, err))
			report.Failures = append(report.Failures, Failure{ID: m.ID, Err: err})
			continue
		}
		report.Saved++
	}

	log.Info("ingestion: reseed complete",
		slog.Int("cleared", report.Cleared),
		slog.Int("attempted", report.Attempted),
		slog.Int("saved", report.Saved),
		slog.Int("failed", len(report.Failures)),
	)
	return report, nil
}

// clear removes up to ClearLimit entries from the collection and returns how
// many were removed. The first error ends the clear step; it is logged and
// not returned.
func (r *Reseeder) clear(ctx context.Context, log *slog.Logger) int {
	r.cfg.Progress(fmt.Sprintf("Attempting to clear collection: %s", r.cfg.Collection))

	existing, err := r.mem.Search(ctx, r.cfg.Collection, wildcardQuery, r.cfg.ClearLimit, -1)
	if err != nil {
		log.Warn("ingestion: error clearing collection", slog.Any("error", err))
		r.cfg.Progress(fmt.Sprintf("Note: Error clearing collection: %s", err))
		return 0
	}

	removed := 0
	defer func() { r.cfg.Metrics.RecordCleared(removed) }()
	for _, hit := range existing {
		if err := r.mem.Remove(ctx, r.cfg.Collection, hit.Metadata.ID); err != nil {
			log.Warn("ingestion: error clearing collection",
				slog.String("id", hit.Metadata.ID),
				slog.Any("error", err),
			)
			r.cfg.Progress(fmt.Sprintf("Note: Error clearing collection: %s", err))
			return removed
		}
		removed++
		r.cfg.Progress(fmt.Sprintf("Removed entry with ID: %s", hit.Metadata.ID))
	}
	if removed > 0 {
		log.Info("ingestion: cleared collection", slog.Int("removed", removed))
	}
	r.cfg.Progress(fmt.Sprintf("Successfully cleared collection: %s", r.cfg.Collection))
	return removed
}

// Describe builds the description stored alongside a movie's plot.
func Describe(m movies.Movie) string {
	return fmt.Sprintf("Movie %s description for %s with plot %s", m.Title, m.ID, m.Plot)
}
