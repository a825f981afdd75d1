// Package movies reads movie records from a document database. The rest of
// moviechat only sees the Source interface; MongoDB is the default backend
// and a local SQLite file can stand in for it.
package movies

import (
	"context"
)

// Movie is a single record read from the document source. Records are
// read-only; moviechat never writes back to the source database.
type Movie struct {
	// ID is the source's unique key, rendered as a string (hex for ObjectIDs).
	ID string `json:"id"`
	// Title is the movie title.
	Title string `json:"title"`
	// Plot is the short plot summary that gets embedded.
	Plot string `json:"plot"`
}

// Source fetches a bounded page of movies.
// Implementations must be safe to call from multiple goroutines.
type Source interface {
	// Fetch returns at most limit movies in the source's natural order.
	Fetch(ctx context.Context, limit int) ([]Movie, error)

	// Close releases the connection to the source.
	Close() error
}
