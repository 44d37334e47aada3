// Package vector provides interfaces and implementations for vector storage
// and nearest-neighbor search over corpus documents.
package vector

import "context"

// Entry is an indexed document: its embedding, raw text, and metadata.
type Entry struct {
	// ID is the document id cast to a string (the corpus join key).
	ID string

	// Embedding is the L2-normalized vector representation of the text.
	Embedding []float32

	// Document is the raw document text.
	Document string

	// Metadata carries title, url, length and source for the document.
	Metadata map[string]string
}

// Match is a search result. Distance is the metric the backend reports
// (cosine distance, ascending = nearest first); callers derive similarity
// as 1 - distance.
type Match struct {
	Entry

	Distance float32
}

// Index stores (id, vector, text, metadata) entries and answers
// k-nearest-neighbor queries. Implementations persist across restarts and
// carry a collection-level metadata map used for staleness detection.
type Index interface {
	// Upsert stores entries, replacing existing entries with the same ID.
	Upsert(ctx context.Context, entries []Entry) error

	// Search returns the k nearest entries to the given embedding,
	// nearest first.
	Search(ctx context.Context, embedding []float32, k int) ([]Match, error)

	// Get retrieves a single entry by ID. Returns ErrNotFound when the ID
	// is not indexed.
	Get(ctx context.Context, id string) (*Entry, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)

	// Metadata returns the collection-level metadata map. Backends that
	// cannot report metadata return an empty map, which forces a rebuild
	// upstream (the safe default).
	Metadata(ctx context.Context) (map[string]string, error)

	// SetMetadata replaces the collection-level metadata map.
	SetMetadata(ctx context.Context, meta map[string]string) error

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) bool

	// Reset drops all entries and collection metadata.
	Reset(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}
