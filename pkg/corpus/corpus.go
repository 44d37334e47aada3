// Package corpus provides the document corpus loaded from a flat JSON file.
// The corpus is the fixed set of source documents available for retrieval;
// it is loaded once at startup and immutable afterwards.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Document is a single corpus entry. ID is the stable join key between
// vector search results and the in-memory corpus.
type Document struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
	Length int    `json:"length,omitempty"`
	Source string `json:"source,omitempty"`
}

// Store holds the ordered corpus and an id lookup table.
type Store struct {
	docs []Document
	byID map[int]Document
}

// Load reads a corpus file (UTF-8 JSON array of documents). A missing or
// unparsable file is a fatal configuration error and propagates.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}

	return NewStore(docs), nil
}

// NewStore builds a Store from an in-memory document slice. Used by tests
// and by the collector after corpus generation.
func NewStore(docs []Document) *Store {
	byID := make(map[int]Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	return &Store{docs: docs, byID: byID}
}

// Get returns the document with the given id.
func (s *Store) Get(id int) (Document, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Len returns the number of documents in the corpus.
func (s *Store) Len() int {
	return len(s.docs)
}

// Documents returns the corpus in load order. Callers must not mutate the
// returned slice.
func (s *Store) Documents() []Document {
	return s.docs
}

// Hash returns a hex-encoded SHA-256 digest over the ordered (id, title,
// text) triples of the corpus. Two corpora with the same hash are treated
// as identical content.
func (s *Store) Hash() string {
	h := sha256.New()
	for _, d := range s.docs {
		h.Write([]byte(strconv.Itoa(d.ID)))
		h.Write([]byte(d.Title))
		h.Write([]byte(d.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}
