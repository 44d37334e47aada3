// Package chroma provides a Chroma vector index driver using the v2 REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for corpus embeddings.
	DefaultCollectionName = "tropical_medical_docs"

	// createRetries is how many times collection creation is attempted
	// before giving up.
	createRetries = 3
)

// ChromaIndex implements vector.Index using Chroma's REST API.
type ChromaIndex struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma index.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewChromaIndex creates a new Chroma vector index.
func NewChromaIndex(c Config, logger *zap.Logger) (*ChromaIndex, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &ChromaIndex{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var (
		collectionID string
		err          error
	)
	for attempt := 1; attempt <= createRetries; attempt++ {
		collectionID, err = d.getOrCreateCollection(context.Background())
		if err == nil {
			break
		}
		if attempt < createRetries {
			logger.Warn("collection setup failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

func (d *ChromaIndex) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", d.baseURL)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *ChromaIndex) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/%s", d.collectionsURL(), d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createBody := chromaCreateRequest{Name: d.collectionName}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", d.collectionsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

func (d *ChromaIndex) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/%s%s", d.collectionsURL(), d.collectionID, suffix)
}

func (d *ChromaIndex) post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return resp, nil
}

// Upsert stores entries with their embeddings, replacing entries that
// already exist under the same ID.
func (d *ChromaIndex) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(entries)),
		Embeddings: make([][]float32, len(entries)),
		Documents:  make([]string, len(entries)),
		Metadatas:  make([]map[string]string, len(entries)),
	}
	for i, e := range entries {
		reqBody.IDs[i] = e.ID
		reqBody.Embeddings[i] = e.Embedding
		reqBody.Documents[i] = e.Document
		reqBody.Metadatas[i] = e.Metadata
	}

	resp, err := d.post(ctx, d.collectionURL("/upsert"), reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upsert entries: status %d: %s", resp.StatusCode, string(body))
	}

	d.logger.Debug("upserted entries to chroma",
		zap.Int("count", len(entries)),
	)

	return nil
}

// Search finds the k nearest entries to the given embedding.
func (d *ChromaIndex) Search(ctx context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        k,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	resp, err := d.post(ctx, d.collectionURL("/query"), reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query: status %d: %s", resp.StatusCode, string(body))
	}

	var queryResp chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	var matches []vector.Match

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return matches, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	var metadatas []map[string]string
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		match := vector.Match{
			Entry: vector.Entry{ID: id},
		}
		if i < len(documents) {
			match.Document = documents[i]
		}
		if i < len(metadatas) {
			match.Metadata = metadatas[i]
		}
		if i < len(distances) {
			match.Distance = distances[i]
		}
		matches = append(matches, match)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Get retrieves a single entry by ID.
func (d *ChromaIndex) Get(ctx context.Context, id string) (*vector.Entry, error) {
	reqBody := chromaGetRequest{
		IDs:     []string{id},
		Include: []string{"documents", "metadatas"},
	}

	resp, err := d.post(ctx, d.collectionURL("/get"), reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get entry: status %d: %s", resp.StatusCode, string(body))
	}

	var getResp chromaGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("decoding get response: %w", err)
	}

	if len(getResp.IDs) == 0 {
		return nil, vector.ErrNotFound
	}

	entry := &vector.Entry{ID: getResp.IDs[0]}
	if len(getResp.Documents) > 0 {
		entry.Document = getResp.Documents[0]
	}
	if len(getResp.Metadatas) > 0 {
		entry.Metadata = getResp.Metadatas[0]
	}
	if len(getResp.Embeddings) > 0 {
		entry.Embedding = getResp.Embeddings[0]
	}

	return entry, nil
}

// Count returns the number of indexed entries.
func (d *ChromaIndex) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", d.collectionURL("/count"), nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to count entries: status %d: %s", resp.StatusCode, string(body))
	}

	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}

	return count, nil
}

// Metadata returns the collection-level metadata map. A collection without
// metadata yields an empty map, never an error.
func (d *ChromaIndex) Metadata(ctx context.Context) (map[string]string, error) {
	url := fmt.Sprintf("%s/%s", d.collectionsURL(), d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating metadata request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to read collection metadata: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decoding collection response: %w", err)
	}

	if collection.Metadata == nil {
		return map[string]string{}, nil
	}
	return collection.Metadata, nil
}

// SetMetadata replaces the collection-level metadata map.
func (d *ChromaIndex) SetMetadata(ctx context.Context, meta map[string]string) error {
	jsonBody, err := json.Marshal(chromaUpdateRequest{NewMetadata: meta})
	if err != nil {
		return fmt.Errorf("marshaling update request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", d.collectionsURL(), d.collectionID)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to update collection metadata: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Health reports whether the Chroma server is reachable.
func (d *ChromaIndex) Health(ctx context.Context) bool {
	_, err := d.Count(ctx)
	return err == nil
}

// Reset deletes the collection and recreates it empty.
func (d *ChromaIndex) Reset(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", d.collectionsURL(), d.collectionName)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	resp.Body.Close()

	collectionID, err := d.getOrCreateCollection(ctx)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}
	d.collectionID = collectionID

	d.logger.Warn("chroma collection reset",
		zap.String("collection", d.collectionName),
	)

	return nil
}

// Close releases resources held by the index.
func (d *ChromaIndex) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Index = (*ChromaIndex)(nil)
