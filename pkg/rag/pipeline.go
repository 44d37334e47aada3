// Package rag implements the retrieval-augmented generation pipeline: the
// corpus-versioning/reindex decision, query caching, context assembly,
// answer post-processing, and batch execution.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/corpus"
	"github.com/tenglaafi/tenglaafi/pkg/embeddings"
	"github.com/tenglaafi/tenglaafi/pkg/eventstream"
	"github.com/tenglaafi/tenglaafi/pkg/llm"
	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

const (
	// DefaultTopK is the number of documents retrieved per query.
	DefaultTopK = 3

	// DefaultCacheSize bounds the query cache.
	DefaultCacheSize = 100

	// DefaultIndexBatchSize bounds embedding/upsert batches during rebuild.
	DefaultIndexBatchSize = 100

	// generateAttempts bounds generation retries. An attempt is retried
	// when the provider errors or returns fewer than minAnswerLength
	// characters.
	generateAttempts = 2
	minAnswerLength  = 20

	// Collection metadata keys used for staleness detection.
	metaKeyEmbeddingModel = "embedding_model"
	metaKeyCorpusHash     = "corpus_hash"
)

// RetrievedDoc is a corpus document joined with its retrieval similarity.
// Similarity is 1 - distance and lies in [-1, 1] for cosine distance.
type RetrievedDoc struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	URL        string  `json:"url"`
	Similarity float32 `json:"similarity"`
}

// BatchResult is one entry of a batch query response.
type BatchResult struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []RetrievedDoc `json:"sources"`
}

// QueryOptions controls a single query.
type QueryOptions struct {
	// K is the number of documents to retrieve. Zero means the pipeline
	// default.
	K int

	// ReturnSources controls whether sources accompany the answer.
	ReturnSources bool

	// UseCache enables the query cache for this call.
	UseCache bool
}

// Stats summarizes the pipeline state.
type Stats struct {
	Documents       int    `json:"documents"`
	CachedQueries   int    `json:"cached_queries"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
	CorpusHash      string `json:"corpus_hash"`
	TopK            int    `json:"top_k"`
}

// Config holds pipeline construction parameters.
type Config struct {
	// CorpusPath is the JSON corpus file. Required.
	CorpusPath string

	// ForceReindex rebuilds the vector index regardless of staleness.
	ForceReindex bool

	// TopK is the default retrieval depth. Defaults to DefaultTopK.
	TopK int

	// CacheSize bounds the query cache. Defaults to DefaultCacheSize.
	CacheSize int

	// ContextBudget bounds the assembled context in characters.
	// Defaults to DefaultContextBudget.
	ContextBudget int

	// ExcerptLimit bounds each document excerpt in characters.
	// Defaults to DefaultExcerptLimit.
	ExcerptLimit int

	// IndexBatchSize bounds rebuild batches. Defaults to DefaultIndexBatchSize.
	IndexBatchSize int
}

// Deps are the pipeline's injected collaborators.
type Deps struct {
	Embedder  embeddings.Embedder
	Index     vector.Index
	Generator llm.Generator

	// Publisher receives query events. Optional; nil disables publishing.
	Publisher eventstream.Publisher

	Logger *zap.Logger
}

// Pipeline orchestrates embedding, retrieval, and generation over a fixed
// corpus. By the time New returns, the vector index is consistent with the
// current corpus and embedding model.
type Pipeline struct {
	// mu guards store, which Reload swaps under load.
	mu    sync.RWMutex
	store *corpus.Store

	corpusPath string

	embedder  embeddings.Embedder
	index     vector.Index
	generator llm.Generator
	publisher eventstream.Publisher
	logger    *zap.Logger

	cache *queryCache

	topK           int
	contextBudget  int
	excerptLimit   int
	indexBatchSize int
}

// New loads the corpus, decides whether the index is stale, and rebuilds it
// when needed. Corpus load failures and rebuild failures are fatal.
func New(ctx context.Context, cfg Config, deps Deps) (*Pipeline, error) {
	store, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, err
	}
	return NewWithStore(ctx, cfg, deps, store)
}

// NewWithStore is New with a pre-built corpus store. Used by tests.
func NewWithStore(ctx context.Context, cfg Config, deps Deps, store *corpus.Store) (*Pipeline, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	contextBudget := cfg.ContextBudget
	if contextBudget <= 0 {
		contextBudget = DefaultContextBudget
	}
	excerptLimit := cfg.ExcerptLimit
	if excerptLimit <= 0 {
		excerptLimit = DefaultExcerptLimit
	}
	batchSize := cfg.IndexBatchSize
	if batchSize <= 0 {
		batchSize = DefaultIndexBatchSize
	}

	p := &Pipeline{
		store:          store,
		corpusPath:     cfg.CorpusPath,
		embedder:       deps.Embedder,
		index:          deps.Index,
		generator:      deps.Generator,
		publisher:      deps.Publisher,
		logger:         deps.Logger,
		cache:          newQueryCache(cacheSize),
		topK:           topK,
		contextBudget:  contextBudget,
		excerptLimit:   excerptLimit,
		indexBatchSize: batchSize,
	}

	p.logger.Info("corpus loaded",
		zap.Int("documents", store.Len()),
	)

	if err := p.ensureIndex(ctx, cfg.ForceReindex); err != nil {
		return nil, err
	}

	return p, nil
}

// ensureIndex applies the reindex decision: rebuild when forced, when the
// index is empty, or when the stored collection metadata disagrees with the
// current embedding model or corpus hash.
func (p *Pipeline) ensureIndex(ctx context.Context, force bool) error {
	count, err := p.index.Count(ctx)
	if err != nil {
		// An unreadable index is treated as empty; the rebuild below
		// repopulates it.
		p.logger.Warn("could not count indexed entries", zap.Error(err))
		count = 0
	}

	meta, err := p.index.Metadata(ctx)
	if err != nil {
		p.logger.Warn("could not read collection metadata", zap.Error(err))
		meta = map[string]string{}
	}

	sameModel := meta[metaKeyEmbeddingModel] == p.embedder.Model()
	sameCorpus := meta[metaKeyCorpusHash] == p.corpusStore().Hash()

	if !force && count > 0 && sameModel && sameCorpus {
		p.logger.Info("vector index up to date",
			zap.Int("entries", count),
		)
		return nil
	}

	p.logger.Info("reindex required",
		zap.Bool("forced", force),
		zap.Int("entries", count),
		zap.Bool("same_model", sameModel),
		zap.Bool("same_corpus", sameCorpus),
	)

	return p.Rebuild(ctx)
}

// Rebuild recomputes embeddings for the whole corpus and repopulates the
// index, then records the embedding model and corpus hash as collection
// metadata. The query cache is cleared so stale answers cannot survive a
// corpus change.
func (p *Pipeline) Rebuild(ctx context.Context) error {
	store := p.corpusStore()
	docs := store.Documents()

	for start := 0; start < len(docs); start += p.indexBatchSize {
		end := start + p.indexBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}

		// Embedding order must match document order: entries[i] below
		// pairs vecs[i] with batch[i].
		vecs, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding corpus batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedding corpus batch %d-%d: got %d embeddings for %d documents", start, end, len(vecs), len(batch))
		}

		entries := make([]vector.Entry, len(batch))
		for i, d := range batch {
			entries[i] = vector.Entry{
				ID:        strconv.Itoa(d.ID),
				Embedding: vecs[i],
				Document:  d.Text,
				Metadata: map[string]string{
					"title":  d.Title,
					"url":    d.URL,
					"length": strconv.Itoa(d.Length),
					"source": d.Source,
				},
			}
		}

		if err := p.index.Upsert(ctx, entries); err != nil {
			return fmt.Errorf("indexing corpus batch %d-%d: %w", start, end, err)
		}

		p.logger.Info("indexed corpus batch",
			zap.Int("done", end),
			zap.Int("total", len(docs)),
		)
	}

	meta := map[string]string{
		metaKeyEmbeddingModel: p.embedder.Model(),
		metaKeyCorpusHash:     store.Hash(),
	}
	if err := p.index.SetMetadata(ctx, meta); err != nil {
		// Not fatal: a future run will detect the mismatch and rebuild
		// again, which is wasteful but safe.
		p.logger.Warn("could not update collection metadata", zap.Error(err))
	}

	p.cache.clear()

	p.logger.Info("vector index rebuilt",
		zap.Int("documents", len(docs)),
	)

	return nil
}

// Query answers a question from the corpus. Embedding and search failures
// propagate; generation failures degrade to a fixed apology string. The
// returned sources are nil when opts.ReturnSources is false.
func (p *Pipeline) Query(ctx context.Context, question string, opts QueryOptions) (string, []RetrievedDoc, error) {
	k := opts.K
	if k <= 0 {
		k = p.topK
	}

	// Empty questions short-circuit before any provider call or cache
	// access.
	if isBlank(question) {
		if opts.ReturnSources {
			return emptyQuestionAnswer, []RetrievedDoc{}, nil
		}
		return emptyQuestionAnswer, nil, nil
	}

	key := cacheKey(question, k, opts.ReturnSources)
	if opts.UseCache {
		if r, ok := p.cache.get(key); ok {
			p.logger.Debug("query cache hit")
			p.publish(ctx, question, k, true, r.answer, r.sources, 0)
			return r.answer, r.sources, nil
		}
	}

	started := time.Now()

	queryVec, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := p.index.Search(ctx, queryVec, k)
	if err != nil {
		return "", nil, fmt.Errorf("searching index: %w", err)
	}

	retrieved := p.resolve(matches)

	contextText := buildContext(retrieved, p.contextBudget, p.excerptLimit)
	answer := p.generate(ctx, contextText, question)
	answer = enhanceAnswer(answer, retrieved)

	var sources []RetrievedDoc
	if opts.ReturnSources {
		sources = retrieved
	}

	if opts.UseCache {
		p.cache.put(key, cachedResult{answer: answer, sources: sources})
	}

	p.publish(ctx, question, k, false, answer, retrieved, time.Since(started).Milliseconds())

	return answer, sources, nil
}

// resolve joins vector matches back to corpus documents. Matches whose id
// does not resolve to a corpus document are dropped silently: index/corpus
// skew is tolerated, not an error.
func (p *Pipeline) resolve(matches []vector.Match) []RetrievedDoc {
	store := p.corpusStore()
	retrieved := make([]RetrievedDoc, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m.ID)
		if err != nil {
			continue
		}
		doc, ok := store.Get(id)
		if !ok {
			continue
		}
		retrieved = append(retrieved, RetrievedDoc{
			ID:         doc.ID,
			Title:      doc.Title,
			Text:       doc.Text,
			URL:        doc.URL,
			Similarity: 1 - m.Distance,
		})
	}
	return retrieved
}

// generate calls the generation provider with bounded retries. A provider
// error and an insufficient answer (< minAnswerLength characters) both
// trigger a retry; when attempts are exhausted the fixed apology string is
// returned instead of an error.
func (p *Pipeline) generate(ctx context.Context, contextText, question string) string {
	prompt := userPrompt(contextText, question)

	for attempt := 1; attempt <= generateAttempts; attempt++ {
		answer, err := p.generator.Generate(ctx, systemPrompt, prompt, llm.GenerateOptions{})
		if err != nil {
			p.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		answer = strings.TrimSpace(answer)
		if len([]rune(answer)) < minAnswerLength {
			p.logger.Warn("generation attempt returned insufficient answer",
				zap.Int("attempt", attempt),
				zap.Int("length", len(answer)),
			)
			continue
		}
		return answer
	}

	return generationApology
}

// BatchQuery answers each question independently. A failing question yields
// an error-describing answer in its slot; the batch itself never aborts.
// Result order matches input order.
func (p *Pipeline) BatchQuery(ctx context.Context, questions []string, opts QueryOptions) []BatchResult {
	results := make([]BatchResult, 0, len(questions))

	for _, q := range questions {
		answer, sources, err := p.Query(ctx, q, opts)
		if err != nil {
			answer = fmt.Sprintf("Erreur lors du traitement de la question: %v", err)
			if opts.ReturnSources {
				sources = []RetrievedDoc{}
			} else {
				sources = nil
			}
		}
		results = append(results, BatchResult{
			Question: q,
			Answer:   answer,
			Sources:  sources,
		})
	}

	return results
}

// SimilarQuestions suggests follow-up topics by retrieving the documents
// closest to the question and surfacing their titles.
func (p *Pipeline) SimilarQuestions(ctx context.Context, question string, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}

	queryVec, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := p.index.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		title := m.Metadata["title"]
		if title == "" {
			continue
		}
		suggestions = append(suggestions, "En savoir plus sur: "+title)
	}

	return suggestions, nil
}

// ClearCache drops all cached query results.
func (p *Pipeline) ClearCache() {
	p.cache.clear()
	p.logger.Info("query cache cleared")
}

// Stats reports the pipeline state.
func (p *Pipeline) Stats() Stats {
	store := p.corpusStore()
	return Stats{
		Documents:       store.Len(),
		CachedQueries:   p.cache.len(),
		EmbeddingModel:  p.embedder.Model(),
		GenerationModel: p.generator.Model(),
		CorpusHash:      store.Hash(),
		TopK:            p.topK,
	}
}

// Reload re-reads the corpus file and rebuilds the index. Used when the
// corpus changes under a running server.
func (p *Pipeline) Reload(ctx context.Context) error {
	if p.corpusPath == "" {
		return errors.New("no corpus path configured")
	}

	store, err := corpus.Load(p.corpusPath)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.store = store
	p.mu.Unlock()

	p.logger.Info("corpus reloaded",
		zap.Int("documents", store.Len()),
	)

	return p.Rebuild(ctx)
}

func (p *Pipeline) corpusStore() *corpus.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// publish emits a query event when a publisher is configured. Failures are
// logged and swallowed: telemetry never fails a query.
func (p *Pipeline) publish(ctx context.Context, question string, k int, cacheHit bool, answer string, sources []RetrievedDoc, durationMs int64) {
	if p.publisher == nil {
		return
	}

	ids := make([]int, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}

	event := &eventstream.QueryAnsweredEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeQueryAnswered,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Question:      question,
		TopK:          k,
		CacheHit:      cacheHit,
		AnswerLength:  len(answer),
		SourceIDs:     ids,
		DurationMs:    durationMs,
	}

	if err := p.publisher.PublishQuery(ctx, event); err != nil {
		p.logger.Warn("could not publish query event", zap.Error(err))
	}
}

// isBlank reports whether the question is empty or whitespace-only.
func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
