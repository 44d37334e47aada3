package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/corpus"
)

// DefaultQueries are the PubMed search terms covering tropical diseases and
// African medicinal plants.
var DefaultQueries = []string{
	"tropical diseases treatment",
	"medicinal plants Africa",
	"herbal medicine tropical diseases",
	"malaria traditional medicine",
	"artemisia antimalarial",
	"neem medicinal properties",
	"neglected tropical diseases control",
	"vector borne diseases epidemiology",
	"traditional medicine tropical diseases Africa",
	"herbal remedies malaria treatment",
	"natural product tropical infectious diseases",
	"vector control tropical disease prevention",
}

// Collector orchestrates corpus collection: it runs the configured queries,
// fetches abstracts, deduplicates them, and assembles corpus documents.
type Collector struct {
	client  *PubMedClient
	queries []string
	maxPer  int
	logger  *zap.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithQueries overrides the default query list.
func WithQueries(queries []string) CollectorOption {
	return func(c *Collector) { c.queries = queries }
}

// WithMaxResultsPerQuery bounds how many abstracts each query contributes.
func WithMaxResultsPerQuery(n int) CollectorOption {
	return func(c *Collector) { c.maxPer = n }
}

func NewCollector(client *PubMedClient, logger *zap.Logger, opts ...CollectorOption) *Collector {
	c := &Collector{
		client:  client,
		queries: DefaultQueries,
		maxPer:  DefaultMaxResults,
		logger:  logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs every query and returns the deduplicated corpus documents.
// Per-query and per-article failures are logged and skipped; Collect only
// errors when the context is cancelled.
func (c *Collector) Collect(ctx context.Context) ([]corpus.Document, error) {
	seen := make(map[string]bool)
	var docs []corpus.Document

	for _, query := range c.queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pmids, err := c.client.Search(ctx, query, c.maxPer)
		if err != nil {
			c.logger.Warn("query failed, skipping",
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}

		for _, pmid := range pmids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if seen[pmid] {
				continue
			}
			seen[pmid] = true

			abstract, err := c.client.FetchAbstract(ctx, pmid)
			if err != nil {
				c.logger.Warn("abstract fetch failed, skipping",
					zap.String("pmid", pmid),
					zap.Error(err),
				)
				continue
			}
			if abstract == nil {
				continue
			}
			if !ValidateContent(abstract.Text, 0) {
				c.logger.Debug("abstract rejected by validation",
					zap.String("pmid", pmid),
				)
				continue
			}

			docs = append(docs, corpus.Document{
				ID:     len(docs) + 1,
				Title:  abstract.Title,
				Text:   abstract.Text,
				URL:    abstract.URL,
				Length: len(abstract.Text),
				Source: "pubmed",
			})
		}
	}

	c.logger.Info("corpus collection complete",
		zap.Int("documents", len(docs)),
	)

	return docs, nil
}

// Save writes the documents as a JSON corpus file, creating parent
// directories as needed. The write goes through a temp file in the same
// directory and a rename so a watched corpus never observes a partial file.
func Save(docs []corpus.Document, path string) error {
	if len(docs) == 0 {
		return fmt.Errorf("refusing to save an empty corpus")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating corpus directory: %w", err)
		}
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp corpus file: %w", err)
	}

	if _, err := tmp.WriteString(buf.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp corpus file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("setting corpus permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing corpus: %w", err)
	}

	return nil
}
