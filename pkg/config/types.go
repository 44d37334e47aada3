package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent tenglaafi configuration stored as
// config.toml in the .tenglaafi/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Corpus      CorpusConfig      `toml:"corpus"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	RAG         RAGConfig         `toml:"rag"`
	Events      EventsConfig      `toml:"events"`
	Collect     CollectConfig     `toml:"collect"`
}

// CorpusConfig holds corpus file settings.
type CorpusConfig struct {
	Path string `toml:"path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector store settings. Provider is "chroma" or
// "sqlite"; Target is the chroma base URL or the sqlite file path.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Target      string  `toml:"target,omitempty"`
	Model       string  `toml:"model,omitempty"`
	MaxTokens   int     `toml:"max_tokens,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
}

// RAGConfig holds retrieval and caching parameters.
type RAGConfig struct {
	TopK          int `toml:"top_k,omitempty"`
	CacheSize     int `toml:"cache_size,omitempty"`
	ContextBudget int `toml:"context_budget,omitempty"`
	ExcerptLimit  int `toml:"excerpt_limit,omitempty"`
}

// EventsConfig holds query event stream settings. Provider is "nop" or
// "kafka"; Brokers is a comma-separated broker list.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// CollectConfig holds corpus collection (PubMed) settings.
type CollectConfig struct {
	Email      string `toml:"email,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	MaxResults int    `toml:"max_results,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(get func(c *Config) *int, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.Itoa(*get(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"corpus.path": {
		get: func(c *Config) string { return c.Corpus.Path },
		set: func(c *Config, v string) error { c.Corpus.Path = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.max_tokens": intKey(func(c *Config) *int { return &c.LLM.MaxTokens }, "llm.max_tokens"),
	"llm.temperature": {
		get: func(c *Config) string {
			if c.LLM.Temperature == 0 {
				return ""
			}
			return strconv.FormatFloat(c.LLM.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for llm.temperature: %w", err)
			}
			c.LLM.Temperature = f
			return nil
		},
	},
	"rag.top_k":          intKey(func(c *Config) *int { return &c.RAG.TopK }, "rag.top_k"),
	"rag.cache_size":     intKey(func(c *Config) *int { return &c.RAG.CacheSize }, "rag.cache_size"),
	"rag.context_budget": intKey(func(c *Config) *int { return &c.RAG.ContextBudget }, "rag.context_budget"),
	"rag.excerpt_limit":  intKey(func(c *Config) *int { return &c.RAG.ExcerptLimit }, "rag.excerpt_limit"),
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"collect.email": {
		get: func(c *Config) string { return c.Collect.Email },
		set: func(c *Config, v string) error { c.Collect.Email = v; return nil },
	},
	"collect.api_key": {
		get: func(c *Config) string { return c.Collect.APIKey },
		set: func(c *Config, v string) error { c.Collect.APIKey = v; return nil },
	},
	"collect.max_results": intKey(func(c *Config) *int { return &c.Collect.MaxResults }, "collect.max_results"),
}
