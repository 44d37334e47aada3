package config

const (
	defaultCorpusPath = "data/corpus_tropicales.json"

	defaultAPIListen = ":8000"

	defaultVectorProvider   = "chroma"
	defaultVectorTarget     = "http://localhost:8001"
	defaultVectorCollection = "tropical_medical_docs"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider    = "ollama"
	defaultLLMTarget      = "http://localhost:11434"
	defaultLLMModel       = "mistral"
	defaultLLMMaxTokens   = 512
	defaultLLMTemperature = 0.2

	defaultTopK          = 3
	defaultCacheSize     = 100
	defaultContextBudget = 3000
	defaultExcerptLimit  = 800

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "tenglaafi.query.answered"

	defaultCollectMaxResults = 50
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Corpus: CorpusConfig{
			Path: defaultCorpusPath,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Target:      defaultLLMTarget,
			Model:       defaultLLMModel,
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultLLMTemperature,
		},
		RAG: RAGConfig{
			TopK:          defaultTopK,
			CacheSize:     defaultCacheSize,
			ContextBudget: defaultContextBudget,
			ExcerptLimit:  defaultExcerptLimit,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Collect: CollectConfig{
			MaxResults: defaultCollectMaxResults,
		},
	}
}
