// Package wiring assembles pipeline dependencies from viper configuration.
// It is shared by the serve, index, and query commands so provider
// construction cannot drift between them.
package wiring

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	embeddingutils "github.com/tenglaafi/tenglaafi/pkg/embeddings/utils"
	"github.com/tenglaafi/tenglaafi/pkg/eventstream"
	"github.com/tenglaafi/tenglaafi/pkg/eventstream/kafka"
	"github.com/tenglaafi/tenglaafi/pkg/eventstream/nop"
	llmutils "github.com/tenglaafi/tenglaafi/pkg/llm/utils"
	"github.com/tenglaafi/tenglaafi/pkg/rag"
	vectorutils "github.com/tenglaafi/tenglaafi/pkg/vector/utils"
)

// BuildPipeline constructs the full RAG pipeline from viper configuration.
// The returned cleanup function closes every provider; call it when the
// pipeline is no longer needed.
func BuildPipeline(ctx context.Context, v *viper.Viper, force bool, logger *zap.Logger) (*rag.Pipeline, func(), error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		Token:        os.Getenv("HF_TOKEN"),
		Dimensions:   v.GetInt("embedding.dimensions"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	index, err := vectorutils.NewIndex(&vectorutils.NewIndexOpts{
		ProviderType: v.GetString("vector_store.provider"),
		TargetURL:    v.GetString("vector_store.target"),
		Collection:   v.GetString("vector_store.collection"),
		DBPath:       v.GetString("vector_store.target"),
		Dimensions:   v.GetInt("embedding.dimensions"),
		Logger:       logger,
	})
	if err != nil {
		embedder.Close()
		return nil, nil, fmt.Errorf("creating vector index: %w", err)
	}

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: v.GetString("llm.provider"),
		TargetURL:    v.GetString("llm.target"),
		Model:        v.GetString("llm.model"),
		Token:        os.Getenv("HF_TOKEN"),
	})
	if err != nil {
		embedder.Close()
		index.Close()
		return nil, nil, fmt.Errorf("creating generator: %w", err)
	}

	publisher, err := newPublisher(v, logger)
	if err != nil {
		embedder.Close()
		index.Close()
		generator.Close()
		return nil, nil, fmt.Errorf("creating event publisher: %w", err)
	}

	cleanup := func() {
		embedder.Close()
		index.Close()
		generator.Close()
		publisher.Close()
	}

	pipeline, err := rag.New(ctx, rag.Config{
		CorpusPath:    v.GetString("corpus.path"),
		ForceReindex:  force,
		TopK:          v.GetInt("rag.top_k"),
		CacheSize:     v.GetInt("rag.cache_size"),
		ContextBudget: v.GetInt("rag.context_budget"),
		ExcerptLimit:  v.GetInt("rag.excerpt_limit"),
	}, rag.Deps{
		Embedder:  embedder,
		Index:     index,
		Generator: generator,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return pipeline, cleanup, nil
}

func newPublisher(v *viper.Viper, logger *zap.Logger) (eventstream.Publisher, error) {
	switch provider := v.GetString("events.provider"); provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		brokers := splitBrokers(v.GetString("events.brokers"))
		return kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   v.GetString("events.topic"),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", provider)
	}
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
