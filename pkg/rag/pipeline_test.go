package rag_test

import (
	"context"
	"fmt"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/corpus"
	"github.com/tenglaafi/tenglaafi/pkg/rag"
	testutils "github.com/tenglaafi/tenglaafi/pkg/utils/test"
	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

func vectorEntry(d corpus.Document, vec []float32) vector.Entry {
	return vector.Entry{
		ID:        strconv.Itoa(d.ID),
		Embedding: vec,
		Document:  d.Text,
		Metadata:  map[string]string{"title": d.Title, "url": d.URL},
	}
}

const goodAnswer = "Le paludisme est une maladie parasitaire transmise par les moustiques anophèles."

func makeStore(n int) *corpus.Store {
	docs := make([]corpus.Document, n)
	for i := range docs {
		docs[i] = corpus.Document{
			ID:     i + 1,
			Title:  fmt.Sprintf("Maladie %d", i+1),
			Text:   fmt.Sprintf("Description détaillée de la maladie tropicale numéro %d et de son traitement.", i+1),
			URL:    fmt.Sprintf("https://example.org/doc/%d", i+1),
			Length: 80,
			Source: "synthetic",
		}
	}
	return corpus.NewStore(docs)
}

type fixture struct {
	embedder  *testutils.MockEmbedder
	index     *testutils.MockIndex
	generator *testutils.MockGenerator
	publisher *testutils.MockPublisher
	store     *corpus.Store
}

func newFixture(n int) *fixture {
	return &fixture{
		embedder:  testutils.NewMockEmbedder(),
		index:     testutils.NewMockIndex(),
		generator: testutils.NewMockGenerator(goodAnswer),
		publisher: testutils.NewMockPublisher(),
		store:     makeStore(n),
	}
}

func (f *fixture) build(ctx context.Context, cfg rag.Config) (*rag.Pipeline, error) {
	return rag.NewWithStore(ctx, cfg, rag.Deps{
		Embedder:  f.embedder,
		Index:     f.index,
		Generator: f.generator,
		Publisher: f.publisher,
	}, f.store)
}

// seedIndex populates the mock index and stamps metadata as a prior run of
// the pipeline would have.
func (f *fixture) seedIndex(ctx context.Context, model, hash string) {
	for _, d := range f.store.Documents() {
		vec, _ := f.embedder.EmbedOne(ctx, d.Text)
		f.index.Entries[strconv.Itoa(d.ID)] = vectorEntry(d, vec)
	}
	f.index.Meta["embedding_model"] = model
	f.index.Meta["corpus_hash"] = hash
	f.embedder.Calls = 0
}

var _ = Describe("Pipeline construction", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("indexes the whole corpus when the index is empty", func() {
		f := newFixture(10)

		_, err := f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		n, _ := f.index.Count(ctx)
		Expect(n).To(Equal(10))
		Expect(f.index.Meta["embedding_model"]).To(Equal("mock-embedder"))
		Expect(f.index.Meta["corpus_hash"]).To(Equal(f.store.Hash()))
	})

	It("skips reindexing when model and corpus are unchanged", func() {
		f := newFixture(5)
		f.seedIndex(ctx, "mock-embedder", f.store.Hash())

		_, err := f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.index.UpsertCalls).To(Equal(0))
		Expect(f.embedder.Calls).To(Equal(0))
	})

	It("reindexes when the embedding model changed", func() {
		f := newFixture(5)
		f.seedIndex(ctx, "autre-modele", f.store.Hash())

		_, err := f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.index.UpsertCalls).To(BeNumerically(">", 0))
		Expect(f.index.Meta["embedding_model"]).To(Equal("mock-embedder"))
	})

	It("reindexes when the corpus changed", func() {
		f := newFixture(5)
		f.seedIndex(ctx, "mock-embedder", "deadbeef")

		_, err := f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.index.UpsertCalls).To(BeNumerically(">", 0))
		Expect(f.index.Meta["corpus_hash"]).To(Equal(f.store.Hash()))
	})

	It("reindexes when forced even if nothing changed", func() {
		f := newFixture(5)
		f.seedIndex(ctx, "mock-embedder", f.store.Hash())

		_, err := f.build(ctx, rag.Config{ForceReindex: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.index.UpsertCalls).To(BeNumerically(">", 0))
	})

	It("splits the rebuild into batches", func() {
		f := newFixture(10)

		_, err := f.build(ctx, rag.Config{IndexBatchSize: 4})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.index.UpsertCalls).To(Equal(3))
	})

	It("fails construction when indexing fails", func() {
		f := newFixture(3)
		f.index.FailUpsert = true

		_, err := f.build(ctx, rag.Config{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Pipeline.Query", func() {
	var (
		ctx context.Context
		f   *fixture
		p   *rag.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(10)

		var err error
		p, err = f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		// Construction rebuilds the empty index; start counting from the
		// first query.
		f.embedder.Calls = 0
		f.generator.Calls = 0
		f.publisher.Events = nil
	})

	It("answers from the corpus and appends sources", func() {
		question := f.store.Documents()[4].Text

		answer, sources, err := p.Query(ctx, question, rag.QueryOptions{ReturnSources: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(answer).To(ContainSubstring(goodAnswer))
		Expect(answer).To(ContainSubstring("**Sources consultées:**"))
		Expect(sources).To(HaveLen(3))
		Expect(sources[0].ID).To(Equal(5))
		Expect(sources[0].Similarity).To(BeNumerically("~", 1.0, 0.001))
	})

	It("short-circuits empty questions without touching providers or cache", func() {
		for _, q := range []string{"", "   ", "\n\t"} {
			answer, sources, err := p.Query(ctx, q, rag.QueryOptions{ReturnSources: true, UseCache: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("Question vide."))
			Expect(sources).To(BeEmpty())
		}

		Expect(f.embedder.Calls).To(Equal(0))
		Expect(f.generator.Calls).To(Equal(0))
		Expect(p.Stats().CachedQueries).To(Equal(0))
	})

	It("serves repeated questions from the cache", func() {
		opts := rag.QueryOptions{ReturnSources: true, UseCache: true}

		first, _, err := p.Query(ctx, "Comment traiter le paludisme?", opts)
		Expect(err).NotTo(HaveOccurred())

		second, _, err := p.Query(ctx, "  comment traiter le paludisme?  ", opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(f.generator.Calls).To(Equal(1))
		Expect(f.embedder.Calls).To(Equal(1))
	})

	It("does not share cache entries across different k or source flags", func() {
		_, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{K: 3, UseCache: true})
		Expect(err).NotTo(HaveOccurred())
		_, _, err = p.Query(ctx, "paludisme", rag.QueryOptions{K: 5, UseCache: true})
		Expect(err).NotTo(HaveOccurred())
		_, _, err = p.Query(ctx, "paludisme", rag.QueryOptions{K: 3, ReturnSources: true, UseCache: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.generator.Calls).To(Equal(3))
	})

	It("bypasses the cache when disabled", func() {
		_, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		_, _, err = p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.generator.Calls).To(Equal(2))
		Expect(p.Stats().CachedQueries).To(Equal(0))
	})

	It("propagates embedding failures", func() {
		f.embedder.FailOn = "question piégée"

		_, _, err := p.Query(ctx, "question piégée", rag.QueryOptions{})
		Expect(err).To(HaveOccurred())
	})

	It("propagates search failures", func() {
		f.index.FailSearch = true

		_, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).To(HaveOccurred())
	})

	It("retries generation once after a provider error", func() {
		f.generator.Script = []testutils.ScriptedResponse{
			{Err: fmt.Errorf("provider unavailable")},
			{Answer: goodAnswer},
		}

		answer, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(ContainSubstring(goodAnswer))
		Expect(f.generator.Calls).To(Equal(2))
	})

	It("retries generation once after an insufficient answer", func() {
		f.generator.Script = []testutils.ScriptedResponse{
			{Answer: "Oui."},
			{Answer: goodAnswer},
		}

		answer, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(ContainSubstring(goodAnswer))
		Expect(f.generator.Calls).To(Equal(2))
	})

	It("treats a whitespace-padded short answer as insufficient", func() {
		f.generator.Script = []testutils.ScriptedResponse{
			{Answer: "   Oui.   \n\t        "},
			{Answer: goodAnswer},
		}

		answer, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(ContainSubstring(goodAnswer))
		Expect(f.generator.Calls).To(Equal(2))
	})

	It("degrades to an apology when generation keeps failing", func() {
		f.generator.Script = []testutils.ScriptedResponse{
			{Err: fmt.Errorf("provider unavailable")},
			{Answer: "Non."},
		}

		answer, _, err := p.Query(ctx, "paludisme", rag.QueryOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(ContainSubstring("Désolé, une erreur s'est produite lors de la génération de la réponse."))
		Expect(f.generator.Calls).To(Equal(2))
	})

	It("publishes one event per answered query with the cache flag", func() {
		opts := rag.QueryOptions{UseCache: true}

		_, _, err := p.Query(ctx, "paludisme", opts)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = p.Query(ctx, "paludisme", opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.publisher.Events).To(HaveLen(2))
		Expect(f.publisher.Events[0].CacheHit).To(BeFalse())
		Expect(f.publisher.Events[1].CacheHit).To(BeTrue())
		Expect(f.publisher.Events[0].Question).To(Equal("paludisme"))
		Expect(f.publisher.Events[0].TopK).To(Equal(3))
	})
})

var _ = Describe("Pipeline.BatchQuery", func() {
	var (
		ctx context.Context
		f   *fixture
		p   *rag.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(6)

		var err error
		p, err = f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("answers every question in input order", func() {
		questions := []string{"q1 paludisme", "q2 dengue", "q3 typhoïde"}

		results := p.BatchQuery(ctx, questions, rag.QueryOptions{ReturnSources: true})

		Expect(results).To(HaveLen(3))
		for i, r := range results {
			Expect(r.Question).To(Equal(questions[i]))
			Expect(r.Answer).To(ContainSubstring(goodAnswer))
			Expect(r.Sources).NotTo(BeEmpty())
		}
	})

	It("isolates failures to their own slot", func() {
		f.embedder.FailOn = "question piégée"
		questions := []string{"q1 paludisme", "question piégée", "q3 dengue"}

		results := p.BatchQuery(ctx, questions, rag.QueryOptions{})

		Expect(results).To(HaveLen(3))
		Expect(results[0].Answer).To(ContainSubstring(goodAnswer))
		Expect(results[1].Answer).To(HavePrefix("Erreur lors du traitement de la question:"))
		Expect(results[2].Answer).To(ContainSubstring(goodAnswer))
	})

	It("returns an empty result set for no questions", func() {
		Expect(p.BatchQuery(ctx, nil, rag.QueryOptions{})).To(BeEmpty())
	})
})

var _ = Describe("Pipeline.SimilarQuestions", func() {
	It("surfaces titles of nearby documents", func() {
		ctx := context.Background()
		f := newFixture(6)

		p, err := f.build(ctx, rag.Config{})
		Expect(err).NotTo(HaveOccurred())

		suggestions, err := p.SimilarQuestions(ctx, f.store.Documents()[2].Text, 3)
		Expect(err).NotTo(HaveOccurred())

		Expect(suggestions).To(HaveLen(3))
		Expect(suggestions[0]).To(Equal("En savoir plus sur: Maladie 3"))
		for _, s := range suggestions {
			Expect(s).To(HavePrefix("En savoir plus sur: "))
		}
	})
})

var _ = Describe("Pipeline.Stats and ClearCache", func() {
	It("reports corpus, models, and cache occupancy", func() {
		ctx := context.Background()
		f := newFixture(4)

		p, err := f.build(ctx, rag.Config{TopK: 2})
		Expect(err).NotTo(HaveOccurred())

		_, _, err = p.Query(ctx, "paludisme", rag.QueryOptions{UseCache: true})
		Expect(err).NotTo(HaveOccurred())

		s := p.Stats()
		Expect(s.Documents).To(Equal(4))
		Expect(s.CachedQueries).To(Equal(1))
		Expect(s.EmbeddingModel).To(Equal("mock-embedder"))
		Expect(s.GenerationModel).To(Equal("mock-generator"))
		Expect(s.CorpusHash).To(Equal(f.store.Hash()))
		Expect(s.TopK).To(Equal(2))

		p.ClearCache()
		Expect(p.Stats().CachedQueries).To(Equal(0))
	})
})
