package sqlitevec_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/vector"
	"github.com/tenglaafi/tenglaafi/pkg/vector/sqlitevec"
)

var _ = Describe("SQLiteVecIndex", func() {
	var (
		ctx    context.Context
		logger *zap.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = zap.NewNop()
	})

	newIndex := func() *sqlitevec.SQLiteVecIndex {
		idx, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
			DBPath:     filepath.Join(GinkgoT().TempDir(), "index.db"),
			Dimensions: 4,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(idx.Close)
		return idx
	}

	entry := func(id string, embedding []float32, title string) vector.Entry {
		return vector.Entry{
			ID:        id,
			Embedding: embedding,
			Document:  "texte du document " + id,
			Metadata:  map[string]string{"title": title},
		}
	}

	Describe("NewSQLiteVecIndex", func() {
		It("returns an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{Dimensions: 4}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("returns an error when dimensions are not specified", func() {
			_, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("creates an index with an in-memory database", func() {
			idx, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("implements vector.Index", func() {
			var _ vector.Index = (*sqlitevec.SQLiteVecIndex)(nil)
		})
	})

	Describe("Upsert and Get", func() {
		It("does nothing for an empty batch", func() {
			idx := newIndex()
			Expect(idx.Upsert(ctx, nil)).To(Succeed())

			count, err := idx.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("stores entries retrievable by id", func() {
			idx := newIndex()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("1", []float32{1, 0, 0, 0}, "Paludisme"),
				entry("2", []float32{0, 1, 0, 0}, "Dengue"),
			})).To(Succeed())

			count, err := idx.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))

			got, err := idx.Get(ctx, "2")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Metadata["title"]).To(Equal("Dengue"))
			Expect(got.Embedding).To(Equal([]float32{0, 1, 0, 0}))
		})

		It("replaces an existing entry in place", func() {
			idx := newIndex()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("1", []float32{1, 0, 0, 0}, "Avant"),
			})).To(Succeed())
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("1", []float32{0, 0, 1, 0}, "Après"),
			})).To(Succeed())

			count, err := idx.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			got, err := idx.Get(ctx, "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Metadata["title"]).To(Equal("Après"))
			Expect(got.Embedding).To(Equal([]float32{0, 0, 1, 0}))
		})

		It("returns ErrNotFound for an unknown id", func() {
			idx := newIndex()
			_, err := idx.Get(ctx, "42")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("Search", func() {
		It("returns the nearest entries first", func() {
			idx := newIndex()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("1", []float32{1, 0, 0, 0}, "Paludisme"),
				entry("2", []float32{0, 1, 0, 0}, "Dengue"),
				entry("3", []float32{0.9, 0.1, 0, 0}, "Fièvre jaune"),
			})).To(Succeed())

			matches, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal("1"))
			Expect(matches[0].Distance).To(BeNumerically("~", 0.0, 1e-5))
			Expect(matches[1].ID).To(Equal("3"))
			Expect(matches[0].Distance).To(BeNumerically("<=", matches[1].Distance))
		})
	})

	Describe("Metadata", func() {
		It("starts empty and round-trips a metadata map", func() {
			idx := newIndex()

			meta, err := idx.Metadata(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta).To(BeEmpty())

			Expect(idx.SetMetadata(ctx, map[string]string{
				"embedding_model": "nomic-embed-text",
				"corpus_hash":     "abc123",
			})).To(Succeed())

			meta, err = idx.Metadata(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta).To(HaveKeyWithValue("embedding_model", "nomic-embed-text"))
			Expect(meta).To(HaveKeyWithValue("corpus_hash", "abc123"))
		})
	})

	Describe("Reset", func() {
		It("drops entries and collection metadata", func() {
			idx := newIndex()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("1", []float32{1, 0, 0, 0}, "Paludisme"),
			})).To(Succeed())
			Expect(idx.SetMetadata(ctx, map[string]string{"corpus_hash": "abc"})).To(Succeed())

			Expect(idx.Reset(ctx)).To(Succeed())

			count, err := idx.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			meta, err := idx.Metadata(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta).To(BeEmpty())
		})
	})

	Describe("Health", func() {
		It("reports a reachable database", func() {
			idx := newIndex()
			Expect(idx.Health(ctx)).To(BeTrue())
		})
	})
})
