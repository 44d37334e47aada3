package corpus_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/corpus"
)

var _ = Describe("Corpus", func() {
	docs := func() []corpus.Document {
		return []corpus.Document{
			{ID: 1, Title: "Paludisme", Text: "Le paludisme est transmis par les moustiques anophèles."},
			{ID: 2, Title: "Dengue", Text: "La dengue est une arbovirose tropicale."},
			{ID: 3, Title: "Moringa", Text: "Le moringa est utilisé en médecine traditionnelle."},
		}
	}

	Describe("Load", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("loads a JSON array of documents", func() {
			path := filepath.Join(dir, "corpus.json")
			payload := `[{"id": 1, "title": "Paludisme", "text": "fièvre", "url": "https://example.org/1"}]`
			Expect(os.WriteFile(path, []byte(payload), 0o600)).To(Succeed())

			store, err := corpus.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Len()).To(Equal(1))

			doc, ok := store.Get(1)
			Expect(ok).To(BeTrue())
			Expect(doc.Title).To(Equal("Paludisme"))
			Expect(doc.URL).To(Equal("https://example.org/1"))
		})

		It("returns an error for a missing file", func() {
			_, err := corpus.Load(filepath.Join(dir, "nope.json"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("reading corpus"))
		})

		It("returns an error for malformed JSON", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"not": "an array"`), 0o600)).To(Succeed())

			_, err := corpus.Load(path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing corpus"))
		})
	})

	Describe("Store", func() {
		It("looks up documents by id", func() {
			store := corpus.NewStore(docs())

			doc, ok := store.Get(2)
			Expect(ok).To(BeTrue())
			Expect(doc.Title).To(Equal("Dengue"))

			_, ok = store.Get(42)
			Expect(ok).To(BeFalse())
		})

		It("preserves load order in Documents", func() {
			store := corpus.NewStore(docs())

			titles := make([]string, 0, store.Len())
			for _, d := range store.Documents() {
				titles = append(titles, d.Title)
			}
			Expect(titles).To(Equal([]string{"Paludisme", "Dengue", "Moringa"}))
		})
	})

	Describe("Hash", func() {
		It("is deterministic for identical content", func() {
			a := corpus.NewStore(docs())
			b := corpus.NewStore(docs())
			Expect(a.Hash()).To(Equal(b.Hash()))
			Expect(a.Hash()).To(HaveLen(64))
		})

		It("changes when a document's text changes", func() {
			before := corpus.NewStore(docs()).Hash()

			changed := docs()
			changed[1].Text = "La dengue provoque des fièvres hémorragiques."
			after := corpus.NewStore(changed).Hash()

			Expect(after).NotTo(Equal(before))
		})

		It("is sensitive to document order", func() {
			ordered := corpus.NewStore(docs()).Hash()

			reversed := docs()
			reversed[0], reversed[2] = reversed[2], reversed[0]
			shuffled := corpus.NewStore(reversed).Hash()

			Expect(shuffled).NotTo(Equal(ordered))
		})

		It("ignores fields outside id, title and text", func() {
			plain := corpus.NewStore(docs()).Hash()

			annotated := docs()
			annotated[0].URL = "https://example.org/other"
			annotated[0].Source = "pubmed"
			Expect(corpus.NewStore(annotated).Hash()).To(Equal(plain))
		})
	})
})
