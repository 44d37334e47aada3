package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/embeddings/ollama"
	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

var _ = Describe("Ollama Embedder", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		requests []map[string]any
		status   int
		reply    [][]float32
	)

	BeforeEach(func() {
		ctx = context.Background()
		requests = nil
		status = http.StatusOK
		reply = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			requests = append(requests, body)

			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			Expect(json.NewEncoder(w).Encode(map[string]any{"embeddings": reply})).To(Succeed())
		}))
		DeferCleanup(server.Close)
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    server.URL,
			Model:      "nomic-embed-text",
			Dimensions: 4,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	Describe("NewEmbedder", func() {
		It("applies defaults for empty config", func() {
			e, err := ollama.NewEmbedder(ollama.EmbedderConfig{})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Model()).To(Equal(ollama.DefaultEmbeddingModel))
			Expect(e.Dimensions()).To(Equal(ollama.DefaultDimensions))
		})
	})

	Describe("Embed", func() {
		It("sends the model and inputs and normalizes the result", func() {
			reply = [][]float32{{3, 4, 0, 0}, {0, 0, 5, 0}}
			e := newEmbedder()

			vecs, err := e.Embed(ctx, []string{"paludisme", "dengue"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vecs).To(HaveLen(2))

			Expect(requests).To(HaveLen(1))
			Expect(requests[0]["model"]).To(Equal("nomic-embed-text"))
			Expect(requests[0]["input"]).To(Equal([]any{"paludisme", "dengue"}))

			for _, v := range vecs {
				var sum float64
				for _, x := range v {
					sum += float64(x) * float64(x)
				}
				Expect(math.Sqrt(sum)).To(BeNumerically("~", 1.0, 1e-6))
			}
		})

		It("returns nothing for an empty batch without calling the API", func() {
			e := newEmbedder()

			vecs, err := e.Embed(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(vecs).To(BeNil())
			Expect(requests).To(BeEmpty())
		})

		It("fails when the response count does not match the input count", func() {
			reply = [][]float32{{1, 0, 0, 0}}
			e := newEmbedder()

			_, err := e.Embed(ctx, []string{"a", "b"})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("expected 2 embeddings, got 1"))
		})

		It("wraps non-OK statuses in ErrEmbedding", func() {
			status = http.StatusInternalServerError
			e := newEmbedder()

			_, err := e.Embed(ctx, []string{"a"})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		})
	})

	Describe("EmbedOne", func() {
		It("returns the single embedding", func() {
			reply = [][]float32{{0, 2, 0, 0}}
			e := newEmbedder()

			v, err := e.EmbedOne(ctx, "moringa")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(HaveLen(4))
			Expect(v[1]).To(BeNumerically("~", 1.0, 1e-6))
		})
	})
})
