package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/llm"
	"github.com/tenglaafi/tenglaafi/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Generator", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		lastReq map[string]any
		status  int
		content string
	)

	BeforeEach(func() {
		ctx = context.Background()
		lastReq = nil
		status = http.StatusOK
		content = "Le paludisme se traite par des combinaisons à base d'artémisinine."

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())

			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			resp := map[string]any{
				"message": map[string]any{"role": "assistant", "content": content},
				"done":    true,
			}
			Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
		}))
		DeferCleanup(server.Close)
	})

	newGenerator := func() *ollama.Generator {
		g, err := ollama.NewGenerator(ollama.Config{BaseURL: server.URL, Model: "mistral"})
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	Describe("NewGenerator", func() {
		It("applies the default model", func() {
			g, err := ollama.NewGenerator(ollama.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Model()).To(Equal(ollama.DefaultModel))
		})
	})

	Describe("Generate", func() {
		It("sends system and user messages and returns trimmed text", func() {
			content = "  Réponse générée.  "
			g := newGenerator()

			answer, err := g.Generate(ctx, "Tu es un assistant médical.", "Quels sont les symptômes de la dengue?", llm.GenerateOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("Réponse générée."))

			messages, ok := lastReq["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(messages).To(HaveLen(2))

			system := messages[0].(map[string]any)
			Expect(system["role"]).To(Equal("system"))
			Expect(system["content"]).To(Equal("Tu es un assistant médical."))

			user := messages[1].(map[string]any)
			Expect(user["role"]).To(Equal("user"))
			Expect(lastReq["stream"]).To(BeFalse())
		})

		It("applies default generation options", func() {
			g := newGenerator()

			_, err := g.Generate(ctx, "system", "user", llm.GenerateOptions{})
			Expect(err).NotTo(HaveOccurred())

			options, ok := lastReq["options"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(options["num_predict"]).To(Equal(float64(llm.DefaultMaxTokens)))
			Expect(options["temperature"]).To(BeNumerically("~", llm.DefaultTemperature, 1e-9))
		})

		It("forwards explicit generation options", func() {
			g := newGenerator()

			_, err := g.Generate(ctx, "system", "user", llm.GenerateOptions{MaxTokens: 64, Temperature: 0.7})
			Expect(err).NotTo(HaveOccurred())

			options := lastReq["options"].(map[string]any)
			Expect(options["num_predict"]).To(Equal(float64(64)))
			Expect(options["temperature"]).To(BeNumerically("~", 0.7, 1e-9))
		})

		It("surfaces non-OK statuses as errors", func() {
			status = http.StatusBadGateway
			g := newGenerator()

			_, err := g.Generate(ctx, "system", "user", llm.GenerateOptions{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 502"))
		})
	})
})
