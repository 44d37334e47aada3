package rag

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buildContext", func() {
	It("formats attributed blocks in retrieval order", func() {
		docs := []RetrievedDoc{
			{ID: 7, Title: "Paludisme", Text: "Le paludisme est transmis par les moustiques.", Similarity: 0.92},
			{ID: 2, Title: "Dengue", Text: "La dengue provoque une forte fièvre.", Similarity: 0.80},
		}

		out := buildContext(docs, DefaultContextBudget, DefaultExcerptLimit)

		Expect(out).To(ContainSubstring("[Document 7] Paludisme (Pertinence: 92%)"))
		Expect(out).To(ContainSubstring("[Document 2] Dengue (Pertinence: 80%)"))
		Expect(out).To(ContainSubstring("\n---\n"))
		Expect(strings.Index(out, "[Document 7]")).To(BeNumerically("<", strings.Index(out, "[Document 2]")))
	})

	It("truncates long documents to the excerpt limit", func() {
		long := strings.Repeat("a", 2000)
		docs := []RetrievedDoc{{ID: 1, Title: "T", Text: long, Similarity: 0.9}}

		out := buildContext(docs, DefaultContextBudget, DefaultExcerptLimit)

		Expect(out).To(ContainSubstring(strings.Repeat("a", DefaultExcerptLimit)))
		Expect(out).NotTo(ContainSubstring(strings.Repeat("a", DefaultExcerptLimit+1)))
	})

	It("does not split multi-byte characters when truncating", func() {
		long := strings.Repeat("é", 1000)
		docs := []RetrievedDoc{{ID: 1, Title: "T", Text: long, Similarity: 0.9}}

		out := buildContext(docs, DefaultContextBudget, DefaultExcerptLimit)

		Expect(strings.ToValidUTF8(out, "�")).To(Equal(out))
	})

	It("drops the first block that would overflow the budget and all later blocks", func() {
		mk := func(id int) RetrievedDoc {
			return RetrievedDoc{ID: id, Title: "T", Text: strings.Repeat("x", 400), Similarity: 0.5}
		}
		docs := []RetrievedDoc{mk(1), mk(2), mk(3), mk(4)}

		// Each block is a bit over 400 characters; a 900 budget fits
		// exactly two.
		out := buildContext(docs, 900, DefaultExcerptLimit)

		Expect(out).To(ContainSubstring("[Document 1]"))
		Expect(out).To(ContainSubstring("[Document 2]"))
		Expect(out).NotTo(ContainSubstring("[Document 3]"))
		Expect(out).NotTo(ContainSubstring("[Document 4]"))
	})

	It("returns an empty string for no documents", func() {
		Expect(buildContext(nil, DefaultContextBudget, DefaultExcerptLimit)).To(Equal(""))
	})
})

var _ = Describe("enhanceAnswer", func() {
	sources := []RetrievedDoc{
		{ID: 3, Title: "Paludisme", Similarity: 0.91},
		{ID: 8, Title: "Dengue", Similarity: 0.74},
		{ID: 1, Title: "Typhoïde", Similarity: 0.60},
		{ID: 5, Title: "Choléra", Similarity: 0.52},
	}

	It("replaces an empty answer with the fixed fallback", func() {
		Expect(enhanceAnswer("", sources)).To(Equal("Aucune réponse générée (erreur LLM ou contexte vide)."))
	})

	It("appends the top 3 sources when the answer cites none", func() {
		out := enhanceAnswer("Le paludisme se transmet par les moustiques.", sources)

		Expect(out).To(ContainSubstring("**Sources consultées:**"))
		Expect(out).To(ContainSubstring("- [3] Paludisme (Pertinence: 91%)"))
		Expect(out).To(ContainSubstring("- [8] Dengue (Pertinence: 74%)"))
		Expect(out).To(ContainSubstring("- [1] Typhoïde (Pertinence: 60%)"))
		Expect(out).NotTo(ContainSubstring("Choléra"))
	})

	It("leaves an answer citing a retrieved document untouched", func() {
		answer := "Selon [Document 8], la dengue provoque une forte fièvre."
		Expect(enhanceAnswer(answer, sources)).To(Equal(answer))
	})

	It("ignores citations of documents that were not retrieved", func() {
		answer := "Selon [Document 99], rien."
		out := enhanceAnswer(answer, sources)
		Expect(out).To(ContainSubstring("**Sources consultées:**"))
	})

	It("leaves the answer untouched when there are no sources", func() {
		answer := "Je n'ai pas assez d'informations pour répondre."
		Expect(enhanceAnswer(answer, nil)).To(Equal(answer))
	})
})

var _ = Describe("similarityPercent", func() {
	It("truncates toward zero", func() {
		Expect(similarityPercent(0.919)).To(Equal(91))
		Expect(similarityPercent(1)).To(Equal(100))
		Expect(similarityPercent(0)).To(Equal(0))
		Expect(similarityPercent(-0.5)).To(Equal(-50))
	})
})
