package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultContextBudget bounds the assembled context in characters.
	DefaultContextBudget = 3000

	// DefaultExcerptLimit bounds each document excerpt in characters.
	DefaultExcerptLimit = 800

	// contextSeparator joins attributed document blocks.
	contextSeparator = "\n---\n"
)

// Canonical user-facing strings. The assistant answers in French, matching
// the corpus language.
const (
	emptyQuestionAnswer = "Question vide."

	noAnswerGenerated = "Aucune réponse générée (erreur LLM ou contexte vide)."

	generationApology = "Désolé, une erreur s'est produite lors de la génération de la réponse. " +
		"Veuillez réessayer dans quelques instants."

	sourcesHeader = "\n\n**Sources consultées:**\n"
)

// systemPrompt fixes the assistant persona: answer strictly from the
// provided context, state explicitly when information is absent, and leave
// citation markup to post-processing.
const systemPrompt = "Tu es Tenglaafi, un assistant médical IA spécialisé dans les maladies tropicales " +
	"et les plantes médicinales africaines. " +
	"Tu réponds uniquement en te basant sur le contexte fourni : " +
	"si une information n'y figure pas, indique-le explicitement. " +
	"Tu dois :\n" +
	"1. Fournir des explications concises, factuelles et en français clair.\n" +
	"2. Éviter d'inclure des citations comme [Document X] dans ta réponse. Les sources sont gérées séparément.\n" +
	"3. Éviter toute spéculation ou hallucination.\n" +
	"4. Employer un ton neutre, professionnel et bienveillant."

// userPrompt embeds the assembled context and the question.
func userPrompt(context, question string) string {
	return fmt.Sprintf(
		"**Contexte médical disponible :**\n%s\n\n"+
			"**Question :** %s\n\n"+
			"**Consigne :** Rédige une réponse claire et exacte à partir du contexte. "+
			"Si tu n'as pas assez d'informations, indique-le explicitement plutôt que d'inventer une réponse.",
		context, question,
	)
}

// buildContext concatenates retrieved documents into a single bounded
// string. Blocks are appended in retrieval order (descending relevance)
// until the next block would overflow the budget; the first overflowing
// block and everything after it are dropped (strict prefix truncation, not
// best-fit packing).
func buildContext(docs []RetrievedDoc, budget, excerptLimit int) string {
	var parts []string
	length := 0

	for _, doc := range docs {
		excerpt := doc.Text
		if len(excerpt) > excerptLimit {
			cut := excerptLimit
			// back off to a rune boundary so the excerpt stays valid UTF-8
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut]
		}

		part := fmt.Sprintf("[Document %d] %s (Pertinence: %d%%)\n%s\n",
			doc.ID, doc.Title, similarityPercent(doc.Similarity), excerpt)

		if length+len(part) > budget {
			break
		}

		parts = append(parts, part)
		length += len(part)
	}

	return strings.Join(parts, contextSeparator)
}

// enhanceAnswer guarantees source attribution: when the generator ignored
// the citation instruction and retrieval produced sources, a block listing
// the top 3 sources is appended.
func enhanceAnswer(answer string, sources []RetrievedDoc) string {
	if answer == "" {
		return noAnswerGenerated
	}

	hasCitation := false
	for _, doc := range sources {
		if strings.Contains(answer, fmt.Sprintf("[Document %d]", doc.ID)) {
			hasCitation = true
			break
		}
	}

	if hasCitation || len(sources) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString(sourcesHeader)
	for i, doc := range sources {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- [%d] %s (Pertinence: %d%%)\n", doc.ID, doc.Title, similarityPercent(doc.Similarity))
	}

	return b.String()
}

// similarityPercent converts a similarity in [-1, 1] to an integer percent.
func similarityPercent(similarity float32) int {
	return int(similarity * 100)
}
