package genai

import (
	"fmt"
	"strings"
)

// expansionPrompt asks the model for n alternative phrasings of a query,
// one per line.
func expansionPrompt(query string, n int) string {
	return fmt.Sprintf(`Generate %d alternative phrasings of the following question. The alternatives should capture the same intent but use different words and structures. This helps find relevant documents that may use different terminology.

Original question: %s

Provide only the alternative questions, one per line, without numbering or explanations.`, n, query)
}

// answerPrompt builds the grounded question-answering prompt. The model
// must answer only from the supplied context and cite sources inline.
func answerPrompt(question, context string) string {
	return fmt.Sprintf(`You are a helpful AI assistant that answers questions based on provided document context.

INSTRUCTIONS:
1. Answer the question using ONLY the information in the context below.
2. If the context does not contain enough information to answer, say "%s".
3. Cite your sources using the format [Source X, Page Y] where X is the source number and Y is the page number.
4. Be concise and direct.
5. Do not make up information that is not in the context.
6. If multiple sources support a claim, cite all of them.

CONTEXT:
%s

QUESTION: %s

ANSWER:`, NoAnswerText, context, question)
}

// parseVariations extracts alternative queries from model output: one
// variation per line, blank lines and leading list markers discarded,
// capped at n.
func parseVariations(output string, n int) []string {
	var variations []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		line = stripListMarker(line)
		if line == "" {
			continue
		}
		variations = append(variations, line)
		if len(variations) == n {
			break
		}
	}
	return variations
}

// stripListMarker removes a leading "1.", "2)", "-" or "*" marker that
// models sometimes emit despite the prompt asking for bare lines.
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "-* ")
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}
