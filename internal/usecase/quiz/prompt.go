package quiz

import (
	"fmt"
	"strings"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

const schemaInstruction = `Respond with exactly one question as a JSON object of this shape:
{"question": "<question text>", "choices": [{"key": "A", "value": "<option>"}, {"key": "B", "value": "<option>"}, {"key": "C", "value": "<option>"}, {"key": "D", "value": "<option>"}], "answer": "<key of the correct choice>", "explanation": "<why the answer is correct>"}
Use 2 to 4 choices keyed A, B, C, D in order. Exactly one choice is correct.`

// buildPrompt assembles the request for one question slot.
func buildPrompt(topic string, chunks []document.Chunk, avoid []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write one multiple-choice quiz question about: %s\n\n", topic)

	if len(chunks) > 0 {
		sb.WriteString("Base the question on this context:\n")
		for _, ch := range chunks {
			md := ch.Metadata()
			if md.Source != "" {
				fmt.Fprintf(&sb, "[%s, page %d]\n", md.Source, md.Page)
			}
			sb.WriteString(ch.Text())
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString("No source material is available; rely on general knowledge of the topic.\n\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Incorrect options should be plausible but clearly wrong\n")
	sb.WriteString("- Test understanding, not wording found verbatim in the context\n")
	sb.WriteString("- Do not give the answer away in the question text\n")

	if len(avoid) > 0 {
		sb.WriteString("\nDo not repeat any of these questions:\n")
		for _, q := range avoid {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(schemaInstruction)
	return sb.String()
}
