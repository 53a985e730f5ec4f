// Package prompt assembles the text sent to the language model for a turn.
package prompt

import "strings"

// FetchedBlock is page text fetched for a URL mentioned in the question.
type FetchedBlock struct {
	URL  string
	Text string
}

// Compose merges retrieved memories, the question and optional fetched
// content into one prompt. Blocks always appear in that order. When there
// are no memories and no fetched content the question is returned unchanged.
func Compose(question string, memories []string, fetched *FetchedBlock) string {
	var sb strings.Builder

	if len(memories) > 0 {
		sb.WriteString("Previous relevant context:\n")
		for _, m := range memories {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		sb.WriteString("\nCurrent question: ")
	}
	sb.WriteString(question)

	if fetched != nil {
		sb.WriteString("\n\nWebpage content from ")
		sb.WriteString(fetched.URL)
		sb.WriteString(":\n")
		sb.WriteString(fetched.Text)
	}

	return sb.String()
}
