// Package answer synthesizes answers to questions from retrieved document
// passages.
package answer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/hilens/internal/retrieval"
)

const (
	snippetRunes  = 240
	minPieceRunes = 40
	maxPieceRunes = 1200
)

// Evidence is one passage that went into the answer context.
type Evidence struct {
	Page    int              `json:"page"`
	Score   float64          `json:"score"`
	Snippet string           `json:"snippet"`
	Source  retrieval.Source `json:"source"`
	Label   string           `json:"label,omitempty"`
}

// BuildContext joins hits into a page-tagged context of at most charLimit
// runes. No single hit contributes more than maxPieceRunes of text. A hit
// that does not fit is cut to the remaining budget, or skipped when less than
// minPieceRunes of it would remain, and later hits still get their chance.
// Every included hit is returned as evidence, in order.
func BuildContext(hits []retrieval.Hit, charLimit int) (string, []Evidence) {
	var parts []string
	evidences := []Evidence{}
	total := 0
	for _, h := range hits {
		snippet := strings.ReplaceAll(strings.TrimSpace(h.Text), "\n", " ")
		if snippet == "" {
			continue
		}
		if utf8.RuneCountInString(snippet) > maxPieceRunes {
			snippet = strings.TrimSpace(string([]rune(snippet)[:maxPieceRunes]))
		}
		prefix := fmt.Sprintf("(p.%d) ", h.PageLabel)
		n := utf8.RuneCountInString(prefix) + utf8.RuneCountInString(snippet)
		if total+n > charLimit {
			room := charLimit - total - utf8.RuneCountInString(prefix)
			if room < minPieceRunes {
				continue
			}
			snippet = strings.TrimSpace(string([]rune(snippet)[:room]))
			n = utf8.RuneCountInString(prefix) + utf8.RuneCountInString(snippet)
		}
		parts = append(parts, prefix+snippet)
		evidences = append(evidences, Evidence{
			Page:    h.PageLabel,
			Score:   math.Round(h.Score*1e4) / 1e4,
			Snippet: truncateRunes(snippet, snippetRunes),
			Source:  h.Source,
			Label:   h.Label,
		})
		total += n
	}
	return strings.Join(parts, "\n\n"), evidences
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
