package pipeline

import (
	"golang.org/x/text/unicode/norm"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

const maxDescriptionRunes = 500

// extractDescription returns the first non-empty summary or text of p.
func extractDescription(p model.SourcePayload) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, it := range p.Items() {
		for _, s := range []string{it.Summary, it.Text} {
			if d := collapseSpace(norm.NFKC.String(s)); d != "" {
				return truncateWords(d, maxDescriptionRunes), true
			}
		}
	}
	return "", false
}
