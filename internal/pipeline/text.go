package pipeline

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// foldText NFKC-normalizes payload text so full-width digits, ligatures and
// non-breaking spaces match the ASCII patterns below.
func foldText(p model.SourcePayload) string {
	return norm.NFKC.String(model.Text(p))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateWords cuts s to at most n runes, backing up to the last space when
// one exists in the tail.
func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}
