package pipeline

import (
	"regexp"
	"strconv"
	"time"
)

const minFoundedYear = 1800

var foundedRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:founded|established|started|launched|incorporated)\s+(?:in\s+)?(?:(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+)?(\d{4})\b`),
	regexp.MustCompile(`(?i)\b(?:since|est\.?)\s+(\d{4})\b`),
	regexp.MustCompile(`(?i)\b(\d{4})\s*(?:-|–|—)\s*present\b`),
}

// extractFoundedYear returns the first plausible year in text. Years before
// 1800 or after now are skipped.
func extractFoundedYear(text string, now time.Time) (int, bool) {
	for _, re := range foundedRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			y, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if y >= minFoundedYear && y <= now.Year() {
				return y, true
			}
		}
	}
	return 0, false
}
