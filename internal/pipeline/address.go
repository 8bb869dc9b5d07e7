package pipeline

import (
	"regexp"
	"strings"
)

var (
	streetAddressRe = regexp.MustCompile(`\b\d{1,6}\s+(?:[A-Z0-9][\p{L}0-9.'-]*\s+){1,5}(?i:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|way|court|ct|place|pl|square|sq|parkway|pkwy|highway|hwy|terrace|garden|gardens|row|close)\b\.?(?:,\s*[^,\n]{2,40}){0,3}`)
	cityStateZipRe  = regexp.MustCompile(`\b[A-Z][\p{L}.'-]*(?:\s+[A-Z][\p{L}.'-]*){0,3},\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
)

// extractAddress finds a street address or, failing that, a "City, ST ZIP".
func extractAddress(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{streetAddressRe, cityStateZipRe} {
		if m := re.FindString(text); m != "" {
			return strings.TrimRight(collapseSpace(m), " ,."), true
		}
	}
	return "", false
}
