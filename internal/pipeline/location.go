package pipeline

import (
	"regexp"
	"strings"
)

type locationPattern struct {
	re    *regexp.Regexp
	value string
}

func named(value string, pattern string) locationPattern {
	return locationPattern{re: regexp.MustCompile(pattern), value: value}
}

// US regions and cities, checked first. Acronyms such as UK and USA match
// case-sensitively.
var usLocations = []locationPattern{
	named("San Francisco Bay Area", `(?i)\b(?:san francisco bay area|bay area|silicon valley)\b`),
	named("San Francisco, CA", `(?i)\bsan francisco\b`),
	named("New York, NY", `(?i)\b(?:new york city|nyc|new york|brooklyn|manhattan)\b`),
	named("Los Angeles, CA", `(?i)\b(?:los angeles|santa monica)\b`),
	named("Seattle, WA", `(?i)\bseattle\b`),
	named("Austin, TX", `(?i)\baustin,?\s+(?:tx|texas)\b`),
	named("Boston, MA", `(?i)\bboston\b`),
	named("Chicago, IL", `(?i)\bchicago\b`),
	named("Denver, CO", `(?i)\bdenver\b`),
	named("Miami, FL", `(?i)\bmiami\b`),
	named("Atlanta, GA", `(?i)\batlanta\b`),
	named("Washington, DC", `(?i)\bwashington,?\s+d\.?c\.?`),
	named("Portland, OR", `(?i)\bportland,?\s+(?:or|oregon)\b`),
	named("Dallas, TX", `(?i)\bdallas\b`),
	named("Houston, TX", `(?i)\bhouston\b`),
	named("Salt Lake City, UT", `(?i)\bsalt lake city\b`),
}

var countryLocations = []locationPattern{
	named("United States", `(?i:\b(?:united states|u\.s\.a\.?))|\bUSA\b|\bUS-based\b`),
	named("United Kingdom", `(?i:\b(?:united kingdom|great britain|england|scotland|wales)\b)|\bUK\b`),
	named("Canada", `(?i)\bcanada\b`),
	named("Australia", `(?i)\baustralia\b`),
	named("Germany", `(?i)\bgermany\b`),
	named("France", `(?i)\bfrance\b`),
	named("Ireland", `(?i)\bireland\b`),
	named("Netherlands", `(?i)\b(?:netherlands|holland)\b`),
	named("Spain", `(?i)\bspain\b`),
	named("Italy", `(?i)\bitaly\b`),
	named("Sweden", `(?i)\bsweden\b`),
	named("India", `(?i)\bindia\b`),
	named("Singapore", `(?i)\bsingapore\b`),
	named("Japan", `(?i)\bjapan\b`),
	named("Brazil", `(?i)\bbrazil\b`),
	named("Mexico", `(?i)\bmexico\b`),
	named("Israel", `(?i)\bisrael\b`),
	named("United Arab Emirates", `(?i:\b(?:united arab emirates|dubai)\b)|\bUAE\b`),
}

var regionLocations = []locationPattern{
	named("North America", `(?i)\bnorth america\b`),
	named("Latin America", `(?i)\b(?:latin america|latam|south america)\b`),
	named("Europe", `(?i:\b(?:europe|european union)\b)|\bEMEA\b`),
	named("Middle East", `(?i:\bmiddle east\b)|\bMENA\b`),
	named("Asia Pacific", `(?i:\b(?:asia pacific|asia-pacific|southeast asia)\b)|\bAPAC\b`),
	named("Africa", `(?i)\bafrica\b`),
}

// basedInRe captures a capitalized place name after "based in" or
// "headquartered in".
var basedInRe = regexp.MustCompile(`(?:[Bb]ased|[Hh]eadquartered|HQ'd|[Ll]ocated)\s+in\s+((?:[A-Z][\p{L}.'-]*)(?:(?:\s|,\s*)[A-Z][\p{L}.'-]*){0,3})`)

// extractLocation tries US places, then countries, then macro-regions, then
// a "based in X" phrase.
func extractLocation(text string) (string, bool) {
	for _, group := range [][]locationPattern{usLocations, countryLocations, regionLocations} {
		for _, p := range group {
			if p.re.MatchString(text) {
				return p.value, true
			}
		}
	}
	if m := basedInRe.FindStringSubmatch(text); m != nil {
		if loc := strings.Trim(m[1], " ,.'"); loc != "" {
			return loc, true
		}
	}
	return "", false
}
