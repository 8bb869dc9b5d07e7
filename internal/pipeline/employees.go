package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

type employeeEstimate struct {
	Range    string
	Midpoint int
}

var (
	employeeRangeRe = regexp.MustCompile(`(?i)\b(\d[\d,]*)\s*(?:-|–|—|to)\s*(\d[\d,]*)\s+(?:employees|staff|people|team members)\b`)
	teamOfRangeRe   = regexp.MustCompile(`(?i)\bteam of\s+(\d[\d,]*)\s*(?:-|–|—|to)\s*(\d[\d,]*)\b`)
	employeePlusRe  = regexp.MustCompile(`(?i)\b(\d[\d,]*)\+\s*(?:employees|staff|people|team members)\b`)
	employeeOverRe  = regexp.MustCompile(`(?i)\b(?:over|more than)\s+(\d[\d,]*)\s+(?:employees|staff|people|team members)\b`)
)

// employeeBuckets map an open-ended lower bound to a range label.
var employeeBuckets = []struct {
	below    int
	label    string
	midpoint int
}{
	{10, "1-10", 5},
	{50, "11-50", 30},
	{200, "51-200", 125},
	{1000, "201-1K", 600},
}

var employeeKeywords = []struct {
	re  *regexp.Regexp
	est employeeEstimate
}{
	{regexp.MustCompile(`(?i)\b(?:multinational|fortune 500|global enterprise)\b`), employeeEstimate{"1K+", 1500}},
	{regexp.MustCompile(`(?i)\benterprise\b`), employeeEstimate{"201-1K", 600}},
	{regexp.MustCompile(`(?i)\b(?:mid-size|mid-sized|midsize)\b`), employeeEstimate{"51-200", 125}},
	{regexp.MustCompile(`(?i)\b(?:family-owned|family owned|small business)\b`), employeeEstimate{"11-50", 30}},
	{regexp.MustCompile(`(?i)\b(?:startup|start-up|small team)\b`), employeeEstimate{"1-10", 5}},
}

func atoiComma(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n, err == nil
}

func bucketFor(n int) employeeEstimate {
	for _, b := range employeeBuckets {
		if n < b.below {
			return employeeEstimate{b.label, b.midpoint}
		}
	}
	return employeeEstimate{"1K+", 1500}
}

// extractEmployees reads an explicit range first, then an open-ended count,
// then a size keyword.
func extractEmployees(text string) (employeeEstimate, bool) {
	for _, re := range []*regexp.Regexp{employeeRangeRe, teamOfRangeRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			lo, ok1 := atoiComma(m[1])
			hi, ok2 := atoiComma(m[2])
			if ok1 && ok2 && lo >= 0 && hi > 0 && hi >= lo {
				return employeeEstimate{
					Range:    strconv.Itoa(lo) + "-" + strconv.Itoa(hi),
					Midpoint: (lo + hi) / 2,
				}, true
			}
		}
	}
	for _, re := range []*regexp.Regexp{employeePlusRe, employeeOverRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, ok := atoiComma(m[1]); ok && n > 0 {
				return bucketFor(n), true
			}
		}
	}
	for _, k := range employeeKeywords {
		if k.re.MatchString(text) {
			return k.est, true
		}
	}
	return employeeEstimate{}, false
}
