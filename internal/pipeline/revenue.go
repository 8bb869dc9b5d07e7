package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

var fundingAmountRe = regexp.MustCompile(`(?i)\$\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s*(million|billion|mn|bn|m|b)\b`)

// totalFundingMillions sums every dollar amount in text, in millions.
func totalFundingMillions(text string) (float64, bool) {
	var total float64
	found := false
	for _, m := range fundingAmountRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "")+m[2], 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[3]) {
		case "billion", "bn", "b":
			v *= 1000
		}
		total += v
		found = true
	}
	return total, found
}

// bandForFunding maps total raised (millions) to a revenue band.
func bandForFunding(millions float64) string {
	switch {
	case millions >= 100:
		return model.BandTopTier
	case millions >= 20:
		return model.BandHigh
	case millions >= 5:
		return model.BandMid
	}
	return model.BandLow
}

// extractRevenueBand derives a band from a funding summary. A summary that
// mentions no amount yields the lowest band.
func extractRevenueBand(text string) string {
	m, _ := totalFundingMillions(text)
	return bandForFunding(m)
}
