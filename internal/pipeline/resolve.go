package pipeline

import (
	"time"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// Source priority per attribute. Sources not named are consulted afterwards
// in canonical order.
var (
	industryPriority = order(
		model.SourceCompanyRegistry, model.SourceLinkedIn, model.SourceWebsite,
		model.SourceAboutPage, model.SourceBusinessListing, model.SourceWikipedia,
		model.SourceContactPage, model.SourceFunding,
	)
	locationPriority = order(
		model.SourceCompanyRegistry, model.SourceLinkedIn, model.SourceBusinessListing,
		model.SourceAboutPage, model.SourceWebsite, model.SourceContactPage,
		model.SourceWikipedia,
	)
	employeesPriority = order(
		model.SourceCompanyRegistry, model.SourceLinkedIn, model.SourceAboutPage,
		model.SourceWebsite, model.SourceWikipedia,
	)
	foundedPriority = order(
		model.SourceCompanyRegistry, model.SourceWikipedia, model.SourceLinkedIn,
		model.SourceAboutPage, model.SourceWebsite,
	)
	addressPriority = order(
		model.SourceBusinessListing, model.SourceContactPage, model.SourceCompanyRegistry,
		model.SourceWebsite, model.SourceAboutPage,
	)
	descriptionPriority = order(
		model.SourceWebsite, model.SourceAboutPage, model.SourceLinkedIn,
		model.SourceCompanyRegistry, model.SourceWikipedia,
	)
)

// order appends every source not in first, in canonical order.
func order(first ...model.SourceID) []model.SourceID {
	seen := make(map[model.SourceID]bool, len(first))
	out := make([]model.SourceID, 0, len(model.AllSources()))
	for _, s := range first {
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range model.AllSources() {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Resolve merges successful payloads into an attribute patch. For each
// attribute the first source in its priority list that yields a value wins;
// attributes no source yields stay nil.
func Resolve(payloads map[model.SourceID]model.SourcePayload, now time.Time) model.AttributePatch {
	texts := make(map[model.SourceID]string, len(payloads))
	for id, p := range payloads {
		if p != nil {
			texts[id] = foldText(p)
		}
	}

	var patch model.AttributePatch

	if v, ok := firstString(industryPriority, texts, extractIndustry); ok {
		patch.Industry = &v
	}
	if v, ok := firstString(locationPriority, texts, extractLocation); ok {
		patch.Location = &v
	}
	if v, ok := firstString(addressPriority, texts, extractAddress); ok {
		patch.Address = &v
	}

	for _, id := range employeesPriority {
		if t, ok := texts[id]; ok && t != "" {
			if est, ok := extractEmployees(t); ok {
				patch.EmployeeRange = &est.Range
				patch.EmployeeMidpoint = &est.Midpoint
				break
			}
		}
	}

	for _, id := range foundedPriority {
		if t, ok := texts[id]; ok && t != "" {
			if y, ok := extractFoundedYear(t, now); ok {
				patch.FoundedYear = &y
				break
			}
		}
	}

	if f, ok := payloads[model.SourceFunding].(model.FundingSummary); ok && !f.NoFundingInfo {
		band := extractRevenueBand(texts[model.SourceFunding])
		patch.RevenueBand = &band
	}

	for _, id := range descriptionPriority {
		if d, ok := extractDescription(payloads[id]); ok {
			patch.Description = &d
			break
		}
	}

	return patch
}

func firstString(priority []model.SourceID, texts map[model.SourceID]string, extract func(string) (string, bool)) (string, bool) {
	for _, id := range priority {
		t, ok := texts[id]
		if !ok || t == "" {
			continue
		}
		if v, ok := extract(t); ok {
			return v, true
		}
	}
	return "", false
}
