package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

var testNow = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func registry(text string) model.RegistryProfile {
	return model.RegistryProfile{Results: []model.Item{{Title: "Registry", Text: text}}}
}

func TestResolve_BrilliantDiamondsScenario(t *testing.T) {
	payloads := map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("BRILLIANT DIAMONDS LTD was founded in 2018 and has 25-50 employees."),
		model.SourceFunding:         model.FundingSummary{Summary: "The company raised $2 million in a seed round."},
	}

	patch := Resolve(payloads, testNow)

	require.NotNil(t, patch.FoundedYear)
	assert.Equal(t, 2018, *patch.FoundedYear)
	require.NotNil(t, patch.EmployeeRange)
	assert.Equal(t, "25-50", *patch.EmployeeRange)
	require.NotNil(t, patch.EmployeeMidpoint)
	assert.Equal(t, 37, *patch.EmployeeMidpoint)
	require.NotNil(t, patch.RevenueBand)
	assert.Equal(t, model.BandLow, *patch.RevenueBand)
	require.NotNil(t, patch.Industry)
	assert.Equal(t, "Jewelry & Luxury", *patch.Industry)
}

func TestResolve_PriorityResolution(t *testing.T) {
	payloads := map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("Retailer of diamond engagement rings"),
		model.SourceWebsite:         model.WebsiteContent{URL: "https://x.com", Text: "Cloud software platform and SaaS tools"},
	}
	patch := Resolve(payloads, testNow)
	require.NotNil(t, patch.Industry)
	assert.Equal(t, "Jewelry & Luxury", *patch.Industry)

	// Swap which source carries which text: registry still wins.
	payloads = map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("Cloud software platform and SaaS tools"),
		model.SourceWebsite:         model.WebsiteContent{URL: "https://x.com", Text: "Retailer of diamond engagement rings"},
	}
	patch = Resolve(payloads, testNow)
	require.NotNil(t, patch.Industry)
	assert.Equal(t, "Software", *patch.Industry)
}

func TestResolve_FallsThroughToLowerPriority(t *testing.T) {
	payloads := map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("No useful words here"),
		model.SourceWikipedia:       model.EncyclopediaEntry{Results: []model.Item{{Text: "Established in 1998 in Seattle, Washington."}}},
	}
	patch := Resolve(payloads, testNow)
	require.NotNil(t, patch.FoundedYear)
	assert.Equal(t, 1998, *patch.FoundedYear)
	require.NotNil(t, patch.Location)
	assert.Equal(t, "Seattle, WA", *patch.Location)
}

func TestResolve_EmptyInputLeavesEverythingUnset(t *testing.T) {
	assert.True(t, Resolve(nil, testNow).Empty())
	assert.True(t, Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceWebsite: model.WebsiteContent{URL: "https://a.com"},
	}, testNow).Empty())
}

func TestResolve_NoFundingInfoExcludesRevenue(t *testing.T) {
	patch := Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceFunding: model.FundingSummary{NoFundingInfo: true},
	}, testNow)
	assert.Nil(t, patch.RevenueBand)
}

func TestResolve_RevenueOnlyFromFunding(t *testing.T) {
	patch := Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceWebsite: model.WebsiteContent{URL: "https://a.com", Text: "We raised $150 million"},
	}, testNow)
	assert.Nil(t, patch.RevenueBand)
}

func TestResolve_AddressPrefersBusinessListing(t *testing.T) {
	patch := Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("Registered office: 1 Hatton Garden, London"),
		model.SourceBusinessListing: model.PlaceListing{Places: []model.Place{{
			Name:    "Brilliant Diamonds",
			Address: "100 Main Street, Springfield, IL 62701",
		}}},
	}, testNow)
	require.NotNil(t, patch.Address)
	assert.Equal(t, "100 Main Street, Springfield, IL 62701", *patch.Address)
}

func TestResolve_DescriptionFromWebsite(t *testing.T) {
	long := strings.Repeat("word ", 200)
	patch := Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceWebsite:   model.WebsiteContent{URL: "https://a.com", Description: "  Handmade   rings \n from London "},
		model.SourceAboutPage: model.WebsiteContent{URL: "https://a.com/about", Text: long},
	}, testNow)
	require.NotNil(t, patch.Description)
	assert.Equal(t, "Handmade rings from London", *patch.Description)

	patch = Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceAboutPage: model.WebsiteContent{URL: "https://a.com/about", Text: long},
	}, testNow)
	require.NotNil(t, patch.Description)
	assert.LessOrEqual(t, len([]rune(*patch.Description)), maxDescriptionRunes)
	assert.False(t, strings.HasSuffix(*patch.Description, " "))
}

func TestRevenueBand_Monotonic(t *testing.T) {
	texts := []string{"$2 million", "$8 million", "$30 million", "$150 million"}
	bands := model.RevenueBands()
	rank := func(b string) int {
		for i, v := range bands {
			if v == b {
				return i
			}
		}
		return -1
	}

	prev := -1
	for _, txt := range texts {
		r := rank(extractRevenueBand(txt))
		require.GreaterOrEqual(t, r, 0, txt)
		assert.GreaterOrEqual(t, r, prev, txt)
		prev = r
	}
	assert.Equal(t, model.BandTopTier, extractRevenueBand("$150 million"))
}

func TestRevenueBand_Thresholds(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"no amounts at all", model.BandLow},
		{"$4.9M seed", model.BandLow},
		{"$5M series A", model.BandMid},
		{"$3M seed and $2M bridge", model.BandMid},
		{"$20 million", model.BandHigh},
		{"$99.9m", model.BandHigh},
		{"$1.2 billion valuation", model.BandTopTier},
		{"$1B", model.BandTopTier},
		{"$1,500 million", model.BandTopTier},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRevenueBand(tt.text))
		})
	}
}

func TestExtractEmployees(t *testing.T) {
	tests := []struct {
		text  string
		want  employeeEstimate
		found bool
	}{
		{"we have 25-50 employees", employeeEstimate{"25-50", 37}, true},
		{"10 to 20 staff", employeeEstimate{"10-20", 15}, true},
		{"0-10 employees", employeeEstimate{"0-10", 5}, true},
		{"0-0 employees", employeeEstimate{}, false},
		{"a team of 5–8", employeeEstimate{"5-8", 6}, true},
		{"1,000-5,000 employees", employeeEstimate{"1000-5000", 3000}, true},
		{"8+ employees", employeeEstimate{"1-10", 5}, true},
		{"over 40 employees", employeeEstimate{"11-50", 30}, true},
		{"150+ people", employeeEstimate{"51-200", 125}, true},
		{"more than 500 staff", employeeEstimate{"201-1K", 600}, true},
		{"5000+ employees", employeeEstimate{"1K+", 1500}, true},
		{"a scrappy startup", employeeEstimate{"1-10", 5}, true},
		{"a family-owned jeweller", employeeEstimate{"11-50", 30}, true},
		{"enterprise customers worldwide", employeeEstimate{"201-1K", 600}, true},
		{"a multinational group", employeeEstimate{"1K+", 1500}, true},
		{"nothing about size", employeeEstimate{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := extractEmployees(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFoundedYear(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"Founded in 2018", 2018, true},
		{"established March 1999", 1999, true},
		{"Family jewellers since 1921", 1921, true},
		{"Est. 1885", 1885, true},
		{"2015 - present", 2015, true},
		{"founded 1700", 0, false},
		{"founded in 2099", 0, false},
		{"founded in 2099, then started in 2001", 2001, true},
		{"no year here", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := extractFoundedYear(tt.text, testNow)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Offices in the Bay Area and London", "San Francisco Bay Area", true},
		{"A NYC studio", "New York, NY", true},
		{"Shipping across the UK", "United Kingdom", true},
		{"a duke of something", "", false},
		{"serving customers across Europe", "Europe", true},
		{"We are headquartered in Lisbon, Portugal.", "Lisbon, Portugal", true},
		{"nowhere in particular", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := extractLocation(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAddress(t *testing.T) {
	got, ok := extractAddress("Visit us at 29 Hatton Garden, London EC1N 8DA today")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "29 Hatton Garden"))

	got, ok = extractAddress("Mailing: Austin, TX 78701")
	require.True(t, ok)
	assert.Equal(t, "Austin, TX 78701", got)

	_, ok = extractAddress("no address")
	assert.False(t, ok)
}

func TestExtractIndustry(t *testing.T) {
	got, ok := extractIndustry("Bespoke JEWELLERY and gemstones")
	require.True(t, ok)
	assert.Equal(t, "Jewelry & Luxury", got)

	_, ok = extractIndustry("diamondback bicycles")
	assert.False(t, ok)
}

func TestLoadIndustries_Invalid(t *testing.T) {
	_, err := loadIndustries([]byte("industries: []"))
	assert.Error(t, err)
	_, err = loadIndustries([]byte("industries:\n  - name: X\n"))
	assert.Error(t, err)
	_, err = loadIndustries([]byte("industries: [unclosed"))
	assert.Error(t, err)
}

func TestFoldText_FullWidthDigits(t *testing.T) {
	patch := Resolve(map[model.SourceID]model.SourcePayload{
		model.SourceCompanyRegistry: registry("Founded in ２０１８"),
	}, testNow)
	require.NotNil(t, patch.FoundedYear)
	assert.Equal(t, 2018, *patch.FoundedYear)
}

func TestOrder_AppendsCanonicalRemainder(t *testing.T) {
	got := order(model.SourceFunding)
	assert.Len(t, got, len(model.AllSources()))
	assert.Equal(t, model.SourceFunding, got[0])
	assert.Equal(t, model.SourceWebsite, got[1])
}
