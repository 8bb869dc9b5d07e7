package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/google"
)

// BusinessListing looks the company up in Google Places.
type BusinessListing struct {
	client google.Client
}

// NewBusinessListing creates a BusinessListing adapter.
func NewBusinessListing(client google.Client) *BusinessListing {
	return &BusinessListing{client: client}
}

func (b *BusinessListing) ID() model.SourceID { return model.SourceBusinessListing }

func (b *BusinessListing) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	resp, err := b.client.TextSearch(ctx, q.SearchTerm+" "+q.Domain)
	if err != nil {
		return nil, eris.Wrap(err, "business_listing: text search")
	}

	places := make([]model.Place, 0, len(resp.Places))
	for _, p := range resp.Places {
		name := strings.TrimSpace(p.DisplayName.Text)
		if name == "" {
			continue
		}
		types := p.Types
		if label := p.PrimaryTypeDisplayName.Text; label != "" {
			types = append([]string{label}, types...)
		}
		places = append(places, model.Place{
			Name:        name,
			Address:     strings.TrimSpace(p.FormattedAddress),
			Types:       humanizeTypes(types),
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
			Website:     p.WebsiteURI,
		})
	}
	if len(places) == 0 {
		return nil, noResults(model.SourceBusinessListing, q)
	}
	return model.PlaceListing{Places: places}, nil
}

// humanizeTypes turns place type codes like "jewelry_store" into words and
// drops the generic ones.
func humanizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		switch t {
		case "point_of_interest", "establishment", "store":
			continue
		}
		h := strings.ReplaceAll(t, "_", " ")
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}
