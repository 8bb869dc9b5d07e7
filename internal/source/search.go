package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/jina"
)

const searchResultLimit = 5

// Search runs one site-restricted Jina search and wraps the results in the
// payload variant for its source.
type Search struct {
	id     model.SourceID
	client jina.Client
	site   string
	query  func(Query) string
	wrap   func([]model.Item) model.SourcePayload
}

func (s *Search) ID() model.SourceID { return s.id }

// Site returns the domain results are restricted to.
func (s *Search) Site() string { return s.site }

func (s *Search) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	resp, err := s.client.Search(ctx, s.query(q),
		jina.WithSiteFilter(s.site),
		jina.WithLimit(searchResultLimit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: search", s.id)
	}

	items := make([]model.Item, 0, len(resp.Data))
	for _, r := range resp.Data {
		it := model.Item{
			Title:   strings.TrimSpace(r.Title),
			Summary: strings.TrimSpace(r.Description),
			Text:    truncateRunes(strings.TrimSpace(r.Content), maxTextRunes/4),
			URL:     r.URL,
		}
		if it.Joined() != "" {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, noResults(s.id, q)
	}
	return s.wrap(items), nil
}

func quoted(term string) string {
	return fmt.Sprintf("%q", term)
}

// NewRegistrySearch searches company-registry filings.
func NewRegistrySearch(client jina.Client) *Search {
	return &Search{
		id:     model.SourceCompanyRegistry,
		client: client,
		site:   "opencorporates.com",
		query:  func(q Query) string { return quoted(q.SearchTerm) + " company" },
		wrap:   func(items []model.Item) model.SourcePayload { return model.RegistryProfile{Results: items} },
	}
}

// NewLinkedInSearch searches professional-network company pages.
func NewLinkedInSearch(client jina.Client) *Search {
	return &Search{
		id:     model.SourceLinkedIn,
		client: client,
		site:   "linkedin.com",
		query:  func(q Query) string { return quoted(q.SearchTerm) + " company " + q.Domain },
		wrap:   func(items []model.Item) model.SourcePayload { return model.ProfessionalProfile{Results: items} },
	}
}

func newMentions(id model.SourceID, client jina.Client, site, platform string) *Search {
	return &Search{
		id:     id,
		client: client,
		site:   site,
		query:  func(q Query) string { return quoted(q.SearchTerm) + " OR " + quoted(q.Domain) },
		wrap: func(items []model.Item) model.SourcePayload {
			return model.SocialMentions{Platform: platform, Results: items}
		},
	}
}

// NewTwitterSearch searches posts on x.com.
func NewTwitterSearch(client jina.Client) *Search {
	return newMentions(model.SourceTwitter, client, "x.com", "twitter")
}

// NewYouTubeSearch searches videos mentioning the company.
func NewYouTubeSearch(client jina.Client) *Search {
	return newMentions(model.SourceYouTube, client, "youtube.com", "youtube")
}

// NewRedditSearch searches forum threads mentioning the company.
func NewRedditSearch(client jina.Client) *Search {
	return newMentions(model.SourceReddit, client, "reddit.com", "reddit")
}

// NewGitHubSearch searches code-hosting presence for the domain.
func NewGitHubSearch(client jina.Client) *Search {
	return &Search{
		id:     model.SourceGitHub,
		client: client,
		site:   "github.com",
		query:  func(q Query) string { return quoted(q.Domain) + " OR " + quoted(q.SearchTerm) },
		wrap:   func(items []model.Item) model.SourcePayload { return model.CodePresence{Results: items} },
	}
}

// NewWikipediaSearch searches English Wikipedia.
func NewWikipediaSearch(client jina.Client) *Search {
	return &Search{
		id:     model.SourceWikipedia,
		client: client,
		site:   "en.wikipedia.org",
		query:  func(q Query) string { return quoted(q.SearchTerm) + " company" },
		wrap:   func(items []model.Item) model.SourcePayload { return model.EncyclopediaEntry{Results: items} },
	}
}
