package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/firecrawl"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/jina"
)

// AboutPage reads https://<domain>/about through the Jina reader.
type AboutPage struct {
	client jina.Client
}

// NewAboutPage creates an AboutPage adapter.
func NewAboutPage(client jina.Client) *AboutPage {
	return &AboutPage{client: client}
}

func (a *AboutPage) ID() model.SourceID { return model.SourceAboutPage }

func (a *AboutPage) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	target := "https://" + q.Domain + "/about"
	resp, err := a.client.Read(ctx, target)
	if err != nil {
		return nil, eris.Wrap(err, "about_page: read")
	}

	content := strings.TrimSpace(resp.Data.Content)
	if content == "" {
		return nil, noResults(model.SourceAboutPage, q)
	}

	url := resp.Data.URL
	if url == "" {
		url = target
	}
	return model.WebsiteContent{
		URL:         url,
		Title:       strings.TrimSpace(resp.Data.Title),
		Description: strings.TrimSpace(resp.Data.Description),
		Text:        truncateRunes(content, maxTextRunes),
	}, nil
}

// ContactPage scrapes https://<domain>/contact through Firecrawl.
type ContactPage struct {
	client firecrawl.Client
}

// NewContactPage creates a ContactPage adapter.
func NewContactPage(client firecrawl.Client) *ContactPage {
	return &ContactPage{client: client}
}

func (c *ContactPage) ID() model.SourceID { return model.SourceContactPage }

func (c *ContactPage) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	target := "https://" + q.Domain + "/contact"
	resp, err := c.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             target,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "contact_page: scrape")
	}

	md := strings.TrimSpace(resp.Data.Markdown)
	if md == "" {
		return nil, noResults(model.SourceContactPage, q)
	}

	return model.WebsiteContent{
		URL:         target,
		Title:       strings.TrimSpace(resp.Data.Metadata.Title),
		Description: strings.TrimSpace(resp.Data.Metadata.Description),
		Text:        truncateRunes(md, maxTextRunes),
	}, nil
}
