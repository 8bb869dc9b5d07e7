package source

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/config"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/firecrawl"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/google"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/jina"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/perplexity"
)

// Clients are the transports adapters are built on. A nil client marks the
// transport as unconfigured.
type Clients struct {
	Jina       jina.Client
	Firecrawl  firecrawl.Client
	Perplexity perplexity.Client
	Google     google.Client
	HTTP       *http.Client
}

// NewClients builds a client for every transport that has credentials.
func NewClients(cfg *config.Config) Clients {
	var c Clients
	if cfg.Jina.Key != "" {
		var opts []jina.Option
		if cfg.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		if cfg.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		c.Jina = jina.NewClient(cfg.Jina.Key, opts...)
	}
	if cfg.Firecrawl.Key != "" {
		var opts []firecrawl.Option
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		c.Firecrawl = firecrawl.NewClient(cfg.Firecrawl.Key, opts...)
	}
	if cfg.Perplexity.Key != "" {
		var opts []perplexity.Option
		if cfg.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		if cfg.Perplexity.Model != "" {
			opts = append(opts, perplexity.WithModel(cfg.Perplexity.Model))
		}
		c.Perplexity = perplexity.NewClient(cfg.Perplexity.Key, opts...)
	}
	if cfg.Google.Key != "" {
		var opts []google.Option
		if cfg.Google.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.Google.BaseURL))
		}
		c.Google = google.NewClient(cfg.Google.Key, opts...)
	}
	return c
}

// Registry is the configured adapter set in canonical source order.
type Registry struct {
	adapters []Adapter
	jinaOK   bool
}

// NewRegistry builds all twelve adapters. Adapters whose transport is
// missing are replaced by never-ready stand-ins so they still produce a
// failed raw record. Each transport gets its own rate limiter.
func NewRegistry(cfg config.EnrichConfig, c Clients) *Registry {
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	webLimiter := NewLimiter(rps, burst)
	jinaLimiter := NewLimiter(rps, burst)
	firecrawlLimiter := NewLimiter(rps, burst)
	perplexityLimiter := NewLimiter(rps, burst)
	googleLimiter := NewLimiter(rps, burst)

	r := &Registry{jinaOK: c.Jina != nil}
	add := func(a Adapter) { r.adapters = append(r.adapters, a) }

	add(WithLimiter(NewWebsite(c.HTTP), webLimiter))

	if c.Jina != nil {
		add(WithLimiter(NewAboutPage(c.Jina), jinaLimiter))
	} else {
		add(Unavailable(model.SourceAboutPage, "jina.key is not set"))
	}

	if c.Firecrawl != nil {
		add(WithLimiter(NewContactPage(c.Firecrawl), firecrawlLimiter))
	} else {
		add(Unavailable(model.SourceContactPage, "firecrawl.key is not set"))
	}

	if c.Jina != nil {
		add(WithLimiter(NewRegistrySearch(c.Jina), jinaLimiter))
	} else {
		add(Unavailable(model.SourceCompanyRegistry, "jina.key is not set"))
	}

	if c.Google != nil {
		add(WithLimiter(NewBusinessListing(c.Google), googleLimiter))
	} else {
		add(Unavailable(model.SourceBusinessListing, "google.key is not set"))
	}

	if c.Perplexity != nil {
		add(WithLimiter(NewFunding(c.Perplexity), perplexityLimiter))
	} else {
		add(Unavailable(model.SourceFunding, "perplexity.key is not set"))
	}

	searches := []struct {
		id  model.SourceID
		new func(jina.Client) *Search
	}{
		{model.SourceLinkedIn, NewLinkedInSearch},
		{model.SourceTwitter, NewTwitterSearch},
		{model.SourceYouTube, NewYouTubeSearch},
		{model.SourceReddit, NewRedditSearch},
		{model.SourceGitHub, NewGitHubSearch},
		{model.SourceWikipedia, NewWikipediaSearch},
	}
	for _, s := range searches {
		if c.Jina != nil {
			add(WithLimiter(s.new(c.Jina), jinaLimiter))
		} else {
			add(Unavailable(s.id, "jina.key is not set"))
		}
	}

	for _, a := range r.adapters {
		if err := Ready(a); err != nil {
			zap.L().Warn("source: adapter not configured",
				zap.String("source", string(a.ID())),
				zap.Error(err),
			)
		}
	}
	return r
}

// Adapters returns the adapters in canonical order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Preflight fails when the shared search/reader backend has no credentials.
// Eight of the twelve sources depend on it, so enrichment without it is an
// orchestration failure rather than a set of adapter failures.
func (r *Registry) Preflight(context.Context) error {
	if !r.jinaOK {
		return eris.Wrap(ErrNotConfigured, "source: fetch backend jina.key is not set")
	}
	return nil
}
