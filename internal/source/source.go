// Package source holds the twelve external-source adapters. Each adapter
// issues exactly one external request per Fetch and keeps no state between
// calls.
package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

var (
	// ErrNoResults is returned when a source answered but had nothing for the
	// company.
	ErrNoResults = eris.New("source: no results")
	// ErrNotConfigured is returned by adapters whose credentials are missing.
	ErrNotConfigured = eris.New("source: not configured")
)

// Query is the input to an adapter.
type Query struct {
	Domain string
	Name   string
	// SearchTerm is the free-text query for independent-content sources.
	SearchTerm string
}

// NewQuery builds a Query for a company, deriving the search term from the
// display name or, failing that, from the domain.
func NewQuery(domain, name string) Query {
	term := strings.TrimSpace(name)
	if term == "" {
		term = model.DisplayNameFromDomain(domain)
	}
	return Query{Domain: domain, Name: name, SearchTerm: term}
}

// Adapter fetches one source's payload for a company.
type Adapter interface {
	ID() model.SourceID
	Fetch(ctx context.Context, q Query) (model.SourcePayload, error)
}

// Readier is implemented by adapters that can report missing credentials
// before any network call is made.
type Readier interface {
	Ready() error
}

// Ready returns the adapter's readiness, treating adapters without a Ready
// method as always ready.
func Ready(a Adapter) error {
	if r, ok := a.(Readier); ok {
		return r.Ready()
	}
	return nil
}

func noResults(id model.SourceID, q Query) error {
	return eris.Wrapf(ErrNoResults, "%s: nothing found for %s", id, q.Domain)
}

// unavailable stands in for an adapter whose transport has no credentials.
type unavailable struct {
	id     model.SourceID
	reason string
}

// Unavailable returns an adapter that is never ready and fails every fetch.
func Unavailable(id model.SourceID, reason string) Adapter {
	return unavailable{id: id, reason: reason}
}

func (u unavailable) ID() model.SourceID { return u.id }

func (u unavailable) Ready() error {
	return eris.Wrapf(ErrNotConfigured, "%s: %s", u.id, u.reason)
}

func (u unavailable) Fetch(context.Context, Query) (model.SourcePayload, error) {
	return nil, u.Ready()
}
