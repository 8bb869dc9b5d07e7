package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Item is the common reduced shape of every source result.
type Item struct {
	Title   string `json:"title,omitempty"`
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Joined returns the item's title, summary and text separated by newlines,
// skipping empty parts.
func (i Item) Joined() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.Title, i.Summary, i.Text} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// PayloadKind tags a SourcePayload variant in its serialized form.
type PayloadKind string

const (
	KindWebsiteContent      PayloadKind = "website_content"
	KindRegistryProfile     PayloadKind = "registry_profile"
	KindFundingSummary      PayloadKind = "funding_summary"
	KindProfessionalProfile PayloadKind = "professional_profile"
	KindSocialMentions      PayloadKind = "social_mentions"
	KindCodePresence        PayloadKind = "code_presence"
	KindEncyclopediaEntry   PayloadKind = "encyclopedia_entry"
	KindPlaceListing        PayloadKind = "place_listing"
)

// SourcePayload is the closed set of adapter result shapes.
type SourcePayload interface {
	Kind() PayloadKind
	Items() []Item
	sourcePayload()
}

// WebsiteContent is a single fetched page.
type WebsiteContent struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (WebsiteContent) Kind() PayloadKind { return KindWebsiteContent }
func (WebsiteContent) sourcePayload()    {}

// Items returns the page as a single item.
func (w WebsiteContent) Items() []Item {
	return []Item{{Title: w.Title, Summary: w.Description, Text: w.Text, URL: w.URL}}
}

// RegistryProfile holds company-registry search results.
type RegistryProfile struct {
	Results []Item `json:"results"`
}

func (RegistryProfile) Kind() PayloadKind { return KindRegistryProfile }
func (RegistryProfile) sourcePayload()    {}
func (r RegistryProfile) Items() []Item   { return r.Results }

// FundingSummary is a research answer about a company's funding history.
// NoFundingInfo is set when the source explicitly found nothing.
type FundingSummary struct {
	Summary       string   `json:"summary"`
	Citations     []string `json:"citations,omitempty"`
	NoFundingInfo bool     `json:"no_funding_info,omitempty"`
}

func (FundingSummary) Kind() PayloadKind { return KindFundingSummary }
func (FundingSummary) sourcePayload()    {}

// Items returns the summary as a single item.
func (f FundingSummary) Items() []Item {
	if f.NoFundingInfo {
		return nil
	}
	return []Item{{Summary: f.Summary}}
}

// ProfessionalProfile holds professional-network search results.
type ProfessionalProfile struct {
	Results []Item `json:"results"`
}

func (ProfessionalProfile) Kind() PayloadKind { return KindProfessionalProfile }
func (ProfessionalProfile) sourcePayload()    {}
func (p ProfessionalProfile) Items() []Item   { return p.Results }

// SocialMentions holds mentions found on one social, video or forum platform.
type SocialMentions struct {
	Platform string `json:"platform"`
	Results  []Item `json:"results"`
}

func (SocialMentions) Kind() PayloadKind { return KindSocialMentions }
func (SocialMentions) sourcePayload()    {}
func (s SocialMentions) Items() []Item   { return s.Results }

// CodePresence holds code-hosting search results.
type CodePresence struct {
	Results []Item `json:"results"`
}

func (CodePresence) Kind() PayloadKind { return KindCodePresence }
func (CodePresence) sourcePayload()    {}
func (c CodePresence) Items() []Item   { return c.Results }

// EncyclopediaEntry holds encyclopedia search results.
type EncyclopediaEntry struct {
	Results []Item `json:"results"`
}

func (EncyclopediaEntry) Kind() PayloadKind { return KindEncyclopediaEntry }
func (EncyclopediaEntry) sourcePayload()    {}
func (e EncyclopediaEntry) Items() []Item   { return e.Results }

// Place is one business listing.
type Place struct {
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Types       []string `json:"types,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	Website     string   `json:"website,omitempty"`
}

// PlaceListing holds business-listing matches.
type PlaceListing struct {
	Places []Place `json:"places"`
}

func (PlaceListing) Kind() PayloadKind { return KindPlaceListing }
func (PlaceListing) sourcePayload()    {}

// Items maps each place to an item whose text carries the address and types.
func (p PlaceListing) Items() []Item {
	items := make([]Item, 0, len(p.Places))
	for _, pl := range p.Places {
		text := pl.Address
		if len(pl.Types) > 0 {
			text = strings.TrimSpace(text + "\n" + strings.Join(pl.Types, ", "))
		}
		items = append(items, Item{Title: pl.Name, Text: text, URL: pl.Website})
	}
	return items
}

// Text joins every item of p into one newline-separated block.
func Text(p SourcePayload) string {
	if p == nil {
		return ""
	}
	var parts []string
	for _, it := range p.Items() {
		if s := it.Joined(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

type envelope struct {
	Kind PayloadKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload serializes p with its kind tag.
func EncodePayload(p SourcePayload) (string, error) {
	if p == nil {
		return "", eris.New("model: encode nil payload")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "model: marshal payload")
	}
	out, err := json.Marshal(envelope{Kind: p.Kind(), Data: data})
	if err != nil {
		return "", eris.Wrap(err, "model: marshal envelope")
	}
	return string(out), nil
}

// DecodePayload parses a payload produced by EncodePayload.
func DecodePayload(raw string) (SourcePayload, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, eris.Wrap(err, "model: unmarshal envelope")
	}

	switch env.Kind {
	case KindWebsiteContent:
		return decodeAs[WebsiteContent](env.Data)
	case KindRegistryProfile:
		return decodeAs[RegistryProfile](env.Data)
	case KindFundingSummary:
		return decodeAs[FundingSummary](env.Data)
	case KindProfessionalProfile:
		return decodeAs[ProfessionalProfile](env.Data)
	case KindSocialMentions:
		return decodeAs[SocialMentions](env.Data)
	case KindCodePresence:
		return decodeAs[CodePresence](env.Data)
	case KindEncyclopediaEntry:
		return decodeAs[EncyclopediaEntry](env.Data)
	case KindPlaceListing:
		return decodeAs[PlaceListing](env.Data)
	}
	return nil, eris.Errorf("model: unknown payload kind %q", env.Kind)
}

func decodeAs[T SourcePayload](data json.RawMessage) (SourcePayload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrapf(err, "model: unmarshal %s", v.Kind())
	}
	return v, nil
}
