package source

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

const (
	maxBodyBytes = 1 << 20
	maxTextRunes = 20000
	userAgent    = "Mozilla/5.0 (compatible; RadarBot/1.0)"
)

// Website fetches the company's home page directly and extracts the title,
// meta description and visible text.
type Website struct {
	client *http.Client
	scheme string
}

// NewWebsite creates a Website adapter. A nil client gets a default with
// dial and TLS timeouts.
func NewWebsite(client *http.Client) *Website {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &Website{client: client, scheme: "https"}
}

func (w *Website) ID() model.SourceID { return model.SourceWebsite }

func (w *Website) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	target := w.scheme + "://" + q.Domain
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "website: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "website: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "website: read body")
	}

	if kind := detectBlock(resp, body); kind != "" {
		return nil, eris.Errorf("website: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("website: status %d", resp.StatusCode)
	}

	page, err := parseHTML(target, body)
	if err != nil {
		return nil, err
	}
	if page.Title == "" && page.Description == "" && page.Text == "" {
		return nil, noResults(model.SourceWebsite, q)
	}
	return page, nil
}

func parseHTML(url string, body []byte) (model.WebsiteContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.WebsiteContent{}, eris.Wrap(err, "website: parse html")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if desc == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	doc.Find("script, style, noscript, nav, footer, svg, iframe").Remove()
	text := collapseSpace(doc.Find("body").Text())

	return model.WebsiteContent{
		URL:         url,
		Title:       title,
		Description: strings.TrimSpace(desc),
		Text:        truncateRunes(text, maxTextRunes),
	}, nil
}

// detectBlock reports the kind of anti-bot interstitial in a response, or "".
func detectBlock(resp *http.Response, body []byte) string {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return "cloudflare"
		}
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "checking your browser") || strings.Contains(lower, "cf-browser-verification"):
		return "cloudflare"
	case strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "h-captcha"):
		return "captcha"
	case len(body) < 2000 && strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript"):
		return "js_shell"
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
