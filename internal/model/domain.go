package model

import (
	"net"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidDomain is returned when input cannot be reduced to a hostname.
var ErrInvalidDomain = eris.New("model: invalid domain")

// NormalizeDomain reduces a URL or hostname to its canonical domain: no
// scheme, no "www." prefix, no port, path or trailing slash, lower-cased.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}
	d = strings.TrimPrefix(d, "www.")
	d = strings.Trim(d, ".")

	if d == "" || !strings.Contains(d, ".") || strings.ContainsAny(d, " \t") {
		return "", eris.Wrapf(ErrInvalidDomain, "%q", raw)
	}
	return d, nil
}

// DisplayNameFromDomain derives a readable name from the first domain label,
// e.g. "brilliant-diamonds.co.uk" becomes "Brilliant Diamonds".
func DisplayNameFromDomain(domain string) string {
	label := domain
	if i := strings.Index(label, "."); i >= 0 {
		label = label[:i]
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return cases.Title(language.English).String(strings.TrimSpace(label))
}
