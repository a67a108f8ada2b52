package source

import (
	"net/url"
	"strings"
)

// URLTarget is the external link a URL citation points at
type URLTarget struct {
	URL    string `json:"url"`
	Domain string `json:"domain,omitempty"`
}

// IsURL reports whether a citation source is a web address rather than a document name
func IsURL(sourceName string) bool {
	s := strings.ToLower(strings.TrimSpace(sourceName))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// trackingParams are dropped from cited URLs so equal pages compare equal
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
}

// NormalizeURL cleans a cited URL:
// - lowercases scheme and host
// - removes a leading "www."
// - removes tracking query parameters and the fragment
// - removes a trailing slash from non-root paths
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		parsed.RawQuery = q.Encode()
	}

	if len(parsed.Path) > 1 {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String(), nil
}

// ExtractDomain returns the lowercase host without port or leading "www."
// Example: "https://blog.example.com:8443/x" -> "blog.example.com"
func ExtractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}

// NewURLTarget builds a link target. A URL that fails to parse is kept verbatim:
// a URL citation is always considered found.
func NewURLTarget(sourceName string) *URLTarget {
	raw := strings.TrimSpace(sourceName)
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return &URLTarget{URL: raw}
	}
	domain, _ := ExtractDomain(normalized)
	return &URLTarget{URL: normalized, Domain: domain}
}
