package source

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
)

// Tier records which rule of the matching policy produced a match
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierExtension
	TierDuplicate
	TierContainment
	TierURL
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierExtension:
		return "extension"
	case TierDuplicate:
		return "duplicate_suffix"
	case TierContainment:
		return "containment"
	case TierURL:
		return "url"
	default:
		return "none"
	}
}

// Match is the outcome of resolving a citation source. A zero Match means
// "source not found", which is not an error.
type Match struct {
	Document *document.Document
	URL      *URLTarget
	Tier     Tier
}

// Found reports whether the source resolved to a document or an external link
func (m Match) Found() bool { return m.Document != nil || m.URL != nil }

func (m Match) IsURL() bool { return m.URL != nil }

// duplicateSuffix matches the " (N)" that upload pipelines append to re-uploads
var duplicateSuffix = regexp.MustCompile(`\s*\(\d+\)$`)

// Matcher resolves citation source names against the available documents
type Matcher struct {
	containment bool
}

// Option configures a Matcher
type Option func(*Matcher)

// WithContainment toggles the loose containment tier (enabled by default)
func WithContainment(enabled bool) Option {
	return func(m *Matcher) { m.containment = enabled }
}

func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{containment: true}
	for _, o := range opts {
		o(m)
	}
	return m
}

var defaultMatcher = NewMatcher()

// Resolve uses the default matcher
func Resolve(sourceName string, docs []document.Document) Match {
	return defaultMatcher.Resolve(sourceName, docs)
}

// Resolve applies the tiers in order, first hit wins:
// exact name, extension stripped, duplicate suffix stripped, containment.
// URL sources never look at docs.
func (m *Matcher) Resolve(sourceName string, docs []document.Document) Match {
	if IsURL(sourceName) {
		return Match{URL: NewURLTarget(sourceName), Tier: TierURL}
	}
	src := normalizeName(sourceName)
	if src == "" || len(docs) == 0 {
		return Match{}
	}

	names := make([]string, len(docs))
	for i := range docs {
		names[i] = normalizeName(docs[i].Name)
	}

	tiers := []struct {
		tier Tier
		key  func(string) string
	}{
		{TierExact, func(s string) string { return s }},
		{TierExtension, stripExtension},
		{TierDuplicate, func(s string) string { return stripDuplicate(stripExtension(s)) }},
	}
	for _, t := range tiers {
		want := t.key(src)
		if want == "" {
			continue
		}
		for i, n := range names {
			if n != "" && t.key(n) == want {
				return Match{Document: &docs[i], Tier: t.tier}
			}
		}
	}

	if !m.containment {
		return Match{}
	}
	if i := bestContainment(src, names); i >= 0 {
		return Match{Document: &docs[i], Tier: TierContainment}
	}
	return Match{}
}

// bestContainment picks among documents whose name contains the source or is
// contained by it: longest common prefix first, then closest length, then
// input order.
func bestContainment(src string, names []string) int {
	best, bestPrefix, bestDiff := -1, -1, 0
	for i, n := range names {
		if n == "" || !(strings.Contains(n, src) || strings.Contains(src, n)) {
			continue
		}
		prefix := commonPrefixLen(src, n)
		diff := len(n) - len(src)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || prefix > bestPrefix || (prefix == bestPrefix && diff < bestDiff) {
			best, bestPrefix, bestDiff = i, prefix, diff
		}
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// stripExtension drops the text after the final '.', keeping dot-files intact
func stripExtension(s string) string {
	if i := strings.LastIndex(s, "."); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func stripDuplicate(s string) string {
	return strings.TrimSpace(duplicateSuffix.ReplaceAllString(s, ""))
}
