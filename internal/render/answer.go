package render

import (
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/citation"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/locator"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/source"
)

// Status is the resolution outcome of one citation
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusURL      Status = "url"
	// StatusInert marks citations rendered too deep to open a popup; no lookup runs
	StatusInert Status = "inert"
	// StatusPending means the source matched but the PDF engine was not ready
	StatusPending Status = "pending"
)

// Citation is the presentation-facing view of one resolved citation token
type Citation struct {
	Ordinal      int               `json:"ordinal"`
	SourceName   string            `json:"source_name"`
	LocationHint string            `json:"location_hint"`
	Quote        string            `json:"quote"`
	Status       Status            `json:"status"`
	MatchTier    string            `json:"match_tier,omitempty"`
	DocumentID   string            `json:"document_id,omitempty"`
	DocumentName string            `json:"document_name,omitempty"`
	IsURL        bool              `json:"is_url"`
	URL          *source.URLTarget `json:"url,omitempty"`
	Location     *locator.Result   `json:"location,omitempty"`
	// QuoteFound is false when the source matched but the quote could not be pinned
	QuoteFound bool `json:"quote_found"`
}

// Answer is a fully rendered LLM answer
type Answer struct {
	SessionID string             `json:"session_id"`
	Depth     int                `json:"depth"`
	Segments  []citation.Segment `json:"segments"`
	Citations []Citation         `json:"citations"`
	// Retryable is set when at least one citation is pending on the PDF engine
	Retryable bool `json:"retryable"`
}

// Counts tallies citations by status
func (a Answer) Counts() map[Status]int {
	out := make(map[Status]int, len(a.Citations))
	for _, c := range a.Citations {
		out[c.Status]++
	}
	return out
}

// Popup is nested content rendered inside an open popup
type Popup struct {
	Token  citation.PopupToken   `json:"token"`
	Closed []citation.PopupToken `json:"closed,omitempty"`
	Answer Answer                `json:"answer"`
}
