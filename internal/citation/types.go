package citation

// SegmentType distinguishes the pieces of a tokenized answer
type SegmentType string

const (
	SegmentText     SegmentType = "text"
	SegmentCitation SegmentType = "citation"
	SegmentThinking SegmentType = "thinking"
)

// Token is a parsed citation directive.
// Ordinal is its position among the citations of one render pass.
type Token struct {
	SourceName   string `json:"source_name"`
	LocationHint string `json:"location_hint"`
	Quote        string `json:"quote"`
	Ordinal      int    `json:"ordinal"`
	Raw          string `json:"raw"`
}

// Segment is one span of tokenized answer text.
// Text holds plain text or thinking content; Citation is set for citation segments.
type Segment struct {
	Type     SegmentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	Citation *Token      `json:"citation,omitempty"`
	// Open marks a thinking block whose end marker has not arrived yet
	Open bool `json:"open,omitempty"`
}

// Citations returns the citation tokens of segs in document order
func Citations(segs []Segment) []Token {
	var out []Token
	for _, s := range segs {
		if s.Type == SegmentCitation && s.Citation != nil {
			out = append(out, *s.Citation)
		}
	}
	return out
}
