package citation

import (
	"strings"
)

const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// bracketForm is one of the two interchangeable directive spellings
type bracketForm struct {
	open  string
	close string
}

var forms = []bracketForm{
	{open: "{{citation:", close: "}}"},
	{open: "【citation:", close: "】"},
}

// Tokenize splits answer text into plain text, thinking and citation segments.
// Every citation receives the next ordinal from s; thinking content never does.
// Tokenize is total: any input, including "", yields a valid (possibly empty) result.
func Tokenize(s *Session, text string) []Segment {
	b := &segmentBuilder{}
	for _, part := range splitThinking(text) {
		if part.thinking {
			b.flush()
			b.segs = append(b.segs, Segment{Type: SegmentThinking, Text: part.text, Open: part.open})
			continue
		}
		scanCitations(s, part.text, b)
	}
	b.flush()
	return b.segs
}

// TokenizeBody scans text for citation directives only, leaving any thinking
// markers as literal text. Used for nested content such as popup excerpts.
func TokenizeBody(s *Session, text string) []Segment {
	b := &segmentBuilder{}
	scanCitations(s, text, b)
	b.flush()
	return b.segs
}

type thinkPart struct {
	text     string
	thinking bool
	open     bool
}

// splitThinking separates <think>...</think> blocks from the answer body.
// An unterminated block extends to the end of the text.
func splitThinking(text string) []thinkPart {
	var parts []thinkPart
	rest := text
	for rest != "" {
		start := strings.Index(rest, ThinkStart)
		if start < 0 {
			parts = append(parts, thinkPart{text: rest})
			break
		}
		if start > 0 {
			parts = append(parts, thinkPart{text: rest[:start]})
		}
		rest = rest[start+len(ThinkStart):]
		end := strings.Index(rest, ThinkEnd)
		if end < 0 {
			parts = append(parts, thinkPart{text: rest, thinking: true, open: true})
			break
		}
		parts = append(parts, thinkPart{text: rest[:end], thinking: true})
		rest = rest[end+len(ThinkEnd):]
	}
	return parts
}

// scanCitations is a linear scanner; it never backtracks past a consumed directive
func scanCitations(s *Session, text string, b *segmentBuilder) {
	rest := text
	for rest != "" {
		idx, form := nextOpener(rest)
		if idx < 0 {
			b.text(rest)
			return
		}
		b.text(rest[:idx])
		rest = rest[idx:]

		bodyStart := len(form.open)
		closeAt := findClose(rest[bodyStart:], form.close)
		if closeAt < 0 {
			// No terminator: the opener is literal text, keep scanning after it
			b.text(rest[:bodyStart])
			rest = rest[bodyStart:]
			continue
		}
		raw := rest[:bodyStart+closeAt+len(form.close)]
		body := unescapeClose(rest[bodyStart:bodyStart+closeAt], form.close)
		rest = rest[len(raw):]

		tok, ok := parseDirective(body)
		if !ok {
			s.malformed.Add(1)
			b.text(raw)
			continue
		}
		tok.Raw = raw
		tok.Ordinal = s.NextOrdinal()
		b.citation(tok)
	}
}

func nextOpener(text string) (int, bracketForm) {
	best := -1
	var bestForm bracketForm
	for _, f := range forms {
		if i := strings.Index(text, f.open); i >= 0 && (best < 0 || i < best) {
			best = i
			bestForm = f
		}
	}
	return best, bestForm
}

// findClose returns the offset of the first closer not preceded by a backslash
func findClose(text, closer string) int {
	off := 0
	for {
		i := strings.Index(text[off:], closer)
		if i < 0 {
			return -1
		}
		pos := off + i
		if pos > 0 && text[pos-1] == '\\' {
			off = pos + 1
			continue
		}
		return pos
	}
}

func unescapeClose(body, closer string) string {
	return strings.ReplaceAll(body, `\`+closer, closer)
}

// parseDirective applies the SOURCE|LOCATION|QUOTE grammar. The quote keeps any
// further '|' characters.
func parseDirective(body string) (Token, bool) {
	fields := strings.SplitN(body, "|", 3)
	if len(fields) != 3 {
		return Token{}, false
	}
	src := strings.TrimSpace(fields[0])
	if src == "" {
		return Token{}, false
	}
	return Token{
		SourceName:   src,
		LocationHint: strings.TrimSpace(fields[1]),
		Quote:        strings.TrimSpace(fields[2]),
	}, true
}

type segmentBuilder struct {
	segs []Segment
	buf  strings.Builder
}

func (b *segmentBuilder) text(s string) {
	b.buf.WriteString(s)
}

func (b *segmentBuilder) citation(t Token) {
	b.flush()
	b.segs = append(b.segs, Segment{Type: SegmentCitation, Citation: &t})
}

func (b *segmentBuilder) flush() {
	if b.buf.Len() == 0 {
		return
	}
	b.segs = append(b.segs, Segment{Type: SegmentText, Text: b.buf.String()})
	b.buf.Reset()
}
