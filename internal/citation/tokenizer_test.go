package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBraceForm(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "Value {{citation:data.xlsx|Sheet: Summary, Row 4|258}} total")

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Type: SegmentText, Text: "Value "}, segs[0])
	require.Equal(t, SegmentCitation, segs[1].Type)
	assert.Equal(t, "data.xlsx", segs[1].Citation.SourceName)
	assert.Equal(t, "Sheet: Summary, Row 4", segs[1].Citation.LocationHint)
	assert.Equal(t, "258", segs[1].Citation.Quote)
	assert.Equal(t, 0, segs[1].Citation.Ordinal)
	assert.Equal(t, "{{citation:data.xlsx|Sheet: Summary, Row 4|258}}", segs[1].Citation.Raw)
	assert.Equal(t, " total", segs[2].Text)
}

func TestTokenizeCJKForm(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "面积【citation:plan.pdf|Page 3|net floor area】。")

	toks := Citations(segs)
	require.Len(t, toks, 1)
	assert.Equal(t, "plan.pdf", toks[0].SourceName)
	assert.Equal(t, "Page 3", toks[0].LocationHint)
	assert.Equal(t, "net floor area", toks[0].Quote)
	assert.Equal(t, "面积", segs[0].Text)
	assert.Equal(t, "。", segs[2].Text)
}

func TestTokenizeMultilineQuoteAndPipes(t *testing.T) {
	s := NewSession(nil)
	toks := Citations(Tokenize(s, "{{citation:a.txt|Para 2|line one\nline | two}}"))
	require.Len(t, toks, 1)
	assert.Equal(t, "line one\nline | two", toks[0].Quote)
}

func TestTokenizeNonGreedy(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "{{citation:a.txt|p|one}} and {{citation:b.txt|p|two}}")
	toks := Citations(segs)
	require.Len(t, toks, 2)
	assert.Equal(t, "one", toks[0].Quote)
	assert.Equal(t, "two", toks[1].Quote)
	assert.Equal(t, " and ", segs[1].Text)
}

func TestTokenizeEscapedCloser(t *testing.T) {
	s := NewSession(nil)
	toks := Citations(Tokenize(s, `{{citation:a.txt|p|set \}} literal}}`))
	require.Len(t, toks, 1)
	assert.Equal(t, "set }} literal", toks[0].Quote)
}

func TestTokenizeMalformedDegradesToText(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		malformed int
	}{
		{"two fields", "see {{citation:a.txt|only}} here", 1},
		{"empty source", "see {{citation: |p|q}} here", 1},
		{"no closer", "see {{citation:a.txt|p|q here", 0},
		{"cjk two fields", "see 【citation:a|b】 here", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(nil)
			segs := Tokenize(s, tt.in)
			require.Len(t, segs, 1)
			assert.Equal(t, SegmentText, segs[0].Type)
			assert.Equal(t, tt.in, segs[0].Text)
			assert.Equal(t, 0, s.Issued())
			assert.Equal(t, tt.malformed, s.Malformed())
		})
	}
}

func TestTokenizeUnclosedOpenerThenValidDirective(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "【citation:x {{citation:a.txt|p|q}}")
	toks := Citations(segs)
	require.Len(t, toks, 1)
	assert.Equal(t, "a.txt", toks[0].SourceName)
	assert.Equal(t, "【citation:x ", segs[0].Text)
}

func TestTokenizeThinkingBlock(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "<think>reasoning here</think>Answer {{citation:a.txt|Para 1|hello}}")

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Type: SegmentThinking, Text: "reasoning here"}, segs[0])
	assert.Equal(t, "Answer ", segs[1].Text)
	require.NotNil(t, segs[2].Citation)
	assert.Equal(t, 0, segs[2].Citation.Ordinal)
	assert.Equal(t, "hello", segs[2].Citation.Quote)
}

func TestTokenizeThinkingDoesNotConsumeOrdinals(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "<think>{{citation:a.txt|p|hidden}}</think>{{citation:b.txt|p|shown}}")

	require.Len(t, segs, 2)
	assert.Equal(t, SegmentThinking, segs[0].Type)
	assert.Equal(t, "{{citation:a.txt|p|hidden}}", segs[0].Text)
	assert.Equal(t, 0, segs[1].Citation.Ordinal)
	assert.Equal(t, 1, s.Issued())
}

func TestTokenizeUnterminatedThinking(t *testing.T) {
	s := NewSession(nil)
	segs := Tokenize(s, "Intro <think>still going")
	require.Len(t, segs, 2)
	assert.Equal(t, "Intro ", segs[0].Text)
	assert.Equal(t, Segment{Type: SegmentThinking, Text: "still going", Open: true}, segs[1])
}

func TestTokenizeEmpty(t *testing.T) {
	s := NewSession(nil)
	assert.Empty(t, Tokenize(s, ""))
	assert.Empty(t, TokenizeBody(s, ""))
}

func TestOrdinalMonotonicity(t *testing.T) {
	text := "| a | {{citation:x.pdf|Page 1|aaa}} |\n| b | 【citation:y.csv|Row 2|bbb】 |\n" +
		"{{citation:broken}} {{citation:z.txt||ccc}} {{citation:https://example.com|web|ddd}}"
	s := NewSession(nil)
	toks := Citations(Tokenize(s, text))

	require.Len(t, toks, 4)
	for i, tok := range toks {
		assert.Equal(t, i, tok.Ordinal)
	}
}

func TestTokenizeIdempotentAfterReset(t *testing.T) {
	text := "A {{citation:a.txt|p|x}} B {{citation:b.txt|p|y}}"
	s := NewSession(nil)
	first := Tokenize(s, text)
	s.Reset()
	second := Tokenize(s, text)
	assert.Equal(t, first, second)
}

func TestTokenizeBodyKeepsThinkMarkers(t *testing.T) {
	s := NewSession(nil)
	segs := TokenizeBody(s, "<think>x</think>{{citation:a.txt|p|q}}")
	require.Len(t, segs, 2)
	assert.Equal(t, "<think>x</think>", segs[0].Text)
}
