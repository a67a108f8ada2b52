package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workbook = `--- [Sheet: Inputs] ---
Item,Qty
Bricks,500

--- [Sheet: Summary] ---
Area,Value,Unit
Ground floor,120,m2
First floor,138,m2
Total,258,m2
--- [Sheet: Notes &amp; Refs] ---
Note
"See ""Annex A"", page 2"
`

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{"simple", "a,b,c", ',', []string{"a", "b", "c"}},
		{"quoted delimiter", `"Smith, J",42`, ',', []string{"Smith, J", "42"}},
		{"doubled quote", `"say ""hi""",x`, ',', []string{`say "hi"`, "x"}},
		{"tabs keep commas", "a,b\tc", '\t', []string{"a,b", "c"}},
		{"entities", "&lt;b&gt;,&quot;q&quot;,A &amp; B,&amp;lt;", ',', []string{"<b>", `"q"`, "A & B", "&lt;"}},
		{"empty cells", ",,", ',', []string{"", "", ""}},
		{"empty line", "", ',', []string{""}},
		{"unterminated quote", `"open,still`, ',', []string{"open,still"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line, tt.delim))
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', DetectDelimiter("a\tb,c"))
	assert.Equal(t, ',', DetectDelimiter("a,b"))
	assert.Equal(t, ',', DetectDelimiter(""))
}

func TestSheetNames(t *testing.T) {
	assert.Equal(t, []string{"Inputs", "Summary", "Notes &amp; Refs"}, SheetNames(workbook))
	assert.Nil(t, SheetNames("a,b\n1,2"))
}

func TestResolveExplicitRow(t *testing.T) {
	v := Resolve(workbook, "Summary", 4, "258")

	assert.True(t, v.SheetFound)
	assert.Equal(t, "Summary", v.Name)
	assert.Equal(t, []string{"Area", "Value", "Unit"}, v.Headers)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, 2, v.HighlightIndex)
	assert.Equal(t, 4, v.HighlightRow)
	assert.Equal(t, MatchRow, v.MatchedBy)

	row, ok := v.Highlighted()
	require.True(t, ok)
	assert.Equal(t, []string{"Total", "258", "m2"}, row.Cells)
}

func TestResolveQuoteFallback(t *testing.T) {
	v := Resolve(workbook, "summary", RowUnset, "FIRST FLOOR")
	assert.Equal(t, 1, v.HighlightIndex)
	assert.Equal(t, 3, v.HighlightRow)
	assert.Equal(t, MatchQuote, v.MatchedBy)
}

func TestResolveRowOutOfRangeUsesQuote(t *testing.T) {
	v := Resolve(workbook, "Summary", 40, "ground floor 120")
	assert.Equal(t, 0, v.HighlightIndex)
	assert.Equal(t, MatchQuote, v.MatchedBy)

	v = Resolve(workbook, "Summary", 1, "")
	assert.Equal(t, -1, v.HighlightIndex)
	assert.Equal(t, MatchNone, v.MatchedBy)
	_, ok := v.Highlighted()
	assert.False(t, ok)
}

func TestResolveSheetSelection(t *testing.T) {
	v := Resolve(workbook, "", RowUnset, "")
	assert.Equal(t, "Inputs", v.Name)
	assert.True(t, v.SheetFound)

	v = Resolve(workbook, "Missing", RowUnset, "bricks")
	assert.Equal(t, "Inputs", v.Name)
	assert.False(t, v.SheetFound)
	assert.Equal(t, 0, v.HighlightIndex)

	v = Resolve(workbook, "notes", RowUnset, "annex a")
	assert.Equal(t, []string{`See "Annex A", page 2`}, v.Rows[0].Cells)
	assert.Equal(t, 0, v.HighlightIndex)
}

func TestResolveWithoutMarkers(t *testing.T) {
	raw := "Name\tScore\r\nAda\t91\r\n\r\nLin\t88\r\n"
	v := Resolve(raw, "", RowUnset, "lin")
	assert.Empty(t, v.Name)
	assert.Equal(t, []string{"Name", "Score"}, v.Headers)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, 3, v.Rows[1].Number)
	assert.Equal(t, 1, v.HighlightIndex)
}

func TestResolveEmptyInput(t *testing.T) {
	v := Resolve("", "Summary", 3, "x")
	assert.Empty(t, v.Rows)
	assert.Equal(t, -1, v.HighlightIndex)
	assert.False(t, v.SheetFound)
}

func TestRowNumberRoundTrip(t *testing.T) {
	sheet, _ := SelectSheet(workbook, "Summary")
	for i, r := range sheet.Rows {
		assert.Equal(t, i+2, r.Number)
		v := Resolve(workbook, "Summary", r.Number, "")
		assert.Equal(t, i, v.HighlightIndex)
	}
}

func TestResolveIdempotent(t *testing.T) {
	a := Resolve(workbook, "Summary", RowUnset, "258")
	b := Resolve(workbook, "Summary", RowUnset, "258")
	assert.Equal(t, a, b)
}
