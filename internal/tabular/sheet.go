package tabular

import (
	"strings"
)

// RowUnset means the citation named no row; the quote decides instead
const RowUnset = 0

// MatchMethod records how the highlighted row was chosen
type MatchMethod string

const (
	MatchNone  MatchMethod = ""
	MatchRow   MatchMethod = "row"
	MatchQuote MatchMethod = "quote"
)

// Row is a data row with its 1-based visual number (the header is row 1)
type Row struct {
	Number int      `json:"number"`
	Cells  []string `json:"cells"`
}

// Sheet is the parsed content of one sheet
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// View is what a consumer needs to scroll to and highlight the cited row.
// HighlightIndex indexes Rows and is -1 when nothing matched.
type View struct {
	Sheet
	SheetFound     bool        `json:"sheet_found"`
	HighlightIndex int         `json:"highlight_index"`
	HighlightRow   int         `json:"highlight_row,omitempty"`
	MatchedBy      MatchMethod `json:"matched_by,omitempty"`
}

// Highlighted returns the highlighted row, if any
func (v View) Highlighted() (Row, bool) {
	if v.HighlightIndex < 0 || v.HighlightIndex >= len(v.Rows) {
		return Row{}, false
	}
	return v.Rows[v.HighlightIndex], true
}

// SelectSheet picks the first sheet whose name contains name, case-insensitively.
// With no name, or no match, the first sheet is used; found reports whether the
// requested name was honoured.
func SelectSheet(raw, name string) (Sheet, bool) {
	sheets := splitSheets(raw)
	want := strings.ToLower(strings.TrimSpace(name))

	chosen := sheets[0]
	found := want == ""
	if want != "" {
		for _, s := range sheets {
			if s.name != "" && strings.Contains(strings.ToLower(s.name), want) {
				chosen = s
				found = true
				break
			}
		}
	}
	return parseSheet(chosen), found
}

func parseSheet(rs rawSheet) Sheet {
	sheet := Sheet{Name: rs.name}
	lines := nonBlankLines(rs.body)
	if len(lines) == 0 {
		return sheet
	}
	delim := DetectDelimiter(lines[0])
	sheet.Headers = ParseLine(lines[0], delim)
	sheet.Rows = make([]Row, 0, len(lines)-1)
	for i, l := range lines[1:] {
		sheet.Rows = append(sheet.Rows, Row{Number: i + 2, Cells: ParseLine(l, delim)})
	}
	return sheet
}

// Resolve selects the sheet and the row to highlight. An explicit row number
// inside the data range wins; otherwise the first row containing the quote is
// used. The result depends only on the inputs.
func Resolve(raw, sheetName string, rowNumber int, quote string) View {
	sheet, found := SelectSheet(raw, sheetName)
	v := View{Sheet: sheet, SheetFound: found, HighlightIndex: -1}

	if idx := rowNumber - 2; rowNumber != RowUnset && idx >= 0 && idx < len(sheet.Rows) {
		v.setHighlight(idx, MatchRow)
		return v
	}
	if idx := FindQuote(sheet.Rows, quote); idx >= 0 {
		v.setHighlight(idx, MatchQuote)
	}
	return v
}

func (v *View) setHighlight(idx int, by MatchMethod) {
	v.HighlightIndex = idx
	v.HighlightRow = v.Rows[idx].Number
	v.MatchedBy = by
}

// FindQuote returns the index of the first row whose joined cell text contains
// quote, ignoring case, or -1. An empty quote matches nothing.
func FindQuote(rows []Row, quote string) int {
	q := strings.ToLower(strings.TrimSpace(quote))
	if q == "" {
		return -1
	}
	for i, r := range rows {
		if strings.Contains(strings.ToLower(strings.Join(r.Cells, " ")), q) {
			return i
		}
	}
	return -1
}
