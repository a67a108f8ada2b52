package tabular

import (
	"regexp"
	"strings"
)

// sheetMarker matches the "--- [Sheet: name] ---" lines the upload pipeline
// writes between sheets of a workbook
var sheetMarker = regexp.MustCompile(`(?m)^[ \t]*---[ \t]*\[Sheet:[ \t]*(.*?)[ \t]*\][ \t]*---[ \t]*\r?$`)

// entityDecoder decodes the escapes the extractor writes into cells. A single
// pass keeps "&amp;lt;" as the literal text "&lt;".
var entityDecoder = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&amp;", "&")

// rawSheet is one marker-delimited section of raw text
type rawSheet struct {
	name string
	body string
}

// splitSheets cuts raw text at sheet markers. Text before the first marker is
// dropped when markers exist; with no markers the whole text is one unnamed sheet.
func splitSheets(raw string) []rawSheet {
	locs := sheetMarker.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return []rawSheet{{body: raw}}
	}
	sheets := make([]rawSheet, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sheets = append(sheets, rawSheet{
			name: strings.TrimSpace(raw[loc[2]:loc[3]]),
			body: raw[loc[1]:end],
		})
	}
	return sheets
}

// SheetNames lists the sheets declared in raw text, in order
func SheetNames(raw string) []string {
	var names []string
	for _, s := range splitSheets(raw) {
		if s.name != "" {
			names = append(names, s.name)
		}
	}
	return names
}

// DetectDelimiter returns tab when the header line has one, else comma
func DetectDelimiter(header string) rune {
	if strings.ContainsRune(header, '\t') {
		return '\t'
	}
	return ','
}

// ParseLine splits one line into cells. Double quotes toggle quoted mode, in
// which the delimiter is literal text; a doubled quote inside quoted mode is a
// literal quote. Cells are entity-decoded and trimmed.
func ParseLine(line string, delim rune) []string {
	var (
		cells    []string
		cur      strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			cells = append(cells, cleanCell(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(cells, cleanCell(cur.String()))
}

func cleanCell(s string) string {
	return strings.TrimSpace(entityDecoder.Replace(s))
}

// nonBlankLines splits on newlines, strips carriage returns and drops blank lines
func nonBlankLines(body string) []string {
	var out []string
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
