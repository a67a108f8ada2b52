package locator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tabular"
)

var (
	pagePattern  = regexp.MustCompile(`(?i)page\s*(\d+)`)
	rowPattern   = regexp.MustCompile(`(?i)row\s*(\d+)`)
	sheetPattern = regexp.MustCompile(`(?i)sheet\s*:\s*([^,"';|]+)`)
)

// Hint is the structured form of a free-text location hint
type Hint struct {
	Page  int
	Sheet string
	Row   int
}

// ParseHint extracts page, sheet and row from a location hint. Absent values
// default to page 1, no sheet and tabular.RowUnset; it never fails.
func ParseHint(s string) Hint {
	h := Hint{Page: 1, Row: tabular.RowUnset}
	if m := pagePattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 1 {
			h.Page = n
		}
	}
	if m := rowPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			h.Row = n
		}
	}
	if m := sheetPattern.FindStringSubmatch(s); m != nil {
		h.Sheet = strings.TrimSpace(m[1])
	}
	return h
}
