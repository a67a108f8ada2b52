package locator

import (
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/geometry"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tabular"
)

// ResultType discriminates the Result variants
type ResultType string

const (
	TypePdfSpan      ResultType = "pdf_span"
	TypeTableRow     ResultType = "table_row"
	TypePlainExcerpt ResultType = "plain_excerpt"
)

// Result is where a cited quote lives. Exactly one of the variant pointers is
// set, matching Type.
type Result struct {
	Type         ResultType    `json:"type"`
	PdfSpan      *PdfSpan      `json:"pdf_span,omitempty"`
	TableRow     *TableRow     `json:"table_row,omitempty"`
	PlainExcerpt *PlainExcerpt `json:"plain_excerpt,omitempty"`
}

// PdfSpan is a quote on a PDF page with its highlight regions in viewport space
type PdfSpan struct {
	Page           int               `json:"page"`
	Quote          string            `json:"quote"`
	Regions        []geometry.Region `json:"regions,omitempty"`
	Found          bool              `json:"found"`
	Diagnostic     string            `json:"diagnostic,omitempty"`
	ViewportWidth  float64           `json:"viewport_width,omitempty"`
	ViewportHeight float64           `json:"viewport_height,omitempty"`
	// Superseded is set when a newer lookup of the same page took over
	Superseded bool `json:"superseded,omitempty"`
}

// TableRow is a cited row of a tabular document. RowNumber is the 1-based
// visual row (header = 1) and zero when no row matched.
type TableRow struct {
	Sheet     string       `json:"sheet"`
	RowNumber int          `json:"row_number,omitempty"`
	Quote     string       `json:"quote,omitempty"`
	View      tabular.View `json:"view"`
}

// PlainExcerpt is a quote displayed verbatim
type PlainExcerpt struct {
	Label string `json:"label"`
	Quote string `json:"quote"`
}

// Found reports whether the quote was pinned to a place in the document.
// Plain excerpts are never searched and always count as found.
func (r Result) Found() bool {
	switch r.Type {
	case TypePdfSpan:
		return r.PdfSpan != nil && r.PdfSpan.Found
	case TypeTableRow:
		return r.TableRow != nil && r.TableRow.RowNumber > 0
	case TypePlainExcerpt:
		return r.PlainExcerpt != nil
	}
	return false
}
