package pdfengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/geometry"
)

var (
	// ErrEngineUnavailable means the document cannot be handed to the PDF engine
	// yet (no bytes, no engine). Callers may retry once the engine is ready.
	ErrEngineUnavailable = errors.New("pdf engine unavailable")
	// ErrPageOutOfRange is returned for a page number the document does not have
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrMalformedPDF wraps failures decoding the document
	ErrMalformedPDF = errors.New("malformed pdf")
)

// PageGeometry is the text layout of one page: its box, rotation and text runs
type PageGeometry struct {
	Page     int                `json:"page"`
	Box      geometry.Rect      `json:"box"`
	Rotation int                `json:"rotation"`
	Runs     []geometry.TextRun `json:"runs"`
}

// Viewport returns the render viewport of the page at scale
func (g *PageGeometry) Viewport(scale float64) geometry.Viewport {
	return geometry.NewViewport(g.Box, scale, g.Rotation)
}

// Extractor reads page geometry with github.com/ledongthuc/pdf. Work is split
// into a decode step and a layout step so callers can cancel in between.
type Extractor struct{}

// decoded is a page ready for layout extraction
type decoded struct {
	page     pdf.Page
	number   int
	box      geometry.Rect
	rotation int
}

// Decode opens the document and resolves the page dictionary
func (Extractor) Decode(doc *document.Document, pageNum int) (d *decoded, err error) {
	if !doc.HasBinary() {
		return nil, ErrEngineUnavailable
	}
	ra, size, err := doc.Binary.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer recoverInto(&err)

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}
	if pageNum < 1 || pageNum > r.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pageNum, r.NumPage())
	}
	p := r.Page(pageNum)
	if p.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d", ErrPageOutOfRange, pageNum)
	}
	return &decoded{
		page:     p,
		number:   pageNum,
		box:      mediaBox(p),
		rotation: int(inherited(p, "Rotate").Int64()),
	}, nil
}

// Layout extracts the positioned glyphs of a decoded page and merges them into runs
func (Extractor) Layout(d *decoded) (g *PageGeometry, err error) {
	defer recoverInto(&err)
	content := d.page.Content()
	return &PageGeometry{
		Page:     d.number,
		Box:      d.box,
		Rotation: d.rotation,
		Runs:     mergeGlyphs(content.Text),
	}, nil
}

// PageGeometry runs both steps, checking ctx between them
func (e Extractor) PageGeometry(ctx context.Context, doc *document.Document, page int) (*PageGeometry, error) {
	d, err := e.Decode(doc, page)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Layout(d)
}

// mergeGlyphs joins glyphs that sit on the same baseline with the same font and
// no visible gap into a single run
func mergeGlyphs(glyphs []pdf.Text) []geometry.TextRun {
	var (
		runs []geometry.TextRun
		cur  *pdf.Text
		text strings.Builder
		endX float64
	)
	flush := func() {
		if cur == nil {
			return
		}
		runs = append(runs, geometry.TextRun{
			Text:      text.String(),
			Transform: geometry.Matrix{cur.FontSize, 0, 0, cur.FontSize, cur.X, cur.Y},
			Width:     endX - cur.X,
		})
		text.Reset()
		cur = nil
	}

	for i := range glyphs {
		g := glyphs[i]
		if g.S == "" {
			continue
		}
		if cur != nil && !continues(cur, endX, g) {
			flush()
		}
		if cur == nil {
			start := g
			cur = &start
			endX = g.X + g.W
		}
		text.WriteString(g.S)
		endX = math.Max(endX, g.X+g.W)
	}
	flush()
	return runs
}

// continues reports whether glyph g extends the run that started at first and
// currently ends at endX
func continues(first *pdf.Text, endX float64, g pdf.Text) bool {
	if g.Font != first.Font || math.Abs(g.FontSize-first.FontSize) > 0.01 {
		return false
	}
	if math.Abs(g.Y-first.Y) > 0.5 {
		return false
	}
	gap := g.X - endX
	tol := math.Max(first.FontSize*0.3, 1)
	return gap > -tol && gap < tol
}

// mediaBox reads the page box, following inheritance through the page tree
func mediaBox(p pdf.Page) geometry.Rect {
	for _, key := range []string{"CropBox", "MediaBox"} {
		v := inherited(p, key)
		if v.Len() == 4 {
			r := geometry.Rect{
				X1: v.Index(0).Float64(),
				Y1: v.Index(1).Float64(),
				X2: v.Index(2).Float64(),
				Y2: v.Index(3).Float64(),
			}
			if r.Width() > 0 && r.Height() > 0 {
				return r
			}
		}
	}
	return geometry.Letter
}

func inherited(p pdf.Page, key string) pdf.Value {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
	}
	return pdf.Value{}
}

// recoverInto converts panics raised by the pdf library on corrupt input into errors
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
	}
}
