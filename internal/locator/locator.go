package locator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/geometry"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/pdfengine"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tabular"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/util"
)

// ErrEngineUnavailable is the one failure Locate reports: the PDF engine
// cannot produce page geometry yet. Callers should retry rather than fail.
var ErrEngineUnavailable = pdfengine.ErrEngineUnavailable

// DefaultExcerptLabel labels a plain excerpt whose hint is empty
const DefaultExcerptLabel = "Excerpt"

// PageRenderer produces the text geometry of a PDF page
type PageRenderer interface {
	Render(ctx context.Context, doc *document.Document, page int) (*pdfengine.PageGeometry, error)
}

// Settings are the projection knobs that may change at runtime
type Settings struct {
	ViewportScale float64
	MinQuoteRunes int
}

// DefaultSettings renders at 1.5x and refuses quotes under three runes
func DefaultSettings() Settings {
	return Settings{ViewportScale: 1.5, MinQuoteRunes: geometry.DefaultMinQuoteRunes}
}

// Locator maps a (document, hint, quote) triple to the place the quote lives
type Locator struct {
	engine   PageRenderer
	logger   *zap.Logger
	settings atomic.Pointer[Settings]
}

// New returns a Locator. engine may be nil, in which case PDF lookups report
// ErrEngineUnavailable.
func New(engine PageRenderer, settings Settings, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Locator{engine: engine, logger: logger}
	l.Update(settings)
	return l
}

// Update swaps the projection settings; safe for concurrent use with Locate
func (l *Locator) Update(s Settings) {
	l.settings.Store(&s)
}

// Settings returns the current projection settings
func (l *Locator) Settings() Settings {
	return *l.settings.Load()
}

// Locate dispatches on the document kind. Only ErrEngineUnavailable is
// returned as an error; a missing quote is a Result with Found false.
func (l *Locator) Locate(ctx context.Context, doc *document.Document, hint, quote string) (Result, error) {
	if doc == nil {
		return Excerpt(hint, quote), nil
	}
	switch doc.Kind {
	case document.KindPDF:
		return l.locatePDF(ctx, doc, hint, quote)
	case document.KindTabular:
		return l.locateTable(doc, hint, quote), nil
	default:
		metrics.RecordLocation(string(TypePlainExcerpt), true)
		return Excerpt(hint, quote), nil
	}
}

func (l *Locator) locatePDF(ctx context.Context, doc *document.Document, hint, quote string) (Result, error) {
	h := ParseHint(hint)
	span := &PdfSpan{Page: h.Page, Quote: quote}
	res := Result{Type: TypePdfSpan, PdfSpan: span}

	if l.engine == nil {
		return res, ErrEngineUnavailable
	}
	geo, err := l.engine.Render(ctx, doc, h.Page)
	switch {
	case errors.Is(err, pdfengine.ErrSuperseded):
		span.Superseded = true
		return res, nil
	case errors.Is(err, pdfengine.ErrEngineUnavailable):
		l.logger.Warn("PDF engine unavailable",
			zap.String("document", doc.ID),
			zap.Int("page", h.Page),
			zap.Error(err))
		return res, ErrEngineUnavailable
	case err != nil:
		span.Diagnostic = err.Error()
		l.logger.Warn("Page geometry extraction failed",
			zap.String("document", doc.ID),
			zap.Int("page", h.Page),
			zap.Error(err))
		metrics.RecordLocation(string(TypePdfSpan), false)
		return res, nil
	}

	s := l.Settings()
	vp := geo.Viewport(s.ViewportScale)
	proj := geometry.Projector{MinQuoteRunes: s.MinQuoteRunes}.Project(geo.Runs, vp, quote)
	span.Regions = proj.Regions
	span.Found = proj.Found
	span.Diagnostic = proj.Diagnostic
	span.ViewportWidth = vp.Width
	span.ViewportHeight = vp.Height
	if !proj.Found {
		l.logger.Debug("Quote not located on page",
			zap.String("document", doc.ID),
			zap.Int("page", h.Page),
			zap.String("quote", util.Preview(quote, 80)),
			zap.String("diagnostic", proj.Diagnostic))
	}
	metrics.RecordLocation(string(TypePdfSpan), proj.Found)
	return res, nil
}

func (l *Locator) locateTable(doc *document.Document, hint, quote string) Result {
	h := ParseHint(hint)
	view := tabular.Resolve(doc.RawText, h.Sheet, h.Row, quote)
	_, found := view.Highlighted()
	metrics.RecordLocation(string(TypeTableRow), found)
	return Result{
		Type: TypeTableRow,
		TableRow: &TableRow{
			Sheet:     view.Name,
			RowNumber: view.HighlightRow,
			Quote:     quote,
			View:      view,
		},
	}
}

// Excerpt builds the plain-text result: the quote shown verbatim under a label
// taken from the hint.
func Excerpt(hint, quote string) Result {
	label := strings.TrimSpace(hint)
	if label == "" {
		label = DefaultExcerptLabel
	}
	return Result{
		Type:         TypePlainExcerpt,
		PlainExcerpt: &PlainExcerpt{Label: label, Quote: quote},
	}
}
