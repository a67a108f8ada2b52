package geometry

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinQuoteRunes is the shortest normalised quote worth searching for.
// Shorter quotes match almost anywhere on a page.
const DefaultMinQuoteRunes = 3

const (
	DiagNoRuns     = "page has no text runs"
	DiagQuoteShort = "quote too short to locate"
	DiagNotFound   = "quote not found on page"
)

// TextRun is one unit of laid-out page text with its transform and advance width
type TextRun struct {
	Text      string  `json:"text"`
	Transform Matrix  `json:"transform"`
	Width     float64 `json:"width"`
}

// Region is a highlight rectangle in render coordinates, rotated by Rotation
// radians about its bottom-left corner.
type Region struct {
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Corners returns the rotated corners: top-left, top-right, bottom-right, bottom-left
func (r Region) Corners() [4][2]float64 {
	ox, oy := r.Left, r.Top+r.Height
	sin, cos := math.Sincos(r.Rotation)
	rot := func(x, y float64) [2]float64 {
		dx, dy := x-ox, y-oy
		return [2]float64{ox + dx*cos - dy*sin, oy + dx*sin + dy*cos}
	}
	return [4][2]float64{
		rot(r.Left, r.Top),
		rot(r.Left+r.Width, r.Top),
		rot(r.Left+r.Width, r.Top+r.Height),
		rot(r.Left, r.Top+r.Height),
	}
}

// Relative expresses r as fractions of a viewport of size w x h. A zero or
// invalid dimension is treated as 1.
func (r Region) Relative(w, h float64) Region {
	w, h = safeScale(w), safeScale(h)
	return Region{
		Left:     r.Left / w,
		Top:      r.Top / h,
		Width:    r.Width / w,
		Height:   r.Height / h,
		Rotation: r.Rotation,
	}
}

// Projection is the outcome of locating a quote on one page
type Projection struct {
	Regions    []Region `json:"regions"`
	Found      bool     `json:"found"`
	Diagnostic string   `json:"diagnostic,omitempty"`
}

// Projector maps quotes onto page text runs
type Projector struct {
	MinQuoteRunes int
}

// Project uses a projector with the default minimum quote length
func Project(runs []TextRun, vp Viewport, quote string) Projection {
	return Projector{MinQuoteRunes: DefaultMinQuoteRunes}.Project(runs, vp, quote)
}

// Project finds the first occurrence of quote across runs, ignoring whitespace
// and case, and returns one region per run overlapping the match.
func (p Projector) Project(runs []TextRun, vp Viewport, quote string) Projection {
	minRunes := p.MinQuoteRunes
	if minRunes <= 0 {
		minRunes = DefaultMinQuoteRunes
	}

	needle := normalize(quote)
	if len([]rune(needle)) < minRunes {
		return Projection{Diagnostic: DiagQuoteShort}
	}
	if len(runs) == 0 {
		return Projection{Diagnostic: DiagNoRuns}
	}

	var hay strings.Builder
	spans := make([]span, len(runs))
	for i, r := range runs {
		start := hay.Len()
		hay.WriteString(normalize(r.Text))
		spans[i] = span{start: start, end: hay.Len()}
	}

	at := strings.Index(hay.String(), needle)
	if at < 0 {
		return Projection{Diagnostic: DiagNotFound}
	}
	matchStart, matchEnd := at, at+len(needle)

	scale, vt := vp.effective()
	var regions []Region
	for i, r := range runs {
		sp := spans[i]
		if sp.start >= matchEnd || sp.end <= matchStart || sp.start == sp.end {
			continue
		}
		regions = append(regions, runRegion(r, vt, scale))
	}
	return Projection{Regions: regions, Found: true}
}

// span is a run's [start, end) byte range in the concatenated normalised text
type span struct {
	start, end int
}

func runRegion(r TextRun, vt Matrix, scale float64) Region {
	tx := vt.Multiply(r.Transform)
	height := tx.ColumnHeight()
	return Region{
		Left:     tx[4],
		Top:      tx[5] - height,
		Width:    r.Width * scale,
		Height:   height,
		Rotation: tx.Angle(),
	}
}

// normalize applies NFKC, drops whitespace and lower-cases
func normalize(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
