package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageRuns() []TextRun {
	return []TextRun{
		{Text: "Net floor", Transform: Matrix{12, 0, 0, 12, 72, 700}, Width: 50},
		{Text: " area is 120 m2", Transform: Matrix{12, 0, 0, 12, 122, 700}, Width: 80},
		{Text: "Other heading", Transform: Matrix{18, 0, 0, 18, 72, 600}, Width: 110},
	}
}

func TestMatrixMultiply(t *testing.T) {
	m := Matrix{2, 0, 0, 2, 10, 20}
	assert.Equal(t, m, Identity.Multiply(m))
	assert.Equal(t, m, m.Multiply(Identity))

	x, y := m.Multiply(Matrix{1, 0, 0, 1, 5, 5}).Apply(0, 0)
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 30.0, y)
}

func TestNewViewport(t *testing.T) {
	vp := NewViewport(Letter, 1.5, 0)
	assert.Equal(t, Matrix{1.5, 0, 0, -1.5, 0, 1188}, vp.Transform)
	assert.Equal(t, 918.0, vp.Width)
	assert.Equal(t, 1188.0, vp.Height)

	rotated := NewViewport(Letter, 1, 90)
	assert.Equal(t, 792.0, rotated.Width)
	assert.Equal(t, 612.0, rotated.Height)
	// The page's lower-left corner lands in the top-left of the rotated render
	x, y := rotated.Transform.Apply(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	assert.Equal(t, 0, NewViewport(Letter, 1, 45).Rotation)
	assert.Equal(t, 270, NewViewport(Letter, 1, -90).Rotation)
	assert.Equal(t, 1.0, NewViewport(Rect{}, 0, 0).Scale)
}

func TestProjectFindsQuoteAcrossRuns(t *testing.T) {
	p := Project(pageRuns(), NewViewport(Letter, 1, 0), "net floor area")

	require.True(t, p.Found)
	require.Len(t, p.Regions, 2)
	assert.Equal(t, Region{Left: 72, Top: 80, Width: 50, Height: 12}, p.Regions[0])
	assert.Equal(t, 122.0, p.Regions[1].Left)
	for _, r := range p.Regions {
		assert.Greater(t, r.Width, 0.0)
		assert.Greater(t, r.Height, 0.0)
	}
}

func TestProjectScalesRegions(t *testing.T) {
	p := Project(pageRuns(), NewViewport(Letter, 2, 0), "Other heading")
	require.Len(t, p.Regions, 1)
	assert.Equal(t, 220.0, p.Regions[0].Width)
	assert.Equal(t, 36.0, p.Regions[0].Height)
	assert.Equal(t, 2*(792-600)-36.0, p.Regions[0].Top)
}

func TestProjectNotFound(t *testing.T) {
	p := Project(pageRuns(), NewViewport(Letter, 1, 0), "xyz-not-present")
	assert.False(t, p.Found)
	assert.Empty(t, p.Regions)
	assert.Equal(t, DiagNotFound, p.Diagnostic)
}

func TestProjectRejectsShortQuotes(t *testing.T) {
	for _, q := range []string{"", "  ", "a b", "ne"} {
		p := Project(pageRuns(), NewViewport(Letter, 1, 0), q)
		assert.False(t, p.Found, q)
		assert.Equal(t, DiagQuoteShort, p.Diagnostic, q)
	}
	p := Projector{MinQuoteRunes: 10}.Project(pageRuns(), NewViewport(Letter, 1, 0), "net floor")
	assert.Equal(t, DiagQuoteShort, p.Diagnostic)
}

func TestProjectNoRuns(t *testing.T) {
	p := Project(nil, Viewport{}, "anything")
	assert.Equal(t, DiagNoRuns, p.Diagnostic)
}

func TestProjectFirstOccurrenceOnly(t *testing.T) {
	runs := []TextRun{
		{Text: "total cost", Transform: Matrix{10, 0, 0, 10, 0, 500}, Width: 40},
		{Text: "total cost", Transform: Matrix{10, 0, 0, 10, 0, 400}, Width: 40},
	}
	p := Project(runs, NewViewport(Letter, 1, 0), "TOTAL  COST")
	require.Len(t, p.Regions, 1)
	assert.Equal(t, 792-500-10.0, p.Regions[0].Top)
}

func TestProjectZeroScaleFallsBack(t *testing.T) {
	p := Project(pageRuns(), Viewport{Scale: 0}, "other heading")
	require.Len(t, p.Regions, 1)
	assert.Equal(t, 110.0, p.Regions[0].Width)
	assert.False(t, math.IsNaN(p.Regions[0].Top))

	p = Project(pageRuns(), Viewport{Scale: math.NaN()}, "other heading")
	require.Len(t, p.Regions, 1)
	assert.Equal(t, 110.0, p.Regions[0].Width)
}

func TestProjectRotatedRun(t *testing.T) {
	runs := []TextRun{{Text: "vertical label", Transform: Matrix{0, 12, -12, 0, 100, 100}, Width: 60}}
	p := Project(runs, Viewport{Scale: 1}, "vertical label")
	require.Len(t, p.Regions, 1)
	assert.InDelta(t, math.Pi/2, p.Regions[0].Rotation, 1e-9)
	assert.InDelta(t, 12, p.Regions[0].Height, 1e-9)
}

func TestRegionCorners(t *testing.T) {
	r := Region{Left: 10, Top: 20, Width: 30, Height: 5}
	c := r.Corners()
	assert.Equal(t, [2]float64{10, 20}, c[0])
	assert.Equal(t, [2]float64{40, 25}, c[2])

	r.Rotation = math.Pi / 2
	c = r.Corners()
	// bottom-left is the pivot
	assert.InDelta(t, 10, c[3][0], 1e-9)
	assert.InDelta(t, 25, c[3][1], 1e-9)
	assert.InDelta(t, 15, c[0][0], 1e-9)
	assert.InDelta(t, 25, c[0][1], 1e-9)
}

func TestRegionRelative(t *testing.T) {
	r := Region{Left: 10, Top: 20, Width: 30, Height: 40}
	assert.Equal(t, Region{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}, r.Relative(100, 100))
	assert.Equal(t, r, r.Relative(0, math.Inf(1)))
}
