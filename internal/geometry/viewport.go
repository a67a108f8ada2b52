package geometry

import "math"

// Rect is a page box in PDF user space (lower-left and upper-right corners)
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// Letter is the fallback page box when a page declares none
var Letter = Rect{0, 0, 612, 792}

func (r Rect) Width() float64  { return math.Abs(r.X2 - r.X1) }
func (r Rect) Height() float64 { return math.Abs(r.Y2 - r.Y1) }

// Viewport maps PDF user space to render space (origin top-left, y down)
type Viewport struct {
	Scale     float64 `json:"scale"`
	Rotation  int     `json:"rotation"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Transform Matrix  `json:"transform"`
}

// NewViewport builds the render transform for a page box at the given scale and
// clockwise rotation (multiples of 90 degrees; anything else is treated as 0).
func NewViewport(box Rect, scale float64, rotation int) Viewport {
	scale = safeScale(scale)
	if box.Width() == 0 || box.Height() == 0 {
		box = Letter
	}
	rotation = ((rotation % 360) + 360) % 360
	if rotation%90 != 0 {
		rotation = 0
	}

	cx := (box.X1 + box.X2) / 2
	cy := (box.Y1 + box.Y2) / 2

	var a, b, c, d float64
	switch rotation {
	case 90:
		a, b, c, d = 0, 1, 1, 0
	case 180:
		a, b, c, d = -1, 0, 0, 1
	case 270:
		a, b, c, d = 0, -1, -1, 0
	default:
		a, b, c, d = 1, 0, 0, -1
	}

	var offX, offY, width, height float64
	if a == 0 {
		offX = math.Abs(cy-box.Y1) * scale
		offY = math.Abs(cx-box.X1) * scale
		width = box.Height() * scale
		height = box.Width() * scale
	} else {
		offX = math.Abs(cx-box.X1) * scale
		offY = math.Abs(cy-box.Y1) * scale
		width = box.Width() * scale
		height = box.Height() * scale
	}

	return Viewport{
		Scale:    scale,
		Rotation: rotation,
		Width:    width,
		Height:   height,
		Transform: Matrix{
			a * scale,
			b * scale,
			c * scale,
			d * scale,
			offX - a*scale*cx - c*scale*cy,
			offY - b*scale*cx - d*scale*cy,
		},
	}
}

// effective returns the scale and transform to project with. An unset
// viewport degrades to a plain scale with no flip.
func (v Viewport) effective() (float64, Matrix) {
	s := safeScale(v.Scale)
	if v.Transform.IsZero() {
		return s, Matrix{s, 0, 0, s, 0, 0}
	}
	return s, v.Transform
}
