// Package images - Image geometry utilities
package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Rect is a corner-form bounding box in floating point coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// FromCenter builds a corner-form box from a center-form (cx, cy, w, h) box.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The canonical corner-form box.
func FromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}.Canon()
}

// Canon returns the box with its corners ordered so that X1 <= X2 and Y1 <= Y2.
func (r Rect) Canon() Rect {
	if r.X2 < r.X1 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Width of the box, never negative.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height of the box, never negative.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area of the box. Inverted boxes have zero area.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Scale multiplies the horizontal coordinates by sx and the vertical ones by sy.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X1: r.X1 * sx, Y1: r.Y1 * sy, X2: r.X2 * sx, Y2: r.Y2 * sy}
}

// Clamp limits every coordinate to [0, width] x [0, height].
//
// Arguments:
//   - width: The inclusive horizontal limit.
//   - height: The inclusive vertical limit.
//
// Returns:
//   - Rect: The clamped box. A canonical box stays canonical.
func (r Rect) Clamp(width, height float32) Rect {
	return Rect{
		X1: clamp(r.X1, 0, width),
		Y1: clamp(r.Y1, 0, height),
		X2: clamp(r.X2, 0, width),
		Y2: clamp(r.Y2, 0, height),
	}
}

// Finite reports whether every coordinate is a finite number.
func (r Rect) Finite() bool {
	for _, v := range [4]float32{r.X1, r.Y1, r.X2, r.Y2} {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Floor converts the box to integer pixel coordinates by flooring each corner.
func (r Rect) Floor() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: int(math32.Floor(r.X1)), Y: int(math32.Floor(r.Y1))},
		Max: image.Point{X: int(math32.Floor(r.X2)), Y: int(math32.Floor(r.Y2))},
	}
}

// clamp limits v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float32) float32 {
	if math32.IsNaN(v) {
		return lo
	}
	return math32.Min(math32.Max(v, lo), hi)
}

// CalculateIoU measures the overlap of two boxes as intersection area over union area.
//
// The intersection corners are the maximum of the two top-left corners and the
// minimum of the two bottom-right corners. If the resulting width or height is
// zero or negative the boxes do not overlap and the score is 0. The union uses
// inclusion-exclusion: Area(A) + Area(B) - Area(A ∩ B).
//
// A box with zero area scores 0 against everything, including itself, so the
// division below never sees a zero denominator.
//
// Arguments:
//   - r: The first box.
//   - o: The other box.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	areaR := r.Area()
	areaO := o.Area()
	if areaR <= 0 || areaO <= 0 {
		return 0
	}

	interW := math32.Min(r.X2, o.X2) - math32.Max(r.X1, o.X1)
	interH := math32.Min(r.Y2, o.Y2) - math32.Max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := areaR + areaO - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}
