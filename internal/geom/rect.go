// Package geom holds the page geometry shared by extraction and cropping.
//
// Coordinates are PDF points with the origin at the top-left corner of the
// page and y growing downward.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle. It serializes as [x0, y0, x1, y1].
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// R builds a Rect with its corners ordered.
func R(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Intersects reports whether r and o touch or overlap. Degenerate rects
// (stroked lines have zero width or height) are allowed.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 <= o.X1 && o.X0 <= r.X1 && r.Y0 <= o.Y1 && o.Y0 <= r.Y1
}

// Intersect clips r to o. The result may be empty or inverted when they do
// not overlap; callers check Empty.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
}

// Contains reports whether the point lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Union returns the smallest rect covering both.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Scale multiplies every coordinate by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{r.X0 * f, r.Y0 * f, r.X1 * f, r.Y1 * f}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.1f %.1f %.1f %.1f]", r.X0, r.Y0, r.X1, r.Y1)
}

// MarshalJSON encodes r as [x0, y0, x1, y1] with two decimals, rounding
// inward so the encoded box never grows past the original.
func (r Rect) MarshalJSON() ([]byte, error) {
	in := Rect{
		math.Ceil(r.X0*100-1e-6) / 100,
		math.Ceil(r.Y0*100-1e-6) / 100,
		math.Floor(r.X1*100+1e-6) / 100,
		math.Floor(r.Y1*100+1e-6) / 100,
	}
	if in.X0 > in.X1 || in.Y0 > in.Y1 {
		in = Rect{round2(r.X0), round2(r.Y0), round2(r.X1), round2(r.Y1)}
	}
	return json.Marshal([4]float64{in.X0, in.Y0, in.X1, in.Y1})
}

func (r *Rect) UnmarshalJSON(b []byte) error {
	var a [4]float64
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("decode rect: %w", err)
	}
	*r = Rect{a[0], a[1], a[2], a[3]}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
