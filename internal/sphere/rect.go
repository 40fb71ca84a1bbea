// Public domain.

// Package sphere has the axis aligned RA/Dec box used to partition the sky
// and to bound the observations of a single star.
//
// All values are degrees.  RA is nominally [0,360) and Dec [-90,90], but a
// Rect is never normalized implicitly.  Seed boxes near RA 0 have negative
// XMin and boxes around a pole extend past 90.  Methods that care about
// wraparound say so.
package sphere

import "fmt"

// Rect is a box in RA (x) and Dec (y).
type Rect struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Sky is the whole sphere as a root rect.
var Sky = Rect{0, 360, -90, 90}

func (r Rect) String() string {
	return fmt.Sprintf("[%.7f, %.7f) x [%.7f, %.7f)", r.XMin, r.XMax, r.YMin, r.YMax)
}

// Contains is a half-open test, the max edges belong to the next box.
func (r Rect) Contains(x, y float64) bool {
	return r.XMin <= x && x < r.XMax && r.YMin <= y && y < r.YMax
}

// Overlaps reports whether r and o share any point.  Edges that touch count.
//
// Two boxes that both run past the same pole always overlap, all meridians
// meet there.  Otherwise o is also tried a turn either way, so boxes stored
// with bounds below 0 or above 360 meet their neighbors across RA 0.
func (r Rect) Overlaps(o Rect) bool {
	if r.YMax > 90 && o.YMax > 90 || r.YMin < -90 && o.YMin < -90 {
		return true
	}
	if o.YMax < r.YMin || o.YMin > r.YMax {
		return false
	}
	return r.overlapsRA(o)
}

func (r Rect) overlapsRA(o Rect) bool {
	for _, d := range turns {
		if !(o.XMax+d < r.XMin || o.XMin+d > r.XMax) {
			return true
		}
	}
	return false
}

var turns = [...]float64{0, -360, 360}

// Meets is Overlaps against a region o that lies within [0,360), such as a
// tree node.  r may span every RA or run past a pole, then it meets every
// node it reaches in Dec or every node touching that pole.
func (r Rect) Meets(o Rect) bool {
	if r.YMax > 90 && o.YMax >= 90 || r.YMin < -90 && o.YMin <= -90 {
		return true
	}
	if o.YMax < r.YMin || o.YMin > r.YMax {
		return false
	}
	return r.XMax-r.XMin >= 360 || r.overlapsRA(o)
}

// Expand grows r to the union of r and o.
func (r *Rect) Expand(o Rect) {
	if o.XMin < r.XMin {
		r.XMin = o.XMin
	}
	if o.XMax > r.XMax {
		r.XMax = o.XMax
	}
	if o.YMin < r.YMin {
		r.YMin = o.YMin
	}
	if o.YMax > r.YMax {
		r.YMax = o.YMax
	}
}

// ExpandNear is Expand after shifting o by whole turns so that its center is
// within 180 degrees of r's.  A union across RA 0 then stays small.
func (r *Rect) ExpandNear(o Rect) {
	rx, _ := r.Center()
	ox, _ := o.Center()
	for ox-rx > 180 {
		o.XMin -= 360
		o.XMax -= 360
		ox -= 360
	}
	for rx-ox > 180 {
		o.XMin += 360
		o.XMax += 360
		ox += 360
	}
	r.Expand(o)
}

// Center returns the midpoint of r.
func (r Rect) Center() (x, y float64) {
	return (r.XMin + r.XMax) / 2, (r.YMin + r.YMax) / 2
}

// SplitIntoQuads returns the quadrants of r in the order
// top-left, top-right, bottom-left, bottom-right, where top is the low Dec
// half and left is the low RA half.
func (r Rect) SplitIntoQuads() [4]Rect {
	xm, ym := r.Center()
	return [4]Rect{
		{r.XMin, xm, r.YMin, ym},
		{xm, r.XMax, r.YMin, ym},
		{r.XMin, xm, ym, r.YMax},
		{xm, r.XMax, ym, r.YMax},
	}
}

// Point is an (RA, Dec) pair.
type Point struct{ X, Y float64 }

// Corners returns the four corners of r.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.XMin, r.YMin},
		{r.XMax, r.YMin},
		{r.XMin, r.YMax},
		{r.XMax, r.YMax},
	}
}

// Grow returns r inflated by d on every side.
func (r Rect) Grow(d float64) Rect {
	return Rect{r.XMin - d, r.XMax + d, r.YMin - d, r.YMax + d}
}

// Shift returns r moved by dx in RA.
func (r Rect) Shift(dx float64) Rect {
	return Rect{r.XMin + dx, r.XMax + dx, r.YMin, r.YMax}
}

// Valid reports whether the bounds are ordered.
func (r Rect) Valid() bool {
	return r.XMin <= r.XMax && r.YMin <= r.YMax
}
