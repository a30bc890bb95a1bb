/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the pure geometry used by the canvas and the container
// tree: points, rectangles, cell snapping and zoom-aware coordinate mapping.
// Values are float64 pixels; nothing here allocates or logs.
package geom

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Add returns p+q.
func (p Pt) Add(q Pt) Pt { return Pt{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Pt) Sub(q Pt) Pt { return Pt{p.X - q.X, p.Y - q.Y} }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Overlaps reports whether r and o share interior area. Touching edges do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Translate moves r by d.
func (r Rect) Translate(d Pt) Rect { return Rect{X: r.X + d.X, Y: r.Y + d.Y, W: r.W, H: r.H} }

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyRect maps an axis-aligned rect through a scale+translate transform.
// Rotation and shear are ignored.
func (m Affine2D) ApplyRect(r Rect) Rect {
	p := m.Apply(r.Min())
	return Rect{X: p.X, Y: p.Y, W: r.W * m.A, H: r.H * m.D}
}

// Invert returns the inverse transform; ok is false for singular matrices.
func (m Affine2D) Invert() (Affine2D, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 || !Finite(det) {
		return Affine2D{}, false
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// ViewTransform maps logical canvas coordinates to client coordinates for a
// surface whose client origin is origin, scrolled by scroll and zoomed by scale.
func ViewTransform(origin, scroll Pt, scale float64) Affine2D {
	return Translate(origin.X-scroll.X, origin.Y-scroll.Y).Mul(Scale(scale, scale))
}

// SnapToCell converts a pixel offset into the nearest cell index for the
// given cell size. A non-finite offset or a non-positive cell size yields 0.
// Snapping an already snapped offset (n*cell) returns n.
func SnapToCell(offset, cell float64) int {
	if !Finite(offset) || !Finite(cell) || cell <= 0 {
		return 0
	}
	return int(math.Round(offset / cell))
}

// CellToPx is the inverse of SnapToCell.
func CellToPx(n int, cell float64) float64 { return float64(n) * cell }

// RelativeRect returns el, given in client coordinates, relative to the
// content box of a scrollable container with client rect container, scrolled
// by scroll and zoomed by scale. The result is in unscaled logical units.
func RelativeRect(el, container Rect, scroll Pt, scale float64) Rect {
	if !Finite(scale) || scale <= 0 {
		scale = 1
	}
	return Rect{
		X: (el.X - container.X + scroll.X) / scale,
		Y: (el.Y - container.Y + scroll.Y) / scale,
		W: el.W / scale,
		H: el.H / scale,
	}
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
