/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry holds the canvas value types and the pure transforms used
// while dragging and resizing elements. Coordinates are pixels with the origin
// at the top-left corner of the canvas.
package geometry

import "math"

// Minimum element size enforced on every resize.
const (
	MinWidth  = 150
	MinHeight = 100
)

// HandleSize is the edge length of the square resize handle drawn at the
// bottom-right corner of an element.
const HandleSize = 20

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func Sz(w, h float64) Size { return Size{Width: w, Height: h} }

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// ClampSize applies the minimum size floor. There is no ceiling.
func ClampSize(width, height float64) Size {
	return Size{Width: math.Max(MinWidth, width), Height: math.Max(MinHeight, height)}
}

// ApplyDragDelta converts a pointer position into an element position given
// the offset recorded at grab time. Results are clamped to x,y >= 0.
func ApplyDragDelta(pointer, anchorOffset Point) Point {
	p := pointer.Sub(anchorOffset)
	return Point{X: math.Max(0, p.X), Y: math.Max(0, p.Y)}
}

// ApplyResizeDelta grows start by the pointer travel and clamps the result.
func ApplyResizeDelta(start Size, pointerDelta Point) Size {
	return ClampSize(start.Width+pointerDelta.X, start.Height+pointerDelta.Y)
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// RectOf builds the bounds of an element placed at p with size s.
func RectOf(p Point, s Size) Rect { return Rect{X: p.X, Y: p.Y, W: s.Width, H: s.Height} }

func (r Rect) Min() Point { return Point{r.X, r.Y} }
func (r Rect) Max() Point { return Point{r.X + r.W, r.Y + r.H} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Handle returns the resize handle hit area of r.
func (r Rect) Handle() Rect {
	return Rect{X: r.X + r.W - HandleSize, Y: r.Y + r.H - HandleSize, W: HandleSize, H: HandleSize}
}

// Affine2D is a 2D affine transform stored as [a b c d e f]:
// | a c e |
// | b d f |
// | 0 0 1 |
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

func (m Affine2D) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyRect maps both corners of an axis-aligned rect. Only valid for
// transforms without rotation or shear.
func (m Affine2D) ApplyRect(r Rect) Rect {
	a := m.Apply(r.Min())
	b := m.Apply(r.Max())
	return Rect{X: a.X, Y: a.Y, W: b.X - a.X, H: b.Y - a.Y}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// Fit returns the uniform scale+translate mapping src into dst, centered.
func Fit(src, dst Rect) Affine2D {
	if src.W <= 0 || src.H <= 0 {
		return Translate(dst.X-src.X, dst.Y-src.Y)
	}
	s := math.Min(dst.W/src.W, dst.H/src.H)
	ox := dst.X + (dst.W-src.W*s)/2
	oy := dst.Y + (dst.H-src.H*s)/2
	return Translate(ox, oy).Mul(Scale(s, s)).Mul(Translate(-src.X, -src.Y))
}

// Round rounds v to n decimal places deterministically.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
