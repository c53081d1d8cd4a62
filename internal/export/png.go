/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"museumkiosk/internal/geometry"
	"museumkiosk/internal/render"
)

// PNG rasterizes one scene at one pixel per layout unit.
func PNG(p Page, outPath string, opt Options) error {
	opt = opt.withDefaults()
	img := Rasterize(p.Scene, opt)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// Rasterize draws sc into a new image covering its canvas.
func Rasterize(sc render.Scene, opt Options) *image.RGBA {
	opt = opt.withDefaults()
	canvas := canvasRect(sc)
	w := int(math.Ceil(canvas.W))
	h := int(math.Ceil(canvas.H))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	toPx := geometry.Translate(-canvas.X, -canvas.Y)

	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	if bg, ok := render.ParseColor(sc.BackgroundColor); ok {
		vp := pxRect(toPx.ApplyRect(geometry.R(0, 0, sc.Viewport.Width, sc.Viewport.Height)))
		draw.Draw(img, vp, &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}

	stroke := render.ColorOr(opt.Stroke, "#000000")
	for _, b := range sc.Boxes {
		r := pxRect(toPx.ApplyRect(b.Rect))
		draw.Draw(img, r, &image.Uniform{C: render.ColorOr(b.Fill, opt.DefaultFill)}, image.Point{}, draw.Src)
		strokeRect(img, r, stroke)
		if opt.Labels {
			drawLabel(img, r, b.Label(), stroke)
		}
	}
	return img
}

func pxRect(r geometry.Rect) image.Rectangle {
	return image.Rect(int(math.Round(r.X)), int(math.Round(r.Y)), int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)))
}

// strokeRect draws a 1px border just inside r.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}

// drawLabel writes s with the 7x13 face, clipped to r.
func drawLabel(img *image.RGBA, r image.Rectangle, s string, col color.RGBA) {
	face := basicfont.Face7x13
	sub, ok := img.SubImage(r).(*image.RGBA)
	if !ok {
		return
	}
	d := &font.Drawer{
		Dst:  sub,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(r.Min.X+render.Padding, r.Min.Y+render.Padding+face.Metrics().Ascent.Round()),
	}
	d.DrawString(s)
}
