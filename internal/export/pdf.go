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
	"image/color"

	"github.com/jung-kurt/gofpdf"

	"museumkiosk/internal/geometry"
	"museumkiosk/internal/render"
)

// A4 landscape in points.
const (
	pdfPageW  = 842.0
	pdfPageH  = 595.0
	pdfMargin = 36.0
	pdfTitle  = 14.0
)

// PDF writes all pages into a single document at outPath. Each scene is
// scaled uniformly to fit the printable area under the page title.
func PDF(pages []Page, outPath string, opt Options) error {
	opt = opt.withDefaults()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pdfPageW, Ht: pdfPageH},
	})
	pdf.SetTitle("Kiosk layout", true)
	pdf.SetCreator("museumkiosk", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	stroke := render.ColorOr(opt.Stroke, "#000000")

	for _, pg := range pages {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", pdfTitle)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(pdfMargin, pdfMargin, tr(pg.Title))

		area := geometry.R(pdfMargin, pdfMargin+pdfTitle, pdfPageW-2*pdfMargin, pdfPageH-2*pdfMargin-pdfTitle)
		canvas := canvasRect(pg.Scene)
		m := geometry.Fit(canvas, area)

		vp := m.ApplyRect(geometry.R(0, 0, pg.Scene.Viewport.Width, pg.Scene.Viewport.Height))
		setDraw(pdf, color.RGBA{R: 160, G: 160, B: 160, A: 255})
		pdf.SetLineWidth(0.3)
		if bg, ok := render.ParseColor(pg.Scene.BackgroundColor); ok {
			setFill(pdf, bg)
			pdf.Rect(vp.X, vp.Y, vp.W, vp.H, "FD")
		} else {
			pdf.Rect(vp.X, vp.Y, vp.W, vp.H, "D")
		}

		pdf.SetLineWidth(0.8)
		pdf.SetFont("Helvetica", "", 8)
		for _, b := range pg.Scene.Boxes {
			r := m.ApplyRect(b.Rect)
			setFill(pdf, render.ColorOr(b.Fill, opt.DefaultFill))
			setDraw(pdf, stroke)
			pdf.Rect(r.X, r.Y, r.W, r.H, "FD")
			if opt.Labels {
				pdf.ClipRect(r.X, r.Y, r.W, r.H, false)
				pdf.SetTextColor(int(stroke.R), int(stroke.G), int(stroke.B))
				pdf.Text(r.X+3, r.Y+10, tr(labelFor(b)))
				pdf.ClipEnd()
			}
		}
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func labelFor(b render.Box) string {
	return fmt.Sprintf("%s: %s", b.Type, b.Label())
}

func setDraw(pdf *gofpdf.Fpdf, c color.RGBA) { pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }
func setFill(pdf *gofpdf.Fpdf, c color.RGBA) { pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }
