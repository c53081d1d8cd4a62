/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"museumkiosk/internal/render"
)

// SVG writes one scene in its own pixel coordinates.
func SVG(p Page, outPath string, opt Options) error {
	opt = opt.withDefaults()
	canvas := canvasRect(p.Scene)
	stroke := svgColor(render.ColorOr(opt.Stroke, "#000000"))

	var buf bytes.Buffer
	wf := func(format string, args ...any) { fmt.Fprintf(&buf, format, args...) }

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"%g %g %g %g\">\n",
		canvas.W, canvas.H, canvas.X, canvas.Y, canvas.W, canvas.H)
	wf("  <title>%s</title>\n", escText(p.Title))
	bg := "#ffffff"
	if c, ok := render.ParseColor(p.Scene.BackgroundColor); ok {
		bg = svgColor(c)
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"#a0a0a0\" stroke-width=\"1\"/>\n",
		p.Scene.Viewport.Width, p.Scene.Viewport.Height, bg)
	if p.Scene.BackgroundURL != "" {
		wf("  <image href=\"%s\" x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid slice\"/>\n",
			escAttr(p.Scene.BackgroundURL), p.Scene.Viewport.Width, p.Scene.Viewport.Height)
	}
	for _, b := range p.Scene.Boxes {
		fill := svgColor(render.ColorOr(b.Fill, opt.DefaultFill))
		wf("  <g id=\"%s\" data-type=\"%s\" data-z=\"%d\">\n", escAttr(b.ID), escAttr(string(b.Type)), b.Z)
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, fill, stroke)
		if b.Media == render.MediaImage && b.MediaURL != "" {
			wf("    <image href=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"/>\n",
				escAttr(b.MediaURL), b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H)
		}
		if opt.Labels {
			area := b.TextArea()
			y := area.Y + render.LineHeight()
			wf("    <text x=\"%g\" y=\"%g\" font-family=\"monospace\" font-size=\"12\" fill=\"%s\">%s</text>\n",
				area.X, y, stroke, escText(b.Label()))
			if b.Title != "" {
				for _, ln := range b.Lines {
					y += render.LineHeight()
					wf("    <text x=\"%g\" y=\"%g\" font-family=\"monospace\" font-size=\"12\" fill=\"%s\">%s</text>\n",
						area.X, y, stroke, escText(ln))
				}
			}
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", "\n", " ", "\r", "")
	return r.Replace(s)
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
