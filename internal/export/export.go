/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes layout previews (labelled boxes) as PDF, SVG or PNG.
package export

import (
	"cmp"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/render"
)

// Page is one layout scope to export.
type Page struct {
	Title string
	Scene render.Scene
}

// Options controls all exporters. Zero values get defaults.
type Options struct {
	// Stroke is the box outline color as a CSS hex code.
	Stroke string
	// DefaultFill is used for boxes without their own color.
	DefaultFill string
	// Labels draws each box's label.
	Labels bool
}

func (o Options) withDefaults() Options {
	if o.Stroke == "" {
		o.Stroke = "#000000"
	}
	if o.DefaultFill == "" {
		o.DefaultFill = "#ffffff"
	}
	return o
}

// Format names accepted by Write.
const (
	FormatPDF = "pdf"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Write dispatches on format. PDF puts every page into one file; SVG and
// PNG write the first page to outPath and the rest next to it with a
// "-<n>" suffix.
func Write(format string, pages []Page, outPath string, opt Options) ([]string, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	switch strings.ToLower(format) {
	case FormatPDF:
		return []string{outPath}, PDF(pages, outPath, opt)
	case FormatSVG, FormatPNG:
		var written []string
		for i, p := range pages {
			name := numbered(outPath, i)
			var err error
			if strings.EqualFold(format, FormatSVG) {
				err = SVG(p, name, opt)
			} else {
				err = PNG(p, name, opt)
			}
			if err != nil {
				return written, err
			}
			written = append(written, name)
		}
		return written, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func numbered(path string, i int) string {
	if i == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + strconv.Itoa(i+1) + ext
}

// Pages builds export pages for a saved configuration: the main canvas
// followed by one page per modal, ordered by card id.
func Pages(cfg *domain.TabletConfiguration, viewport geometry.Size, resolve render.URLResolver) []Page {
	if cfg == nil {
		return nil
	}
	out := []Page{{
		Title: "Main layout, theme " + cfg.ThemeID.String(),
		Scene: render.Build(cfg.Elements, viewport, cfg.ThemeData, resolve),
	}}
	keys := make([]string, 0, len(cfg.ModalConfigs))
	for k := range cfg.ModalConfigs {
		keys = append(keys, k)
	}
	sortCardKeys(keys)
	for _, k := range keys {
		out = append(out, Page{
			Title: "Modal for card " + k,
			Scene: render.Build(cfg.ModalConfigs[k], viewport, nil, resolve),
		})
	}
	return out
}

// sortCardKeys orders numeric ids numerically and the rest lexically after them.
func sortCardKeys(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		na, ea := strconv.ParseInt(a, 10, 64)
		nb, eb := strconv.ParseInt(b, 10, 64)
		switch {
		case ea == nil && eb == nil:
			return cmp.Compare(na, nb)
		case ea == nil:
			return -1
		case eb == nil:
			return 1
		}
		return strings.Compare(a, b)
	})
}

// canvasRect is the area a scene is fitted from: its viewport, grown to
// include boxes dragged beyond it.
func canvasRect(sc render.Scene) geometry.Rect {
	r := geometry.R(0, 0, sc.Viewport.Width, sc.Viewport.Height)
	if len(sc.Boxes) > 0 {
		r = r.Union(sc.Bounds())
	}
	if r.W <= 0 || r.H <= 0 {
		r = geometry.R(0, 0, 1280, 800)
	}
	return r
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
