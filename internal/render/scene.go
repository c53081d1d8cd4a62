/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns a layout snapshot into a toolkit-neutral scene: boxes
// in draw order with resolved text, colors and media URLs. The fyne canvas
// and the exporters draw from a Scene and never touch the layout store.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
)

// Padding inside a box before text starts.
const Padding = 8

// URLResolver maps a stored public path to an absolute URL.
type URLResolver func(publicPath string) string

// Box is one drawable element.
type Box struct {
	ID    string
	Type  domain.ElementType
	Rect  geometry.Rect
	Z     int
	Title string
	Lines []string
	// Fill is a CSS-style color code, empty for the default.
	Fill     string
	MediaURL string
	Media    MediaKind
	MIME     string
	// CardID is set for card boxes and opens the card's modal.
	CardID string
}

// Scene is everything needed to draw one layout scope.
type Scene struct {
	Viewport        geometry.Size
	BackgroundURL   string
	BackgroundColor string
	Boxes           []Box
}

// Bounds is the union of all boxes, or the zero rect.
func (s Scene) Bounds() geometry.Rect {
	if len(s.Boxes) == 0 {
		return geometry.Rect{}
	}
	r := s.Boxes[0].Rect
	for _, b := range s.Boxes[1:] {
		r = r.Union(b.Rect)
	}
	return r
}

// At returns the topmost box containing p.
func (s Scene) At(p geometry.Point) (Box, bool) {
	for i := len(s.Boxes) - 1; i >= 0; i-- {
		if s.Boxes[i].Rect.Contains(p) {
			return s.Boxes[i], true
		}
	}
	return Box{}, false
}

// DrawOrder returns a copy of l sorted by ascending zIndex, stable on ties.
func DrawOrder(l domain.Layout) domain.Layout {
	out := l.Clone()
	slices.SortStableFunc(out, func(a, b domain.PlacedElement) int { return a.ZIndex - b.ZIndex })
	return out
}

// Build assembles a scene for l. themeData is the opaque theme snapshot and
// only supplies the background; resolve may be nil.
func Build(l domain.Layout, viewport geometry.Size, themeData json.RawMessage, resolve URLResolver) Scene {
	if resolve == nil {
		resolve = func(p string) string { return p }
	}
	sc := Scene{Viewport: viewport}
	sc.BackgroundURL, sc.BackgroundColor = Background(themeData, resolve)
	for _, el := range DrawOrder(l) {
		sc.Boxes = append(sc.Boxes, boxFor(el, resolve))
	}
	return sc
}

// Background extracts the background image URL and color from a theme
// snapshot.
func Background(themeData json.RawMessage, resolve URLResolver) (url, color string) {
	if len(bytes.TrimSpace(themeData)) == 0 {
		return "", ""
	}
	var th struct {
		BackgroundImage *struct {
			PublicPath string `json:"publicPath"`
		} `json:"backgroundImage"`
		ThemeBackgroundColor *struct {
			ColorCode string `json:"colorCode"`
		} `json:"themeBackgroundColor"`
	}
	if err := json.Unmarshal(themeData, &th); err != nil {
		return "", ""
	}
	if th.BackgroundImage != nil && th.BackgroundImage.PublicPath != "" {
		url = resolve(th.BackgroundImage.PublicPath)
	}
	if th.ThemeBackgroundColor != nil {
		color = th.ThemeBackgroundColor.ColorCode
	}
	return url, color
}

func boxFor(el domain.PlacedElement, resolve URLResolver) Box {
	b := Box{ID: el.ID, Type: el.Type, Rect: el.Bounds(), Z: el.ZIndex}
	area := b.TextArea()
	textWidth := area.W
	switch el.Type {
	case domain.TypeCard:
		var c domain.Card
		if id, ok := domain.CardRefID(el.Data); ok {
			b.CardID = id
		}
		if bytes.HasPrefix(bytes.TrimSpace(el.Data), []byte("{")) {
			_ = json.Unmarshal(el.Data, &c)
		}
		b.Title = c.Title
		if b.Title == "" && b.CardID != "" {
			b.Title = "Card #" + b.CardID
		}
		b.Lines = Wrap(c.Detail, textWidth)
		if c.BackgroundColor != nil {
			b.Fill = c.BackgroundColor.ColorCode
		}
	case domain.TypeText:
		var tb domain.TextBlock
		_ = json.Unmarshal(el.Data, &tb)
		b.Lines = Wrap(tb.Content, textWidth)
	case domain.TypeMoreInfo:
		var mi domain.MoreInfo
		_ = json.Unmarshal(el.Data, &mi)
		b.Title = mi.Title
		b.Lines = Wrap(mi.Details, textWidth)
	case domain.TypeMedia, domain.TypeThemeBackgroundImage:
		var m domain.Media
		_ = json.Unmarshal(el.Data, &m)
		b.Title = m.UserGivenName
		b.MediaURL = resolve(m.PublicPath)
		b.Media = ClassifyMedia(m)
		b.MIME = MIMEType(m)
	case domain.TypeThemeColor, domain.TypeColor:
		var c domain.Color
		_ = json.Unmarshal(el.Data, &c)
		b.Title = c.Name
		b.Fill = c.ColorCode
		b.Lines = []string{c.ColorCode}
	default:
		b.Title = string(el.Type)
	}
	if len(b.Lines) > 0 {
		avail := area.H
		if b.Title != "" {
			avail -= LineHeight()
		}
		b.Lines = Clip(b.Lines, avail)
	}
	return b
}

// TextArea is the part of the box that text may occupy.
func (b Box) TextArea() geometry.Rect { return b.Rect.Inset(Padding, Padding) }

// Label is a one-line caption for exporters.
func (b Box) Label() string {
	if b.Title != "" {
		return b.Title
	}
	if len(b.Lines) > 0 && b.Lines[0] != "" {
		return b.Lines[0]
	}
	return fmt.Sprintf("%s (z=%d)", b.Type, b.Z)
}
