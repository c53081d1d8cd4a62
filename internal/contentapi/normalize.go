/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contentapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"museumkiosk/internal/domain"
)

// Upstream payloads come in several shapes: a card may be sent directly,
// wrapped as {"card": {...}} or {"element": {...}}, with capitalized or
// lower-case keys, and with colors as a single object or an array. The
// functions here map all of them onto the domain records once.

var errUnrecognizedShape = errors.New("unrecognized payload shape")

type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, true
}

func (f fields) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && len(v) > 0 && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(keys ...string) string {
	v, ok := f.raw(keys...)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	return ""
}

func (f fields) boolean(keys ...string) bool {
	v, ok := f.raw(keys...)
	if !ok {
		return false
	}
	var b bool
	_ = json.Unmarshal(v, &b)
	return b
}

// id accepts numbers, numeric strings and IRIs such as "/api/cards/42".
func (f fields) id(keys ...string) int64 {
	v, ok := f.raw(keys...)
	if !ok {
		return 0
	}
	return parseID(v)
}

func parseID(v json.RawMessage) int64 {
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		s = s[strings.LastIndex(s, "/")+1:]
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func (f fields) list(keys ...string) []json.RawMessage {
	v, ok := f.raw(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(v, &items) != nil {
		return nil
	}
	return items
}

// NormalizeCard maps any known card payload shape onto domain.Card.
func NormalizeCard(raw json.RawMessage) (domain.Card, error) {
	f, ok := decodeFields(raw)
	if !ok {
		if id := parseID(raw); id != 0 {
			return domain.Card{ID: id}, nil
		}
		return domain.Card{}, &Error{Kind: KindDecode, Message: "card payload", Cause: errUnrecognizedShape}
	}
	id := f.id("id", "@id")
	title := f.str("title", "Title")
	if id == 0 || title == "" {
		if inner, ok := f.raw("card"); ok {
			return NormalizeCard(inner)
		}
		if inner, ok := f.raw("element"); ok {
			return NormalizeCard(inner)
		}
		if id == 0 {
			return domain.Card{}, &Error{Kind: KindDecode, Message: "card payload", Cause: errUnrecognizedShape}
		}
	}
	c := domain.Card{
		ID:              id,
		Title:           title,
		Detail:          f.str("detail", "Detail", "details", "Details"),
		BackgroundColor: normalizeColorRef(f, "backgroundColor", "BackgroundColor"),
		TextColor:       normalizeColorRef(f, "textColor", "TextColor"),
	}
	for _, m := range f.list("medias", "Medias") {
		if md, ok := normalizeMedia(m); ok {
			c.Medias = append(c.Medias, md)
		}
	}
	for _, m := range f.list("moreInfos", "MoreInfos", "moreInfo") {
		mf, ok := decodeFields(m)
		if !ok {
			continue
		}
		c.MoreInfos = append(c.MoreInfos, domain.MoreInfo{
			ID:      mf.id("id"),
			Title:   mf.str("title", "Title"),
			Details: mf.str("details", "Details", "detail"),
		})
	}
	for _, u := range f.list("backgroundImageUrls", "backgroundImageURLs") {
		var s string
		if json.Unmarshal(u, &s) == nil && s != "" {
			c.BackgroundImageURLs = append(c.BackgroundImageURLs, s)
		}
	}
	return c, nil
}

// NormalizeTheme maps a theme payload onto domain.Theme. Embedded cards that
// are only IRIs become id-only cards.
func NormalizeTheme(raw json.RawMessage) (domain.Theme, error) {
	f, ok := decodeFields(raw)
	if !ok {
		return domain.Theme{}, &Error{Kind: KindDecode, Message: "theme payload", Cause: errUnrecognizedShape}
	}
	if inner, ok := f.raw("theme"); ok && f.id("id") == 0 {
		return NormalizeTheme(inner)
	}
	t := domain.Theme{
		ID:                   f.id("id", "@id"),
		Name:                 f.str("name", "Name"),
		Description:          f.str("description", "Description"),
		Archived:             f.boolean("archived"),
		ThemeBackgroundColor: normalizeColorRef(f, "themeBackgroundColor", "backgroundColor"),
		Cards:                []domain.Card{},
		Medias:               []domain.Media{},
		Colors:               []domain.Color{},
	}
	if t.ID == 0 {
		return domain.Theme{}, &Error{Kind: KindDecode, Message: "theme payload", Cause: errors.New("missing id")}
	}
	for _, c := range f.list("cards", "Cards") {
		if card, err := NormalizeCard(c); err == nil {
			t.Cards = append(t.Cards, card)
		}
	}
	for _, m := range f.list("medias", "Medias") {
		if md, ok := normalizeMedia(m); ok {
			t.Medias = append(t.Medias, md)
		}
	}
	for _, c := range f.list("colors", "Colors") {
		if col, ok := normalizeColor(c); ok {
			t.Colors = append(t.Colors, col)
		}
	}
	if bg, ok := f.raw("backgroundImage", "BackgroundImage"); ok {
		if md, ok := normalizeMedia(bg); ok {
			t.BackgroundImage = &md
		}
	}
	return t, nil
}

func normalizeMedia(raw json.RawMessage) (domain.Media, bool) {
	f, ok := decodeFields(raw)
	if !ok {
		return domain.Media{}, false
	}
	m := domain.Media{
		ID:            f.id("id"),
		UserGivenName: f.str("userGivenName", "name"),
		PublicPath:    f.str("publicPath", "path"),
		ExtensionFile: strings.ToLower(f.str("extensionFile", "extension")),
		SourceType:    f.str("sourceType"),
	}
	if m.ExtensionFile == "" {
		if i := strings.LastIndex(m.PublicPath, "."); i >= 0 {
			m.ExtensionFile = strings.ToLower(m.PublicPath[i+1:])
		}
	}
	return m, m.PublicPath != "" || m.ID != 0
}

func normalizeColor(raw json.RawMessage) (domain.Color, bool) {
	f, ok := decodeFields(raw)
	if !ok {
		return domain.Color{}, false
	}
	c := domain.Color{
		ID:        f.id("id"),
		Name:      f.str("name", "Name"),
		ColorCode: f.str("colorCode", "hexCode", "code"),
	}
	return c, c.ColorCode != ""
}

// normalizeColorRef accepts either one color object or an array and keeps
// the first usable entry.
func normalizeColorRef(f fields, keys ...string) *domain.Color {
	v, ok := f.raw(keys...)
	if !ok {
		return nil
	}
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(v, &items) != nil {
			return nil
		}
		for _, it := range items {
			if c, ok := normalizeColor(it); ok {
				return &c
			}
		}
		return nil
	}
	if c, ok := normalizeColor(v); ok {
		return &c
	}
	return nil
}
