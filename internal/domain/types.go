/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the layout store, the
// persistence layer and the visitor display. The persisted TabletConfiguration
// is a human-readable JSON document; field names follow the stored format.

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"museumkiosk/internal/geometry"
)

// ElementType tags what a placed element shows.
type ElementType string

const (
	TypeCard                 ElementType = "card"
	TypeText                 ElementType = "text"
	TypeMedia                ElementType = "media"
	TypeMoreInfo             ElementType = "moreInfo"
	TypeThemeBackgroundImage ElementType = "themeBackgroundImage"
	TypeThemeColor           ElementType = "themeColor"
	TypeColor                ElementType = "color"
)

// ElementTypes lists the closed set of element types.
func ElementTypes() []ElementType {
	return []ElementType{TypeCard, TypeText, TypeMedia, TypeMoreInfo, TypeThemeBackgroundImage, TypeThemeColor, TypeColor}
}

// Valid reports whether t belongs to the closed set.
func (t ElementType) Valid() bool {
	for _, k := range ElementTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// PlacedElement is one positioned item in a layout scope.
// Data is opaque to the layout store; only renderers interpret it.
type PlacedElement struct {
	ID       string          `json:"id"`
	Type     ElementType     `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Position geometry.Point  `json:"position"`
	Size     geometry.Size   `json:"size"`
	ZIndex   int             `json:"zIndex"`
}

// Bounds returns the element rectangle on its canvas.
func (e PlacedElement) Bounds() geometry.Rect { return geometry.RectOf(e.Position, e.Size) }

// Clone returns a copy that shares no memory with e.
func (e PlacedElement) Clone() PlacedElement {
	c := e
	if e.Data != nil {
		c.Data = append(json.RawMessage(nil), e.Data...)
	}
	return c
}

// Layout is an ordered element sequence. Order is the default z tiebreak.
type Layout []PlacedElement

// Clone deep-copies the layout. A nil layout clones to an empty one.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for i, e := range l {
		out[i] = e.Clone()
	}
	return out
}

// ThemeID is the external theme identifier. Upstream sends numbers, older
// saves carry strings; both decode, and it is always written as a string.
type ThemeID string

func (id *ThemeID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ThemeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ThemeID(n.String())
	return nil
}

func (id ThemeID) String() string { return string(id) }

// TabletConfiguration is the persisted root object of one kiosk device.
type TabletConfiguration struct {
	ThemeID      ThemeID           `json:"themeId"`
	ThemeData    json.RawMessage   `json:"themeData"`
	Elements     Layout            `json:"elements"`
	ModalConfigs map[string]Layout `json:"modalConfigs"`
	SavedAt      time.Time         `json:"savedAt"`
}

// Valid mirrors the "usable configuration" check: a theme and a main layout.
func (c *TabletConfiguration) Valid() bool {
	return c != nil && c.ThemeID != "" && c.Elements != nil
}

// Modal returns a copy of the modal layout for cardID and whether one exists.
func (c *TabletConfiguration) Modal(cardID string) (Layout, bool) {
	if c == nil || c.ModalConfigs == nil {
		return nil, false
	}
	l, ok := c.ModalConfigs[cardID]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Clone deep-copies the configuration.
func (c *TabletConfiguration) Clone() *TabletConfiguration {
	if c == nil {
		return nil
	}
	out := *c
	out.ThemeData = append(json.RawMessage(nil), c.ThemeData...)
	out.Elements = c.Elements.Clone()
	out.ModalConfigs = make(map[string]Layout, len(c.ModalConfigs))
	for k, v := range c.ModalConfigs {
		out.ModalConfigs[k] = v.Clone()
	}
	return &out
}

// CardRefID extracts the card identifier carried by a card element's data:
// a bare number, a numeric string, or an object with an "id" field.
func CardRefID(data json.RawMessage) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil || len(obj.ID) == 0 || obj.ID[0] == '{' {
			return "", false
		}
		return CardRefID(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil || s == "" {
			return "", false
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return "", false
		}
		return s, true
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
