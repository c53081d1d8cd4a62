/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Canonical content records. The content API client maps every upstream
// payload shape onto these once; nothing downstream inspects raw shapes.

// Theme is an exhibit topic bundling cards, media and colors.
type Theme struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description,omitempty"`
	Archived             bool    `json:"archived,omitempty"`
	Cards                []Card  `json:"cards"`
	Medias               []Media `json:"medias"`
	Colors               []Color `json:"colors"`
	BackgroundImage      *Media  `json:"backgroundImage,omitempty"`
	ThemeBackgroundColor *Color  `json:"themeBackgroundColor,omitempty"`
}

// Card is a content unit placed on the canvas and optionally opened as a modal.
type Card struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Detail              string     `json:"detail,omitempty"`
	Medias              []Media    `json:"medias,omitempty"`
	MoreInfos           []MoreInfo `json:"moreInfos,omitempty"`
	BackgroundColor     *Color     `json:"backgroundColor,omitempty"`
	TextColor           *Color     `json:"textColor,omitempty"`
	BackgroundImageURLs []string   `json:"backgroundImageUrls,omitempty"`
}

// Media is an uploaded file. PublicPath is relative to the upload root.
type Media struct {
	ID            int64  `json:"id"`
	UserGivenName string `json:"userGivenName,omitempty"`
	PublicPath    string `json:"publicPath"`
	ExtensionFile string `json:"extensionFile,omitempty"`
	// SourceType records where a media placed in a modal came from ("card" or "theme").
	SourceType string `json:"sourceType,omitempty"`
}

// Color is a named swatch.
type Color struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ColorCode string `json:"colorCode"`
}

// MoreInfo is an extra titled section attached to a card.
type MoreInfo struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details"`
}

// TextBlock is the payload of a free text element.
type TextBlock struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ThemePage is one page of the theme listing.
type ThemePage struct {
	Themes     []Theme `json:"themes"`
	TotalItems int     `json:"totalItems"`
	Page       int     `json:"page"`
}

// CardByID returns the theme card with the given id.
func (t *Theme) CardByID(id int64) (Card, bool) {
	if t == nil {
		return Card{}, false
	}
	for _, c := range t.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
