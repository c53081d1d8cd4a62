/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
)

// Profile holds the placement defaults of one kind of scope: default sizes per
// element type and the cascade applied to new elements.
type Profile struct {
	Sizes    map[domain.ElementType]geometry.Size
	Fallback geometry.Size
	Base     float64
	Step     float64
}

// MainProfile returns the defaults of the main kiosk canvas. Cards and media
// scale with the viewport; everything else is 220x180.
func MainProfile(viewportW, viewportH float64) Profile {
	return Profile{
		Sizes: map[domain.ElementType]geometry.Size{
			domain.TypeCard:  geometry.ClampSize(viewportW*0.18, viewportH*0.65),
			domain.TypeMedia: geometry.ClampSize(viewportW*0.28, viewportH*0.45),
		},
		Fallback: geometry.Sz(220, 180),
		Base:     80,
		Step:     40,
	}
}

// ModalProfile returns the defaults of a card detail modal.
func ModalProfile() Profile {
	return Profile{
		Sizes: map[domain.ElementType]geometry.Size{
			domain.TypeText:     geometry.Sz(500, 300),
			domain.TypeMoreInfo: geometry.Sz(600, 400),
			domain.TypeMedia:    geometry.Sz(400, 350),
			domain.TypeColor:    geometry.Sz(200, 150),
		},
		Fallback: geometry.Sz(300, 200),
		Base:     50,
		Step:     20,
	}
}

// DefaultSize returns the initial size for t.
func (p Profile) DefaultSize(t domain.ElementType) geometry.Size {
	if s, ok := p.Sizes[t]; ok {
		return s
	}
	return p.Fallback
}

// CascadePosition returns the initial position of the i-th added element.
func (p Profile) CascadePosition(i int) geometry.Point {
	off := p.Base + float64(i)*p.Step
	return geometry.Pt(off, off)
}
