/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image/color"
	"strconv"
	"strings"
)

// ParseColor reads a #rgb or #rrggbb color code.
func ParseColor(code string) (color.RGBA, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(code), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

// ColorOr parses code, falling back to fallback when code is not a color.
func ColorOr(code, fallback string) color.RGBA {
	if c, ok := ParseColor(code); ok {
		return c
	}
	c, _ := ParseColor(fallback)
	return c
}
