/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Text blocks are measured with the fixed 7x13 face so that wrapping is
// identical on every kiosk and in tests.
var face font.Face = basicfont.Face7x13

// LineHeight is the advance between wrapped lines in pixels.
func LineHeight() float64 { return float64(face.Metrics().Height.Round()) }

// Measure returns the pixel width of s on one line.
func Measure(s string) float64 {
	d := &font.Drawer{Face: face}
	return float64(d.MeasureString(s) >> 6)
}

// Wrap breaks text into lines no wider than maxWidth, splitting on spaces
// and honouring explicit newlines. A single word wider than maxWidth gets a
// line of its own. maxWidth <= 0 disables wrapping.
func Wrap(text string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		width := 0.0
		for _, word := range strings.Fields(para) {
			w := Measure(word)
			if cur.Len() > 0 {
				sp := Measure(" ")
				if maxWidth > 0 && width+sp+w > maxWidth {
					lines = append(lines, cur.String())
					cur.Reset()
					width = 0
				} else {
					cur.WriteByte(' ')
					width += sp
				}
			}
			cur.WriteString(word)
			width += w
		}
		lines = append(lines, cur.String())
	}
	return lines
}

// Clip keeps as many lines as fit into height.
func Clip(lines []string, height float64) []string {
	n := int(height / LineHeight())
	if n < 0 {
		n = 0
	}
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
