/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

// Callbacks is the only mutation surface handed to renderers.
type Callbacks interface {
	OnPositionChange(id string, x, y float64)
	OnSizeChange(id string, width, height float64)
	OnRemove(id string)
	OnBringToFront(id string)
}

// Callbacks exposes the store through the renderer callback surface.
func (s *Store) Callbacks() Callbacks { return storeCallbacks{s} }

type storeCallbacks struct{ s *Store }

func (c storeCallbacks) OnPositionChange(id string, x, y float64) { c.s.UpdatePosition(id, x, y) }
func (c storeCallbacks) OnSizeChange(id string, w, h float64)     { c.s.UpdateSize(id, w, h) }
func (c storeCallbacks) OnRemove(id string)                       { c.s.Remove(id) }
func (c storeCallbacks) OnBringToFront(id string)                 { c.s.BringToFront(id) }
