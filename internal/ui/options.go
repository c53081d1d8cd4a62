/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the fyne kiosk window. Builds without the fyne tag get a
// stub Run so headless CI does not need OpenGL.
package ui

import (
	"time"

	"museumkiosk/internal/crash"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/kiosk"
	"museumkiosk/internal/storage"
)

// Options is what the window needs from the command line.
type Options struct {
	Store    *storage.TabletStore
	API      kiosk.ThemeSource
	Viewport geometry.Size
	// Visitor opens the read-only display instead of the configurator.
	Visitor     bool
	ThemeID     int64
	IdleTimeout time.Duration
	Resolve     func(publicPath string) string
	// Crash, when set, gets its Snapshot pointed at the live configurator.
	Crash *crash.Target
}
