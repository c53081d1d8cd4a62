/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package kiosk

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is the visitor inactivity timeout when none is configured.
const DefaultIdleTimeout = 90 * time.Second

// IdleWatcher calls onIdle once the display has gone untouched for the
// timeout. Every Touch restarts the countdown.
type IdleWatcher struct {
	timeout time.Duration
	onIdle  func()

	mu    sync.Mutex
	timer *time.Timer
	gen   int
}

// NewIdleWatcher creates a stopped watcher. A timeout <= 0 means DefaultIdleTimeout.
func NewIdleWatcher(timeout time.Duration, onIdle func()) *IdleWatcher {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleWatcher{timeout: timeout, onIdle: onIdle}
}

// Timeout returns the effective timeout.
func (w *IdleWatcher) Timeout() time.Duration { return w.timeout }

// Start arms the timer.
func (w *IdleWatcher) Start() { w.Touch() }

// Touch records an interaction.
func (w *IdleWatcher) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *IdleWatcher) fire(gen int) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()
	if w.onIdle != nil {
		w.onIdle()
	}
}

// Stop disarms the timer.
func (w *IdleWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
}
