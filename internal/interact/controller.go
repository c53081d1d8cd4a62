/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact turns pointer event sequences into layout mutations.
// A Controller runs the Idle -> Dragging|Resizing -> Idle state machine for
// one layout scope; a shared GestureLock keeps at most one gesture active
// across scopes.
package interact

import (
	"errors"
	"log/slog"
	"sync"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	applog "museumkiosk/internal/log"
)

// State of the gesture state machine.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Region is the part of an element hit by a pointer-down.
type Region int

const (
	Body Region = iota
	Handle
)

// RegionAt classifies p against an element's bounds.
func RegionAt(bounds geometry.Rect, p geometry.Point) Region {
	if bounds.Handle().Contains(p) {
		return Handle
	}
	return Body
}

// Outcome tells what a finished gesture amounted to.
type Outcome int

const (
	None Outcome = iota
	Click
	Drag
	Resize
)

func (o Outcome) String() string {
	return [...]string{"none", "click", "drag", "resize"}[o]
}

var (
	ErrGestureActive   = errors.New("interact: another gesture is active")
	ErrNotConfiguring  = errors.New("interact: layout is not in configuring mode")
	ErrUnknownElement  = errors.New("interact: unknown element")
	ErrNothingUnderPtr = errors.New("interact: no element under pointer")
)

// Target is the slice of the layout store the controller drives.
type Target interface {
	Element(id string) (domain.PlacedElement, bool)
	HitTest(p geometry.Point) (domain.PlacedElement, bool)
	UpdatePosition(id string, x, y float64) bool
	UpdateSize(id string, width, height float64) bool
	BringToFront(id string) bool
}

// Controller runs the gesture state machine for one scope.
type Controller struct {
	mu          sync.Mutex
	target      Target
	lock        *GestureLock
	configuring bool
	state       State
	pointer     int
	elementID   string
	anchor      geometry.Point
	startSize   geometry.Size
	startPtr    geometry.Point
	moved       bool
	log         *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLock shares lk with other controllers so only one gesture runs at a time.
func WithLock(lk *GestureLock) Option { return func(c *Controller) { c.lock = lk } }

// WithConfiguring sets the initial configuring flag.
func WithConfiguring(on bool) Option { return func(c *Controller) { c.configuring = on } }

// NewController binds a controller to target. Without WithLock it gets a
// private lock.
func NewController(target Target, opts ...Option) *Controller {
	c := &Controller{target: target, configuring: true, log: applog.WithComponent("interact")}
	for _, o := range opts {
		o(c)
	}
	if c.lock == nil {
		c.lock = &GestureLock{}
	}
	return c
}

// SetConfiguring toggles configuring mode. Leaving it aborts a running gesture.
func (c *Controller) SetConfiguring(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configuring = on
	if !on && c.state != Idle {
		c.resetLocked()
	}
}

// Configuring reports the configuring flag.
func (c *Controller) Configuring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configuring
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns the id of the element under manipulation.
func (c *Controller) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elementID, c.state != Idle
}

// PointerDown starts a gesture on elementID. A down on the body starts a
// drag, a down on the handle a resize. The element is raised to the front
// either way, so a plain click also raises it.
func (c *Controller) PointerDown(pointerID int, elementID string, region Region, pos geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configuring {
		return ErrNotConfiguring
	}
	if c.state != Idle {
		return ErrGestureActive
	}
	el, ok := c.target.Element(elementID)
	if !ok {
		return ErrUnknownElement
	}
	if !c.lock.tryAcquire(c) {
		return ErrGestureActive
	}
	c.target.BringToFront(elementID)

	c.pointer = pointerID
	c.elementID = elementID
	c.moved = false
	if region == Handle {
		c.state = Resizing
		c.startSize = el.Size
		c.startPtr = pos
	} else {
		c.state = Dragging
		c.anchor = pos.Sub(el.Position)
	}
	c.log.Debug("gesture start", slog.String("id", elementID), slog.String("state", c.state.String()))
	return nil
}

// PointerDownAt hit-tests pos and starts a gesture on the topmost element.
func (c *Controller) PointerDownAt(pointerID int, pos geometry.Point) (string, error) {
	el, ok := c.target.HitTest(pos)
	if !ok {
		return "", ErrNothingUnderPtr
	}
	return el.ID, c.PointerDown(pointerID, el.ID, RegionAt(el.Bounds(), pos), pos)
}

// PointerMove writes the new position or size through to the target.
// Moves from other pointers or while idle are ignored.
func (c *Controller) PointerMove(pointerID int, pos geometry.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle || pointerID != c.pointer {
		return false
	}
	c.moved = true
	switch c.state {
	case Dragging:
		p := geometry.ApplyDragDelta(pos, c.anchor)
		return c.target.UpdatePosition(c.elementID, p.X, p.Y)
	case Resizing:
		s := geometry.ApplyResizeDelta(c.startSize, pos.Sub(c.startPtr))
		return c.target.UpdateSize(c.elementID, s.Width, s.Height)
	}
	return false
}

// PointerUp ends the gesture wherever the pointer is released.
func (c *Controller) PointerUp(pointerID int, _ geometry.Point) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle || pointerID != c.pointer {
		return None
	}
	out := Click
	if c.moved {
		out = Drag
		if c.state == Resizing {
			out = Resize
		}
	}
	c.log.Debug("gesture end", slog.String("id", c.elementID), slog.String("outcome", out.String()))
	c.resetLocked()
	return out
}

// Cancel aborts any gesture without further writes.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	if c.state != Idle {
		c.lock.release(c)
	}
	c.state = Idle
	c.elementID = ""
	c.moved = false
}

// GestureLock grants one controller at a time the right to run a gesture.
type GestureLock struct {
	mu    sync.Mutex
	owner *Controller
}

func (l *GestureLock) tryAcquire(c *Controller) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != nil && l.owner != c {
		return false
	}
	l.owner = c
	return true
}

func (l *GestureLock) release(c *Controller) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == c {
		l.owner = nil
	}
}

// Busy reports whether any controller holds the lock.
func (l *GestureLock) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner != nil
}
