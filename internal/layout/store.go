/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout implements the in-memory layout store of one scope: the
// main canvas or a single card modal. Operations on unknown ids are silent
// no-ops since UI events routinely race with removal.
package layout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	applog "museumkiosk/internal/log"
)

// Scope names.
const MainScope = "main"

// ModalScope returns the scope name of a card modal.
func ModalScope(cardID string) string { return "modal:" + cardID }

// Change describes a mutation, delivered to the change listener.
type Change struct {
	Kind string // "add", "move", "resize", "front", "remove", "replace"
	ID   string
}

// Store owns the elements of one scope. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	scope     string
	profile   Profile
	elems     []domain.PlacedElement
	now       func() time.Time
	lastStamp int64
	onChange  func(Change)
	log       *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used for element ids.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithChangeListener registers fn, called after every effective mutation
// outside the store lock.
func WithChangeListener(fn func(Change)) Option { return func(s *Store) { s.onChange = fn } }

// New creates an empty store for scope using profile for placement defaults.
func New(scope string, profile Profile, opts ...Option) *Store {
	s := &Store{
		scope:   scope,
		profile: profile,
		now:     time.Now,
		log:     applog.WithComponent("layout").With(slog.String("scope", scope)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scope returns the scope name.
func (s *Store) Scope() string { return s.scope }

// Profile returns the placement defaults.
func (s *Store) Profile() Profile { return s.profile }

// Add places a new element of type t built from the source item sourceID.
// Size comes from the profile, position from the cascade at the current
// length, and zIndex is one above the current maximum.
func (s *Store) Add(t domain.ElementType, sourceID string, data json.RawMessage) domain.PlacedElement {
	s.mu.Lock()
	idx := len(s.elems)
	el := domain.PlacedElement{
		ID:       s.nextIDLocked(t, sourceID),
		Type:     t,
		Data:     append(json.RawMessage(nil), data...),
		Position: s.profile.CascadePosition(idx),
		Size:     s.profile.DefaultSize(t),
		ZIndex:   s.maxZLocked() + 1,
	}
	s.elems = append(s.elems, el)
	s.mu.Unlock()

	s.log.Debug("element added", slog.String("id", el.ID), slog.String("type", string(t)))
	s.notify(Change{Kind: "add", ID: el.ID})
	return el.Clone()
}

// nextIDLocked builds "{type}-{sourceId}-{millis}". The millisecond stamp is
// strictly increasing per store and skips ids already present.
func (s *Store) nextIDLocked(t domain.ElementType, sourceID string) string {
	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	for {
		id := fmt.Sprintf("%s-%s-%d", t, sourceID, stamp)
		if s.indexLocked(id) < 0 {
			s.lastStamp = stamp
			return id
		}
		stamp++
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.elems {
		if s.elems[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) maxZLocked() int {
	m := 0
	for _, e := range s.elems {
		if e.ZIndex > m {
			m = e.ZIndex
		}
	}
	return m
}

// UpdatePosition moves the element. It reports whether the id was found.
func (s *Store) UpdatePosition(id string, x, y float64) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.elems[i].Position = geometry.Pt(x, y)
	}
	s.mu.Unlock()
	if i < 0 {
		return false
	}
	s.notify(Change{Kind: "move", ID: id})
	return true
}

// UpdateSize resizes the element after applying the minimum size floor.
func (s *Store) UpdateSize(id string, width, height float64) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.elems[i].Size = geometry.ClampSize(width, height)
	}
	s.mu.Unlock()
	if i < 0 {
		return false
	}
	s.notify(Change{Kind: "resize", ID: id})
	return true
}

// BringToFront sets the element's zIndex to 1 + max(zIndex, 0) over the
// scope, making it the unique maximum. Concurrent calls are last-writer-wins.
func (s *Store) BringToFront(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.elems[i].ZIndex = s.maxZLocked() + 1
	}
	s.mu.Unlock()
	if i < 0 {
		return false
	}
	s.notify(Change{Kind: "front", ID: id})
	return true
}

// Remove deletes the element with the given id.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.elems = append(s.elems[:i], s.elems[i+1:]...)
	}
	s.mu.Unlock()
	if i < 0 {
		return false
	}
	s.log.Debug("element removed", slog.String("id", id))
	s.notify(Change{Kind: "remove", ID: id})
	return true
}

// Replace loads l as the scope content. Elements with an id already seen are
// dropped and negative z values are raised to zero.
func (s *Store) Replace(l domain.Layout) {
	seen := make(map[string]struct{}, len(l))
	next := make([]domain.PlacedElement, 0, len(l))
	for _, e := range l {
		if _, dup := seen[e.ID]; dup || e.ID == "" {
			s.log.Warn("dropping element with duplicate or empty id", slog.String("id", e.ID))
			continue
		}
		seen[e.ID] = struct{}{}
		c := e.Clone()
		if c.ZIndex < 0 {
			c.ZIndex = 0
		}
		next = append(next, c)
	}
	s.mu.Lock()
	s.elems = next
	s.mu.Unlock()
	s.notify(Change{Kind: "replace"})
}

// Elements returns a copy of the layout in insertion order.
func (s *Store) Elements() domain.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Layout(s.elems).Clone()
}

// DrawOrder returns a copy sorted by zIndex, insertion order breaking ties.
// The last element is drawn on top.
func (s *Store) DrawOrder() domain.Layout {
	l := s.Elements()
	sort.SliceStable(l, func(i, j int) bool { return l[i].ZIndex < l[j].ZIndex })
	return l
}

// Element returns a copy of the element with the given id.
func (s *Store) Element(id string) (domain.PlacedElement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.elems[i].Clone(), true
	}
	return domain.PlacedElement{}, false
}

// Len returns the number of elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elems)
}

// HitTest returns the topmost element containing p.
func (s *Store) HitTest(p geometry.Point) (domain.PlacedElement, bool) {
	order := s.DrawOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if order[i].Bounds().Contains(p) {
			return order[i], true
		}
	}
	return domain.PlacedElement{}, false
}

func (s *Store) notify(c Change) {
	if s.onChange != nil {
		s.onChange(c)
	}
}
