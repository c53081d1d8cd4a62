/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package kiosk

import (
	"context"
	"errors"
	"sync"
	"time"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/storage"
)

type fakeSource struct {
	mu       sync.Mutex
	theme    domain.Theme
	themeErr error
	cards    map[int64]domain.Card
	cardErr  map[int64]error
	gate     chan struct{}
}

func (f *fakeSource) FetchTheme(_ context.Context, id int64) (domain.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.themeErr != nil {
		return domain.Theme{}, f.themeErr
	}
	if id != f.theme.ID {
		return domain.Theme{}, errors.New("no such theme")
	}
	return f.theme, nil
}

func (f *fakeSource) FetchCard(ctx context.Context, id int64) (domain.Card, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return domain.Card{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cardErr[id]; err != nil {
		return domain.Card{}, err
	}
	c, ok := f.cards[id]
	if !ok {
		return domain.Card{}, errors.New("no such card")
	}
	return c, nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Event(name string, _ map[string]any) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func oceanTheme() domain.Theme {
	return domain.Theme{
		ID:   7,
		Name: "Ocean",
		Cards: []domain.Card{
			{
				ID:        1,
				Title:     "Whales",
				Detail:    "Largest animals alive",
				Medias:    []domain.Media{{ID: 11, UserGivenName: "Whale", PublicPath: "/uploads/media/whale.jpg"}},
				MoreInfos: []domain.MoreInfo{{ID: 21, Title: "Diet", Details: "Krill"}},
			},
			{ID: 2, Title: "Sharks"},
		},
		Medias:               []domain.Media{{ID: 31, UserGivenName: "Reef", PublicPath: "reef.mp4"}},
		Colors:               []domain.Color{{ID: 41, Name: "Deep", ColorCode: "#112233"}},
		BackgroundImage:      &domain.Media{ID: 51, UserGivenName: "Sea", PublicPath: "bg.png"},
		ThemeBackgroundColor: &domain.Color{ID: 61, ColorCode: "#000000"},
	}
}

func newFixture() (*fakeSource, *storage.TabletStore, *recorder) {
	th := oceanTheme()
	src := &fakeSource{
		theme: th,
		cards: map[int64]domain.Card{
			1: {ID: 1, Title: "Whales (updated)"},
			2: {ID: 2, Title: "Sharks (updated)"},
		},
		cardErr: map[int64]error{},
	}
	return src, storage.NewTabletStore(storage.NewMemorySlot()), &recorder{}
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

var viewport = geometry.Sz(1000, 800)
