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
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/interact"
	"museumkiosk/internal/layout"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/storage"
	"museumkiosk/internal/telemetry"
)

// SidebarItem is one thing the operator can drop onto the main canvas.
type SidebarItem struct {
	Type     domain.ElementType
	SourceID string
	Label    string
	Data     json.RawMessage
}

// Configurator edits the main canvas of one theme and the modal layouts of
// its cards. All editors it hands out share one gesture lock.
type Configurator struct {
	store    *storage.TabletStore
	api      ThemeSource
	viewport geometry.Size
	set      settings
	lock     *interact.GestureLock
	log      *slog.Logger

	mu        sync.Mutex
	theme     *domain.Theme
	themeData json.RawMessage
	main      *layout.Store
	ctrl      *interact.Controller
}

// NewConfigurator creates a configurator for a canvas of the given viewport.
func NewConfigurator(store *storage.TabletStore, api ThemeSource, viewport geometry.Size, opts ...Option) *Configurator {
	return &Configurator{
		store:    store,
		api:      api,
		viewport: viewport,
		set:      newSettings(opts),
		lock:     &interact.GestureLock{},
		log:      applog.WithComponent("kiosk"),
	}
}

// Open fetches the theme and starts a fresh main canvas. The saved layout is
// loaded only when it belongs to the same theme.
func (c *Configurator) Open(ctx context.Context, themeID int64) error {
	ctx = applog.ContextWithScope(ctx, layout.MainScope)
	theme, err := c.api.FetchTheme(ctx, themeID)
	if err != nil {
		return fmt.Errorf("open theme %d: %w", themeID, err)
	}
	main := layout.New(layout.MainScope, layout.MainProfile(c.viewport.Width, c.viewport.Height), layout.WithClock(c.set.now))
	restored := 0
	if saved := c.store.GetCompleteLayout(); saved != nil && saved.ThemeID == domain.ThemeID(idString(themeID)) {
		main.Replace(saved.Elements)
		restored = main.Len()
	}

	c.mu.Lock()
	if c.ctrl != nil {
		c.ctrl.Cancel()
	}
	c.theme = &theme
	c.themeData = mustJSON(theme)
	c.main = main
	c.ctrl = interact.NewController(main, interact.WithLock(c.lock))
	c.mu.Unlock()

	c.log.InfoContext(ctx, "theme opened", slog.Int64("theme", themeID), slog.Int("restored", restored))
	return nil
}

// Theme returns the opened theme.
func (c *Configurator) Theme() (domain.Theme, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.theme == nil {
		return domain.Theme{}, false
	}
	return *c.theme, true
}

// Main returns the main canvas store, or nil before Open.
func (c *Configurator) Main() *layout.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main
}

// Controller returns the gesture controller of the main canvas.
func (c *Configurator) Controller() *interact.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl
}

func (c *Configurator) opened() (*domain.Theme, *layout.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.theme == nil {
		return nil, nil, ErrNoTheme
	}
	return c.theme, c.main, nil
}

// Sidebar lists the theme's cards and medias followed by its background
// image and color when set.
func (c *Configurator) Sidebar() []SidebarItem {
	theme, _, err := c.opened()
	if err != nil {
		return nil
	}
	var items []SidebarItem
	for _, card := range theme.Cards {
		items = append(items, SidebarItem{Type: domain.TypeCard, SourceID: idString(card.ID), Label: card.Title, Data: mustJSON(card)})
	}
	for _, m := range theme.Medias {
		items = append(items, SidebarItem{Type: domain.TypeMedia, SourceID: idString(m.ID), Label: m.UserGivenName, Data: mustJSON(m)})
	}
	if bg := theme.BackgroundImage; bg != nil {
		items = append(items, SidebarItem{Type: domain.TypeThemeBackgroundImage, SourceID: idString(bg.ID), Label: bg.UserGivenName, Data: mustJSON(bg)})
	}
	if col := theme.ThemeBackgroundColor; col != nil {
		items = append(items, SidebarItem{Type: domain.TypeThemeColor, SourceID: idString(col.ID), Label: col.ColorCode, Data: mustJSON(col)})
	}
	return items
}

// Place drops a sidebar item on the main canvas.
func (c *Configurator) Place(item SidebarItem) (domain.PlacedElement, error) {
	_, main, err := c.opened()
	if err != nil {
		return domain.PlacedElement{}, err
	}
	return main.Add(item.Type, item.SourceID, item.Data), nil
}

// AddCard places the theme card id.
func (c *Configurator) AddCard(id int64) (domain.PlacedElement, error) {
	theme, main, err := c.opened()
	if err != nil {
		return domain.PlacedElement{}, err
	}
	card, ok := theme.CardByID(id)
	if !ok {
		return domain.PlacedElement{}, fmt.Errorf("card %d: %w", id, ErrUnknownItem)
	}
	return main.Add(domain.TypeCard, idString(id), mustJSON(card)), nil
}

// AddMedia places the theme media id.
func (c *Configurator) AddMedia(id int64) (domain.PlacedElement, error) {
	theme, main, err := c.opened()
	if err != nil {
		return domain.PlacedElement{}, err
	}
	m, ok := findMedia(theme.Medias, id)
	if !ok {
		return domain.PlacedElement{}, fmt.Errorf("media %d: %w", id, ErrUnknownItem)
	}
	return main.Add(domain.TypeMedia, idString(id), mustJSON(m)), nil
}

// AddThemeBackground places the theme's background image.
func (c *Configurator) AddThemeBackground() (domain.PlacedElement, error) {
	theme, main, err := c.opened()
	if err != nil {
		return domain.PlacedElement{}, err
	}
	if theme.BackgroundImage == nil {
		return domain.PlacedElement{}, fmt.Errorf("background image: %w", ErrUnknownItem)
	}
	bg := theme.BackgroundImage
	return main.Add(domain.TypeThemeBackgroundImage, idString(bg.ID), mustJSON(bg)), nil
}

// AddThemeColor places the theme's background color.
func (c *Configurator) AddThemeColor() (domain.PlacedElement, error) {
	theme, main, err := c.opened()
	if err != nil {
		return domain.PlacedElement{}, err
	}
	if theme.ThemeBackgroundColor == nil {
		return domain.PlacedElement{}, fmt.Errorf("background color: %w", ErrUnknownItem)
	}
	col := theme.ThemeBackgroundColor
	return main.Add(domain.TypeThemeColor, idString(col.ID), mustJSON(col)), nil
}

// Remove deletes an element from the main canvas.
func (c *Configurator) Remove(id string) bool {
	_, main, err := c.opened()
	if err != nil {
		return false
	}
	return main.Remove(id)
}

// Save stores the main canvas together with the theme snapshot. Modal
// layouts already on the device are carried over unchanged.
func (c *Configurator) Save() bool {
	theme, main, err := c.opened()
	if err != nil {
		c.log.Warn("save without theme")
		return false
	}
	c.mu.Lock()
	themeData := c.themeData
	c.mu.Unlock()

	var modals map[string]domain.Layout
	if prev := c.store.GetCompleteLayout(); prev != nil {
		modals = prev.ModalConfigs
	}
	if modals == nil {
		modals = map[string]domain.Layout{}
	}
	elems := main.Elements()
	if !c.store.SaveCompleteLayout(domain.ThemeID(idString(theme.ID)), themeData, elems, modals) {
		return false
	}
	c.set.sink.Event(telemetry.EventLayoutSaved, map[string]any{"elements": len(elems), "modals": len(modals)})
	c.log.Info("layout saved", slog.Int64("theme", theme.ID), slog.Int("elements", len(elems)))
	return true
}

// Snapshot returns the configuration as it would be saved now. It is used for
// crash autosaves.
func (c *Configurator) Snapshot() *domain.TabletConfiguration {
	theme, main, err := c.opened()
	if err != nil {
		return nil
	}
	c.mu.Lock()
	themeData := c.themeData
	c.mu.Unlock()
	cfg := &domain.TabletConfiguration{ThemeID: domain.ThemeID(idString(theme.ID)), ThemeData: themeData, Elements: main.Elements()}
	if prev := c.store.GetCompleteLayout(); prev != nil {
		cfg.ModalConfigs = prev.ModalConfigs
	}
	return cfg
}

// EditModal opens the modal layout of a card placed from this theme. An
// absent entry starts empty.
func (c *Configurator) EditModal(cardID string) (*ModalEditor, error) {
	theme, _, err := c.opened()
	if err != nil {
		return nil, err
	}
	var card domain.Card
	found := false
	for _, tc := range theme.Cards {
		if idString(tc.ID) == cardID {
			card, found = tc, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrUnknownItem)
	}
	st := layout.New(layout.ModalScope(cardID), layout.ModalProfile(), layout.WithClock(c.set.now))
	if l, ok := c.store.GetModalConfig(cardID); ok {
		st.Replace(l)
	}
	return &ModalEditor{
		cardID: cardID,
		card:   card,
		theme:  *theme,
		store:  c.store,
		modal:  st,
		ctrl:   interact.NewController(st, interact.WithLock(c.lock)),
		sink:   c.set.sink,
		log:    c.log.With(slog.String("scope", layout.ModalScope(cardID))),
	}, nil
}
