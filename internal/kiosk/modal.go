/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package kiosk

import (
	"fmt"
	"log/slog"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/interact"
	"museumkiosk/internal/layout"
	"museumkiosk/internal/storage"
	"museumkiosk/internal/telemetry"

	"github.com/google/uuid"
)

// Media source types recorded on medias placed in a modal.
const (
	SourceCard  = "card"
	SourceTheme = "theme"
)

// ModalEditor edits the detail modal of one card.
type ModalEditor struct {
	cardID string
	card   domain.Card
	theme  domain.Theme
	store  *storage.TabletStore
	modal  *layout.Store
	ctrl   *interact.Controller
	sink   telemetry.Sink
	log    *slog.Logger
}

// CardID returns the card the modal belongs to.
func (m *ModalEditor) CardID() string { return m.cardID }

// Layout returns the modal's layout store.
func (m *ModalEditor) Layout() *layout.Store { return m.modal }

// Controller returns the modal's gesture controller.
func (m *ModalEditor) Controller() *interact.Controller { return m.ctrl }

// AddText places a text block seeded with the card detail.
func (m *ModalEditor) AddText() domain.PlacedElement {
	content := m.card.Detail
	if content == "" {
		content = DefaultTextContent
	}
	tb := domain.TextBlock{ID: uuid.NewString(), Content: content}
	return m.modal.Add(domain.TypeText, tb.ID, mustJSON(tb))
}

// AddMoreInfo places one of the card's extra sections.
func (m *ModalEditor) AddMoreInfo(id int64) (domain.PlacedElement, error) {
	for _, mi := range m.card.MoreInfos {
		if mi.ID == id {
			return m.modal.Add(domain.TypeMoreInfo, idString(id), mustJSON(mi)), nil
		}
	}
	return domain.PlacedElement{}, fmt.Errorf("more info %d: %w", id, ErrUnknownItem)
}

// AddMedia places a media of the card, or of the theme when source is
// SourceTheme. An empty source means SourceCard.
func (m *ModalEditor) AddMedia(id int64, source string) (domain.PlacedElement, error) {
	if source == "" {
		source = SourceCard
	}
	pool := m.card.Medias
	if source == SourceTheme {
		pool = m.theme.Medias
	}
	media, ok := findMedia(pool, id)
	if !ok {
		return domain.PlacedElement{}, fmt.Errorf("%s media %d: %w", source, id, ErrUnknownItem)
	}
	media.SourceType = source
	return m.modal.Add(domain.TypeMedia, idString(id), mustJSON(media)), nil
}

// AddThemeBackground places the theme's background image in the modal.
func (m *ModalEditor) AddThemeBackground() (domain.PlacedElement, error) {
	bg := m.theme.BackgroundImage
	if bg == nil {
		return domain.PlacedElement{}, fmt.Errorf("background image: %w", ErrUnknownItem)
	}
	media := *bg
	media.SourceType = SourceTheme
	return m.modal.Add(domain.TypeThemeBackgroundImage, idString(media.ID), mustJSON(media)), nil
}

// AddThemeColor places the theme's background color in the modal.
func (m *ModalEditor) AddThemeColor() (domain.PlacedElement, error) {
	col := m.theme.ThemeBackgroundColor
	if col == nil {
		return domain.PlacedElement{}, fmt.Errorf("background color: %w", ErrUnknownItem)
	}
	return m.modal.Add(domain.TypeThemeColor, idString(col.ID), mustJSON(col)), nil
}

// AddColor places one of the theme's palette colors.
func (m *ModalEditor) AddColor(id int64) (domain.PlacedElement, error) {
	for _, col := range m.theme.Colors {
		if col.ID == id {
			return m.modal.Add(domain.TypeColor, idString(id), mustJSON(col)), nil
		}
	}
	return domain.PlacedElement{}, fmt.Errorf("color %d: %w", id, ErrUnknownItem)
}

// Remove deletes an element from the modal.
func (m *ModalEditor) Remove(id string) bool { return m.modal.Remove(id) }

// Save writes the modal layout into the stored configuration. It fails when
// the main layout has never been saved.
func (m *ModalEditor) Save() bool {
	elems := m.modal.Elements()
	if !m.store.UpdateModalConfig(m.cardID, elems) {
		return false
	}
	m.sink.Event(telemetry.EventModalSaved, map[string]any{"elements": len(elems)})
	m.log.Info("modal saved", slog.Int("elements", len(elems)))
	return true
}

// Close aborts a gesture in progress.
func (m *ModalEditor) Close() { m.ctrl.Cancel() }
