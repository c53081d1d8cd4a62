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
	"errors"
	"strings"
	"testing"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/interact"
	"museumkiosk/internal/telemetry"
)

func openConfigurator(t *testing.T) (*Configurator, *fakeSource, *recorder) {
	t.Helper()
	src, store, rec := newFixture()
	c := NewConfigurator(store, src, viewport, WithSink(rec), WithClock(fixedClock()))
	if err := c.Open(context.Background(), 7); err != nil {
		t.Fatalf("open: %v", err)
	}
	return c, src, rec
}

func TestConfiguratorRequiresOpen(t *testing.T) {
	src, store, rec := newFixture()
	c := NewConfigurator(store, src, viewport, WithSink(rec))
	if _, err := c.AddCard(1); !errors.Is(err, ErrNoTheme) {
		t.Fatalf("expected ErrNoTheme, got %v", err)
	}
	if c.Save() {
		t.Fatalf("save without theme should fail")
	}
	if c.Sidebar() != nil {
		t.Fatalf("sidebar should be empty before open")
	}
}

func TestConfiguratorOpenError(t *testing.T) {
	src, store, rec := newFixture()
	src.themeErr = errors.New("offline")
	c := NewConfigurator(store, src, viewport, WithSink(rec))
	if err := c.Open(context.Background(), 7); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSidebarListsThemeItems(t *testing.T) {
	c, _, _ := openConfigurator(t)
	items := c.Sidebar()
	var types []string
	for _, it := range items {
		types = append(types, string(it.Type)+":"+it.SourceID)
	}
	got := strings.Join(types, ",")
	want := "card:1,card:2,media:31,themeBackgroundImage:51,themeColor:61"
	if got != want {
		t.Fatalf("sidebar = %s, want %s", got, want)
	}
	el, err := c.Place(items[2])
	if err != nil || el.Type != domain.TypeMedia {
		t.Fatalf("place: %+v %v", el, err)
	}
	// 28% x 45% of the viewport
	if el.Size != geometry.Sz(280, 360) {
		t.Fatalf("media size = %+v", el.Size)
	}
}

func TestAddAndSaveMainLayout(t *testing.T) {
	c, _, rec := openConfigurator(t)
	card, err := c.AddCard(1)
	if err != nil {
		t.Fatalf("add card: %v", err)
	}
	if card.ID != "card-1-1740823200000" {
		t.Fatalf("card id = %s", card.ID)
	}
	if card.Position != geometry.Pt(80, 80) || card.Size != geometry.Sz(180, 520) {
		t.Fatalf("card placement = %+v %+v", card.Position, card.Size)
	}
	media, _ := c.AddMedia(31)
	if media.Position != geometry.Pt(120, 120) || media.ZIndex != card.ZIndex+1 {
		t.Fatalf("media placement = %+v z=%d", media.Position, media.ZIndex)
	}
	if _, err := c.AddThemeBackground(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddThemeColor(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddCard(99); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if !c.Remove(media.ID) {
		t.Fatalf("remove failed")
	}

	if !c.Save() {
		t.Fatalf("save failed")
	}
	cfg := c.store.GetCompleteLayout()
	if cfg == nil || cfg.ThemeID != "7" || len(cfg.Elements) != 3 {
		t.Fatalf("stored = %+v", cfg)
	}
	var snap domain.Theme
	if err := json.Unmarshal(cfg.ThemeData, &snap); err != nil || snap.Name != "Ocean" {
		t.Fatalf("theme snapshot = %s", cfg.ThemeData)
	}
	if rec.count(telemetry.EventLayoutSaved) != 1 {
		t.Fatalf("layout_saved events = %d", rec.count(telemetry.EventLayoutSaved))
	}
}

func TestOpenRestoresOnlySameTheme(t *testing.T) {
	c, src, _ := openConfigurator(t)
	_, _ = c.AddCard(2)
	if !c.Save() {
		t.Fatal("save failed")
	}

	again := NewConfigurator(c.store, src, viewport, WithSink(&recorder{}))
	if err := again.Open(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	if again.Main().Len() != 1 {
		t.Fatalf("expected saved layout restored, got %d", again.Main().Len())
	}

	other := oceanTheme()
	other.ID = 8
	src.theme = other
	fresh := NewConfigurator(c.store, src, viewport, WithSink(&recorder{}))
	if err := fresh.Open(context.Background(), 8); err != nil {
		t.Fatal(err)
	}
	if fresh.Main().Len() != 0 {
		t.Fatalf("layout of another theme must not be restored")
	}
}

func TestSavePreservesModalConfigs(t *testing.T) {
	c, _, _ := openConfigurator(t)
	_, _ = c.AddCard(1)
	if !c.Save() {
		t.Fatal("save failed")
	}
	ed, err := c.EditModal("1")
	if err != nil {
		t.Fatal(err)
	}
	ed.AddText()
	if !ed.Save() {
		t.Fatal("modal save failed")
	}

	_, _ = c.AddCard(2)
	if !c.Save() {
		t.Fatal("second save failed")
	}
	modal, ok := c.store.GetModalConfig("1")
	if !ok || len(modal) != 1 {
		t.Fatalf("modal config lost: %v %v", modal, ok)
	}
	if snap := c.Snapshot(); snap == nil || len(snap.ModalConfigs["1"]) != 1 || len(snap.Elements) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestModalEditorItems(t *testing.T) {
	c, _, rec := openConfigurator(t)
	if _, err := c.EditModal("99"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	ed, err := c.EditModal("1")
	if err != nil {
		t.Fatal(err)
	}
	if ed.Layout().Len() != 0 {
		t.Fatalf("absent modal should start empty")
	}

	text := ed.AddText()
	var tb domain.TextBlock
	if err := json.Unmarshal(text.Data, &tb); err != nil || tb.Content != "Largest animals alive" || tb.ID == "" {
		t.Fatalf("text block = %s", text.Data)
	}
	if text.Position != geometry.Pt(50, 50) || text.Size != geometry.Sz(500, 300) {
		t.Fatalf("text placement = %+v %+v", text.Position, text.Size)
	}

	mi, err := ed.AddMoreInfo(21)
	if err != nil || mi.Size != geometry.Sz(600, 400) || mi.Position != geometry.Pt(70, 70) {
		t.Fatalf("more info = %+v %v", mi, err)
	}

	cardMedia, err := ed.AddMedia(11, "")
	if err != nil {
		t.Fatal(err)
	}
	var m domain.Media
	_ = json.Unmarshal(cardMedia.Data, &m)
	if m.SourceType != SourceCard {
		t.Fatalf("card media source = %q", m.SourceType)
	}
	themeMedia, err := ed.AddMedia(31, SourceTheme)
	if err != nil {
		t.Fatal(err)
	}
	_ = json.Unmarshal(themeMedia.Data, &m)
	if m.SourceType != SourceTheme || m.ID != 31 {
		t.Fatalf("theme media = %+v", m)
	}
	if _, err := ed.AddMedia(31, SourceCard); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("theme media is not a card media")
	}
	col, err := ed.AddColor(41)
	if err != nil || col.Size != geometry.Sz(200, 150) {
		t.Fatalf("color = %+v %v", col, err)
	}
	if _, err := ed.AddThemeBackground(); err != nil {
		t.Fatal(err)
	}
	if _, err := ed.AddThemeColor(); err != nil {
		t.Fatal(err)
	}

	// Nothing saved for the main canvas yet.
	if ed.Save() {
		t.Fatalf("modal save must fail without a stored configuration")
	}
	if rec.count(telemetry.EventModalSaved) != 0 {
		t.Fatalf("no modal_saved event expected")
	}
}

func TestModalTextDefaultsWithoutDetail(t *testing.T) {
	c, _, _ := openConfigurator(t)
	ed, err := c.EditModal("2")
	if err != nil {
		t.Fatal(err)
	}
	var tb domain.TextBlock
	_ = json.Unmarshal(ed.AddText().Data, &tb)
	if tb.Content != DefaultTextContent {
		t.Fatalf("content = %q", tb.Content)
	}
}

func TestEditorsShareGestureLock(t *testing.T) {
	c, _, _ := openConfigurator(t)
	card, _ := c.AddCard(1)
	ed, _ := c.EditModal("1")
	text := ed.AddText()

	if err := c.Controller().PointerDown(1, card.ID, interact.Body, geometry.Pt(100, 100)); err != nil {
		t.Fatalf("main pointer down: %v", err)
	}
	err := ed.Controller().PointerDown(2, text.ID, interact.Body, geometry.Pt(60, 60))
	if !errors.Is(err, interact.ErrGestureActive) {
		t.Fatalf("expected ErrGestureActive, got %v", err)
	}
	c.Controller().PointerMove(1, geometry.Pt(130, 120))
	if out := c.Controller().PointerUp(1, geometry.Pt(130, 120)); out != interact.Drag {
		t.Fatalf("outcome = %v", out)
	}
	el, _ := c.Main().Element(card.ID)
	if el.Position != geometry.Pt(110, 100) {
		t.Fatalf("dragged to %+v", el.Position)
	}
	if err := ed.Controller().PointerDown(2, text.ID, interact.Body, geometry.Pt(60, 60)); err != nil {
		t.Fatalf("modal gesture after release: %v", err)
	}
	ed.Close()
}
