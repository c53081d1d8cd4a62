/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
)

func el(id string, typ domain.ElementType, data string, x, y float64, z int) domain.PlacedElement {
	return domain.PlacedElement{
		ID:       id,
		Type:     typ,
		Data:     json.RawMessage(data),
		Position: geometry.Pt(x, y),
		Size:     geometry.Sz(200, 150),
		ZIndex:   z,
	}
}

func sampleModals() map[string]domain.Layout {
	return map[string]domain.Layout{
		"7": {el("text-1", domain.TypeText, `{"id":"text-1","content":"Bonjour"}`, 50, 50, 1)},
		"9": {el("media-4-1", domain.TypeMedia, `{"id":4,"publicPath":"a.png","sourceType":"card"}`, 70, 70, 1)},
	}
}

// eachSlot runs fn against every slot implementation.
func eachSlot(t *testing.T, fn func(t *testing.T, slot Slot)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemorySlot()) })
	t.Run("file", func(t *testing.T) {
		fs, err := NewFileSlot(t.TempDir(), 3)
		if err != nil {
			t.Fatal(err)
		}
		fn(t, fs)
	})
	t.Run("sqlite", func(t *testing.T) {
		ss, err := OpenSQLiteSlot(t.TempDir())
		if err != nil {
			t.Fatalf("OpenSQLiteSlot: %v", err)
		}
		t.Cleanup(func() { _ = ss.Close() })
		fn(t, ss)
	})
}

func TestSaveThenGetRoundTrip(t *testing.T) {
	eachSlot(t, func(t *testing.T, slot Slot) {
		now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
		s := NewTabletStore(slot, WithNow(func() time.Time { return now }))
		elements := domain.Layout{
			el("card-7-1", domain.TypeCard, `7`, 80, 80, 1),
			el("color-2-2", domain.TypeColor, `{"id":2,"colorCode":"#ff0000"}`, 120, 120, 2),
		}
		theme := json.RawMessage(`{"id":3,"name":"Égypte","cards":[]}`)
		if !s.SaveCompleteLayout("3", theme, elements, sampleModals()) {
			t.Fatalf("SaveCompleteLayout returned false")
		}
		got := s.GetCompleteLayout()
		if got == nil {
			t.Fatalf("GetCompleteLayout returned nil")
		}
		if got.ThemeID != "3" || !reflect.DeepEqual(got.Elements, elements) {
			t.Fatalf("main layout mismatch:\n got %+v\nwant %+v", got.Elements, elements)
		}
		if !reflect.DeepEqual(got.ModalConfigs, sampleModals()) {
			t.Fatalf("modal configs mismatch: %+v", got.ModalConfigs)
		}
		var th map[string]any
		if err := json.Unmarshal(got.ThemeData, &th); err != nil || th["name"] != "Égypte" {
			t.Fatalf("theme snapshot mismatch: %s", got.ThemeData)
		}
		if !got.SavedAt.Equal(now.Truncate(time.Millisecond)) {
			t.Fatalf("savedAt = %v", got.SavedAt)
		}
		if !s.HasValidConfiguration() {
			t.Fatalf("HasValidConfiguration = false")
		}
	})
}

func TestUpdateModalConfigKeepsSiblings(t *testing.T) {
	eachSlot(t, func(t *testing.T, slot Slot) {
		s := NewTabletStore(slot)
		main := domain.Layout{el("card-7-1", domain.TypeCard, `7`, 80, 80, 1)}
		if !s.SaveCompleteLayout("3", nil, main, sampleModals()) {
			t.Fatalf("save failed")
		}
		fresh := domain.Layout{el("text-9", domain.TypeText, `{"id":"text-9","content":"Nouveau"}`, 10, 10, 4)}
		if !s.UpdateModalConfig("7", fresh) {
			t.Fatalf("UpdateModalConfig returned false")
		}
		got := s.GetCompleteLayout()
		if !reflect.DeepEqual(got.Elements, main) {
			t.Fatalf("main layout changed: %+v", got.Elements)
		}
		if !reflect.DeepEqual(got.ModalConfigs["7"], fresh) {
			t.Fatalf("modal 7 not replaced: %+v", got.ModalConfigs["7"])
		}
		if !reflect.DeepEqual(got.ModalConfigs["9"], sampleModals()["9"]) {
			t.Fatalf("sibling modal 9 changed: %+v", got.ModalConfigs["9"])
		}
		if l, ok := s.GetModalConfig("7"); !ok || len(l) != 1 || l[0].ID != "text-9" {
			t.Fatalf("GetModalConfig = %+v, %v", l, ok)
		}
		if _, ok := s.GetModalConfig("404"); ok {
			t.Fatalf("unknown card must have no modal config")
		}
	})
}

func TestNilModalLayoutStoresAsEmpty(t *testing.T) {
	eachSlot(t, func(t *testing.T, slot Slot) {
		s := NewTabletStore(slot)
		main := domain.Layout{el("card-7-1", domain.TypeCard, `7`, 80, 80, 1)}
		modals := map[string]domain.Layout{"7": nil}
		if !s.SaveCompleteLayout("3", nil, main, modals) {
			t.Fatalf("save with a nil modal layout failed")
		}
		if modals["7"] != nil {
			t.Fatalf("caller's map was modified")
		}
		if l, ok := s.GetModalConfig("7"); !ok || l == nil || len(l) != 0 {
			t.Fatalf("GetModalConfig(7) = %#v, %v", l, ok)
		}
		if !s.UpdateModalConfig("9", nil) {
			t.Fatalf("UpdateModalConfig with a nil layout returned false")
		}
		got := s.GetCompleteLayout()
		if l, ok := got.ModalConfigs["9"]; !ok || len(l) != 0 {
			t.Fatalf("modal 9 = %#v, %v", l, ok)
		}
		if !reflect.DeepEqual(got.Elements, main) {
			t.Fatalf("main layout changed: %+v", got.Elements)
		}
	})
}

func TestElementWithoutDataRoundTrips(t *testing.T) {
	s := NewTabletStore(NewMemorySlot())
	elements := domain.Layout{{ID: "color-2-1", Type: domain.TypeColor, Position: geometry.Pt(10, 10), Size: geometry.Sz(200, 150), ZIndex: 1}}
	if !s.SaveCompleteLayout("3", nil, elements, nil) {
		t.Fatalf("save failed")
	}
	got := s.GetCompleteLayout()
	if !reflect.DeepEqual(got.Elements, elements) {
		t.Fatalf("elements mismatch: got data %q", got.Elements[0].Data)
	}
}

func TestUpdateModalConfigWithoutConfigFails(t *testing.T) {
	eachSlot(t, func(t *testing.T, slot Slot) {
		s := NewTabletStore(slot)
		if s.UpdateModalConfig("7", domain.Layout{}) {
			t.Fatalf("UpdateModalConfig must fail without a saved configuration")
		}
		if s.GetCompleteLayout() != nil {
			t.Fatalf("a partial configuration was created")
		}
		if _, err := slot.Get(LayoutKey); !errors.Is(err, ErrNotFound) {
			t.Fatalf("slot must stay empty, got %v", err)
		}
	})
}

func TestClearRemovesConfiguration(t *testing.T) {
	eachSlot(t, func(t *testing.T, slot Slot) {
		s := NewTabletStore(slot)
		s.SaveCompleteLayout("1", nil, domain.Layout{}, nil)
		if !s.Clear() {
			t.Fatalf("Clear returned false")
		}
		if s.GetCompleteLayout() != nil || s.HasValidConfiguration() {
			t.Fatalf("configuration survived Clear")
		}
		if !s.Clear() {
			t.Fatalf("Clear on empty storage must succeed")
		}
	})
}

func TestCorruptOrForeignContentReadsAsAbsent(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"themeId": 3, "elements": [`,
		"token only":      `{"token":"abc"}`,
		"bad element":     `{"themeId": 3, "elements": [{"id": "x"}]}`,
		"unknown type":    `{"themeId": 3, "elements": [{"id":"x","type":"balloon","position":{"x":0,"y":0},"size":{"width":1,"height":1}}]}`,
		"negative zIndex": `{"themeId": 3, "elements": [{"id":"x","type":"card","position":{"x":0,"y":0},"size":{"width":1,"height":1},"zIndex":-1}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			slot := NewMemorySlot()
			_ = slot.Put(LayoutKey, []byte(doc))
			s := NewTabletStore(slot)
			if got := s.GetCompleteLayout(); got != nil {
				t.Fatalf("expected nil, got %+v", got)
			}
			if s.UpdateModalConfig("1", domain.Layout{}) {
				t.Fatalf("update on corrupt storage must fail")
			}
		})
	}
}

func TestLegacyDocumentWithoutZIndexOrModals(t *testing.T) {
	slot := NewMemorySlot()
	doc := `{"themeId": 5, "themeData": null, "elements": [{"id":"card-1-1","type":"card","data":1,"position":{"x":80,"y":80},"size":{"width":230,"height":520}}], "savedAt": "2024-01-01T00:00:00.000Z"}`
	_ = slot.Put(LayoutKey, []byte(doc))
	s := NewTabletStore(slot)
	got := s.GetCompleteLayout()
	if got == nil || got.ThemeID != "5" || got.Elements[0].ZIndex != 0 || got.ModalConfigs == nil {
		t.Fatalf("legacy document not accepted: %+v", got)
	}
	if !s.UpdateModalConfig("1", domain.Layout{}) {
		t.Fatalf("modal update on legacy document failed")
	}
}

func TestWriteFailureReturnsFalse(t *testing.T) {
	slot := NewMemorySlot()
	slot.Quota = 64
	s := NewTabletStore(slot)
	big := domain.Layout{el("card-1-1", domain.TypeCard, `{"id":1,"title":"a long enough title to blow the quota"}`, 0, 0, 1)}
	if s.SaveCompleteLayout("1", nil, big, nil) {
		t.Fatalf("save over quota must report false")
	}
	if s.GetCompleteLayout() != nil {
		t.Fatalf("nothing should be stored")
	}
}

func TestLegacyToken(t *testing.T) {
	slot := NewMemorySlot()
	s := NewTabletStore(slot)
	if _, ok := s.LegacyToken(); ok {
		t.Fatalf("no token expected")
	}
	_ = slot.Put(LegacyTokenKey, []byte(`{"token":"jwt.value.sig"}`))
	if tok, ok := s.LegacyToken(); !ok || tok != "jwt.value.sig" {
		t.Fatalf("LegacyToken = %q, %v", tok, ok)
	}
	// the token entry is not a configuration
	if s.GetCompleteLayout() != nil {
		t.Fatalf("legacy token must not read as configuration")
	}
	s.ClearLegacyToken()
	if _, ok := s.LegacyToken(); ok {
		t.Fatalf("token not cleared")
	}
}

func TestAutosaveCrashSnapshotUsesSeparateKey(t *testing.T) {
	slot := NewMemorySlot()
	s := NewTabletStore(slot)
	s.SaveCompleteLayout("1", nil, domain.Layout{}, nil)
	cfg := &domain.TabletConfiguration{ThemeID: "2", Elements: domain.Layout{}}
	if err := AutosaveCrashSnapshot(slot, cfg); err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if got := s.GetCompleteLayout(); got == nil || got.ThemeID != "1" {
		t.Fatalf("crash snapshot overwrote the saved layout: %+v", got)
	}
	if _, err := slot.Get(CrashKey); err != nil {
		t.Fatalf("crash snapshot missing: %v", err)
	}
}
