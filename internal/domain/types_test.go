/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestThemeIDAcceptsNumberAndString(t *testing.T) {
	var a, b struct {
		ThemeID ThemeID `json:"themeId"`
	}
	if err := json.Unmarshal([]byte(`{"themeId": 12}`), &a); err != nil {
		t.Fatalf("number: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"themeId": "12"}`), &b); err != nil {
		t.Fatalf("string: %v", err)
	}
	if a.ThemeID != "12" || b.ThemeID != "12" {
		t.Fatalf("got %q and %q", a.ThemeID, b.ThemeID)
	}
	out, _ := json.Marshal(a)
	if !strings.Contains(string(out), `"themeId":"12"`) {
		t.Fatalf("ThemeID must be written as a string: %s", out)
	}
}

func TestConfigurationDecodesStoredDocument(t *testing.T) {
	doc := `{
		"themeId": 3,
		"themeData": {"id": 3, "name": "Égypte"},
		"elements": [{"id": "card-7-1700000000000", "type": "card", "data": 7,
			"position": {"x": 80, "y": 80}, "size": {"width": 230, "height": 520}, "zIndex": 1}],
		"modalConfigs": {"7": [{"id": "text-1700000000001", "type": "text", "data": {"id": "text-1", "content": "Hello"},
			"position": {"x": 50, "y": 50}, "size": {"width": 500, "height": 300}, "zIndex": 1}]},
		"savedAt": "2024-05-01T10:00:00.000Z"
	}`
	var c TabletConfiguration
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.Valid() || c.ThemeID != "3" || len(c.Elements) != 1 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Elements[0].Size.Height != 520 || c.Elements[0].ZIndex != 1 {
		t.Fatalf("element fields lost: %+v", c.Elements[0])
	}
	m, ok := c.Modal("7")
	if !ok || len(m) != 1 || m[0].Type != TypeText {
		t.Fatalf("modal lookup failed: %v %+v", ok, m)
	}
	if _, ok := c.Modal("8"); ok {
		t.Fatalf("absent modal must report false")
	}
	if c.SavedAt.Year() != 2024 {
		t.Fatalf("savedAt not parsed: %v", c.SavedAt)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := &TabletConfiguration{
		ThemeID:      "1",
		Elements:     Layout{{ID: "a", Type: TypeCard, Data: json.RawMessage(`1`)}},
		ModalConfigs: map[string]Layout{"1": {{ID: "b", Type: TypeText}}},
	}
	d := c.Clone()
	d.Elements[0].Data[0] = '9'
	d.ModalConfigs["1"][0].ID = "changed"
	if string(c.Elements[0].Data) != "1" || c.ModalConfigs["1"][0].ID != "b" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestCardRefID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`42`, "42", true},
		{`"42"`, "42", true},
		{`{"id": 42, "title": "X"}`, "42", true},
		{`{"id": "42"}`, "42", true},
		{`{"title": "no id"}`, "", false},
		{`"abc"`, "", false},
		{`null`, "", false},
		{``, "", false},
	}
	for _, c := range cases {
		got, ok := CardRefID(json.RawMessage(c.in))
		if got != c.want || ok != c.ok {
			t.Errorf("CardRefID(%s) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestElementTypeValid(t *testing.T) {
	for _, et := range ElementTypes() {
		if !et.Valid() {
			t.Errorf("%q should be valid", et)
		}
	}
	if ElementType("balloon").Valid() {
		t.Fatalf("unknown type accepted")
	}
}
