//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based kiosk canvas. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/interact"
	"museumkiosk/internal/layout"
	"museumkiosk/internal/render"
)

func almostEqual(a, b, eps float64) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func newTestCanvas(t *testing.T) (*KioskCanvas, *layout.Store) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	st := layout.New(layout.MainScope, layout.MainProfile(1000, 800))
	kc := NewKioskCanvas(geometry.Sz(1000, 800))
	kc.Resize(fyne.NewSize(500, 400))
	return kc, st
}

func TestKioskCanvas_CoordinateMapping(t *testing.T) {
	kc, _ := newTestCanvas(t)
	p := kc.toLogical(fyne.NewPos(250, 200))
	if !almostEqual(p.X, 500, 0.5) || !almostEqual(p.Y, 400, 0.5) {
		t.Fatalf("center maps to %+v", p)
	}
	pos, sz := kc.toScreen(geometry.R(100, 100, 200, 100))
	if !almostEqual(float64(pos.X), 50, 0.5) || !almostEqual(float64(sz.Width), 100, 0.5) {
		t.Fatalf("screen rect = %v %v", pos, sz)
	}
}

func TestKioskCanvas_DragThroughController(t *testing.T) {
	kc, st := newTestCanvas(t)
	el := st.Add(domain.TypeMedia, "1", nil)
	kc.SetController(interact.NewController(st))
	changes := 0
	kc.OnChanged = func() {
		changes++
		kc.SetScene(render.Build(st.Elements(), geometry.Sz(1000, 800), nil, nil))
	}

	// Element sits at (80,80) logical, i.e. (40,40) on screen at half scale.
	kc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 50)}})
	if kc.Selected() != el.ID {
		t.Fatalf("selected = %q", kc.Selected())
	}
	kc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 75)}})
	kc.DragEnd()

	got, _ := st.Element(el.ID)
	if !almostEqual(got.Position.X, 180, 0.5) || !almostEqual(got.Position.Y, 130, 0.5) {
		t.Fatalf("position after drag = %+v", got.Position)
	}
	if changes < 2 {
		t.Fatalf("expected change notifications, got %d", changes)
	}
}

func TestKioskCanvas_VisitorTapSelects(t *testing.T) {
	kc, st := newTestCanvas(t)
	st.Add(domain.TypeCard, "7", []byte(`7`))
	kc.SetScene(render.Build(st.Elements(), geometry.Sz(1000, 800), nil, nil))

	var tapped render.Box
	kc.OnSelect = func(b render.Box) { tapped = b }
	touches := 0
	kc.OnTouch = func() { touches++ }
	kc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(60, 60)})
	if tapped.CardID != "7" {
		t.Fatalf("tapped = %+v", tapped)
	}
	kc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(5, 5)})
	if touches != 2 {
		t.Fatalf("touches = %d", touches)
	}
	// Read-only: mouse gestures do nothing.
	kc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 60)}})
	kc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 60)}})
}

func TestKioskCanvas_RendererObjects(t *testing.T) {
	kc, st := newTestCanvas(t)
	st.Add(domain.TypeMedia, "1", nil)
	st.Add(domain.TypeMedia, "2", nil)
	kc.SetScene(render.Build(st.Elements(), geometry.Sz(1000, 800), nil, nil))
	r, ok := kc.CreateRenderer().(*kioskCanvasRenderer)
	if !ok {
		t.Fatalf("expected kioskCanvasRenderer, got %T", kc.CreateRenderer())
	}
	r.Layout(fyne.NewSize(500, 400))
	if len(r.boxes) != 2 || len(r.labels) != 2 {
		t.Fatalf("boxes=%d labels=%d", len(r.boxes), len(r.labels))
	}
	// bg + stage + 2 boxes + 2 labels, no handles without a controller
	if len(r.Objects()) != 6 {
		t.Fatalf("objects = %d", len(r.Objects()))
	}
}
