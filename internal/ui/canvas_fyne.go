//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"museumkiosk/internal/geometry"
	"museumkiosk/internal/interact"
	"museumkiosk/internal/render"
)

// pointerID is the only pointer a desktop mouse produces.
const pointerID = 0

// KioskCanvas draws a render.Scene scaled into the widget. With a controller
// attached, mouse gestures drag and resize elements; without one it is the
// visitor display and taps select boxes.
type KioskCanvas struct {
	widget.BaseWidget

	viewport geometry.Size
	scene    render.Scene
	ctrl     *interact.Controller
	selected string

	// OnChanged runs after a gesture wrote to the layout.
	OnChanged func()
	// OnSelect runs when a box is tapped.
	OnSelect func(render.Box)
	// OnTouch runs on every pointer interaction.
	OnTouch func()
}

func NewKioskCanvas(viewport geometry.Size) *KioskCanvas {
	k := &KioskCanvas{viewport: viewport}
	k.ExtendBaseWidget(k)
	return k
}

// SetScene replaces what is drawn.
func (k *KioskCanvas) SetScene(sc render.Scene) {
	k.scene = sc
	k.Refresh()
}

// SetController attaches the gesture controller of the scope being edited.
// nil makes the canvas read-only.
func (k *KioskCanvas) SetController(c *interact.Controller) {
	if k.ctrl != nil && k.ctrl != c {
		k.ctrl.Cancel()
	}
	k.ctrl = c
	k.selected = ""
}

// Selected returns the id of the last box pressed or tapped.
func (k *KioskCanvas) Selected() string { return k.selected }

// PreferredSize sets a decent default size for the widget.
func (k *KioskCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 500) }

// fit maps viewport coordinates into the widget.
func (k *KioskCanvas) fit() geometry.Affine2D {
	sz := k.Size()
	return geometry.Fit(geometry.R(0, 0, k.viewport.Width, k.viewport.Height), geometry.R(0, 0, float64(sz.Width), float64(sz.Height)))
}

func (k *KioskCanvas) toLogical(pos fyne.Position) geometry.Point {
	m := k.fit()
	if m.A == 0 || m.D == 0 {
		return geometry.Pt(float64(pos.X), float64(pos.Y))
	}
	return geometry.Pt((float64(pos.X)-m.E)/m.A, (float64(pos.Y)-m.F)/m.D)
}

func (k *KioskCanvas) toScreen(r geometry.Rect) (fyne.Position, fyne.Size) {
	s := k.fit().ApplyRect(r)
	return fyne.NewPos(float32(s.X), float32(s.Y)), fyne.NewSize(float32(s.W), float32(s.H))
}

func (k *KioskCanvas) touch() {
	if k.OnTouch != nil {
		k.OnTouch()
	}
}

func (k *KioskCanvas) changed() {
	if k.OnChanged != nil {
		k.OnChanged()
	}
}

// MouseDown starts a drag on the body or a resize on the handle of the
// topmost element under the pointer.
func (k *KioskCanvas) MouseDown(e *desktop.MouseEvent) {
	k.touch()
	if k.ctrl == nil {
		return
	}
	id, err := k.ctrl.PointerDownAt(pointerID, k.toLogical(e.Position))
	if err != nil {
		return
	}
	k.selected = id
	k.changed()
}

// MouseUp ends the gesture wherever the button is released.
func (k *KioskCanvas) MouseUp(e *desktop.MouseEvent) {
	if k.ctrl == nil {
		return
	}
	if k.ctrl.PointerUp(pointerID, k.toLogical(e.Position)) != interact.None {
		k.changed()
	}
}

func (k *KioskCanvas) Dragged(e *fyne.DragEvent) {
	k.touch()
	if k.ctrl != nil && k.ctrl.PointerMove(pointerID, k.toLogical(e.Position)) {
		k.changed()
	}
}

func (k *KioskCanvas) DragEnd() {
	if k.ctrl != nil && k.ctrl.PointerUp(pointerID, geometry.Point{}) != interact.None {
		k.changed()
	}
}

// Tapped selects the topmost box under the pointer.
func (k *KioskCanvas) Tapped(e *fyne.PointEvent) {
	k.touch()
	b, ok := k.scene.At(k.toLogical(e.Position))
	if !ok {
		return
	}
	k.selected = b.ID
	if k.OnSelect != nil {
		k.OnSelect(b)
	}
	k.Refresh()
}

func (k *KioskCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	stage := canvas.NewRectangle(color.White)
	stage.StrokeColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	stage.StrokeWidth = 1
	r := &kioskCanvasRenderer{kc: k, bg: bg, stage: stage}
	r.Layout(k.Size())
	return r
}

// kioskCanvasRenderer rebuilds the box visuals on every layout.
type kioskCanvasRenderer struct {
	kc      *KioskCanvas
	bg      *canvas.Rectangle
	stage   *canvas.Rectangle
	boxes   []*canvas.Rectangle
	labels  []*canvas.Text
	objects []fyne.CanvasObject
}

func (r *kioskCanvasRenderer) Destroy()                     {}
func (r *kioskCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *kioskCanvasRenderer) MinSize() fyne.Size           { return r.kc.PreferredSize() }
func (r *kioskCanvasRenderer) Refresh()                     { r.Layout(r.kc.Size()); canvas.Refresh(r.kc) }

var (
	boxStroke      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	selectedStroke = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	handleFill     = color.RGBA{R: 0, G: 170, B: 255, A: 200}
)

func (r *kioskCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	sc := r.kc.scene
	pos, sz := r.kc.toScreen(geometry.R(0, 0, r.kc.viewport.Width, r.kc.viewport.Height))
	r.stage.FillColor = render.ColorOr(sc.BackgroundColor, "#ffffff")
	r.stage.Move(pos)
	r.stage.Resize(sz)

	r.boxes = r.boxes[:0]
	r.labels = r.labels[:0]
	objs := []fyne.CanvasObject{r.bg, r.stage}
	scale := float32(r.kc.fit().A)
	for _, b := range sc.Boxes {
		p, s := r.kc.toScreen(b.Rect)
		rc := canvas.NewRectangle(render.ColorOr(b.Fill, "#f0f0f0"))
		rc.StrokeColor = boxStroke
		rc.StrokeWidth = 1
		if b.ID == r.kc.selected {
			rc.StrokeColor = selectedStroke
			rc.StrokeWidth = 2
		}
		rc.Move(p)
		rc.Resize(s)
		objs = append(objs, rc)
		r.boxes = append(r.boxes, rc)

		txt := canvas.NewText(b.Label(), color.Black)
		txt.TextSize = 12
		txt.Move(fyne.NewPos(p.X+render.Padding*scale, p.Y+render.Padding*scale))
		objs = append(objs, txt)
		r.labels = append(r.labels, txt)

		if r.kc.ctrl != nil {
			hp, hs := r.kc.toScreen(b.Rect.Handle())
			h := canvas.NewRectangle(handleFill)
			h.Move(hp)
			h.Resize(hs)
			objs = append(objs, h)
		}
	}
	r.objects = objs
}
