//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/kiosk"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/render"
)

const loadTimeout = 30 * time.Second

// Run opens the kiosk window and blocks until it is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.Bool("visitor", opts.Visitor))
	if opts.Store == nil || opts.API == nil {
		return fmt.Errorf("ui: store and content API are required")
	}

	fyneApp := app.NewWithID("museumkiosk")
	w := fyneApp.NewWindow("Museum Kiosk")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", int(opts.Viewport.Width))
	winH := prefs.IntWithFallback("window.height", int(opts.Viewport.Height))
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	if opts.Visitor {
		runVisitor(w, opts, l)
	} else {
		runConfigurator(w, opts, l)
	}
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	w.ShowAndRun()
	return nil
}

func runConfigurator(w fyne.Window, opts Options, l *slog.Logger) {
	cfgr := kiosk.NewConfigurator(opts.Store, opts.API, opts.Viewport)
	if opts.Crash != nil {
		opts.Crash.Snapshot = cfgr.Snapshot
	}
	status := widget.NewLabel("Enter a theme id and press Open.")
	kc := NewKioskCanvas(opts.Viewport)

	var modal *kiosk.ModalEditor
	var themeData json.RawMessage

	redraw := func() {
		main := cfgr.Main()
		if main == nil {
			return
		}
		if modal != nil {
			kc.SetScene(render.Build(modal.Layout().Elements(), opts.Viewport, nil, opts.Resolve))
			return
		}
		kc.SetScene(render.Build(main.Elements(), opts.Viewport, themeData, opts.Resolve))
	}
	kc.OnChanged = redraw

	var items []kiosk.SidebarItem
	sidebar := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it := items[i]
			label := it.Label
			if strings.TrimSpace(label) == "" {
				label = it.SourceID
			}
			o.(*widget.Label).SetText(fmt.Sprintf("%s: %s", it.Type, label))
		},
	)
	sidebar.OnSelected = func(id widget.ListItemID) {
		defer sidebar.UnselectAll()
		if id < 0 || int(id) >= len(items) {
			return
		}
		if modal != nil {
			status.SetText("Close the modal editor to add items to the main canvas.")
			return
		}
		el, err := cfgr.Place(items[id])
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		l.Info("element placed", slog.String("id", el.ID))
		redraw()
	}

	themeEntry := widget.NewEntry()
	themeEntry.SetPlaceHolder("Theme id")
	if opts.ThemeID > 0 {
		themeEntry.SetText(strconv.FormatInt(opts.ThemeID, 10))
	}
	openTheme := func() {
		id, err := strconv.ParseInt(strings.TrimSpace(themeEntry.Text), 10, 64)
		if err != nil {
			dialog.ShowError(fmt.Errorf("invalid theme id %q", themeEntry.Text), w)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := cfgr.Open(ctx, id); err != nil {
			dialog.ShowError(err, w)
			status.SetText("Theme could not be loaded.")
			return
		}
		th, _ := cfgr.Theme()
		themeData, _ = json.Marshal(th)
		modal = nil
		kc.SetController(cfgr.Controller())
		items = cfgr.Sidebar()
		sidebar.Refresh()
		status.SetText(fmt.Sprintf("Theme %q opened.", th.Name))
		redraw()
	}

	var btnBack *widget.Button
	btnSave := widget.NewButton("Save", func() {
		if modal != nil {
			if !modal.Save() {
				dialog.ShowInformation("Not saved", "Save the main layout before editing card modals.", w)
				return
			}
			status.SetText(fmt.Sprintf("Modal of card %s saved.", modal.CardID()))
			return
		}
		if !cfgr.Save() {
			dialog.ShowInformation("Not saved", "The layout could not be stored. See the log for details.", w)
			return
		}
		status.SetText("Layout saved.")
	})
	btnRemove := widget.NewButton("Remove", func() {
		id := kc.Selected()
		if id == "" {
			return
		}
		if modal != nil {
			modal.Remove(id)
		} else {
			cfgr.Remove(id)
		}
		redraw()
	})
	btnModal := widget.NewButton("Edit Modal", func() {
		main := cfgr.Main()
		if main == nil || modal != nil {
			return
		}
		el, ok := main.Element(kc.Selected())
		if !ok || el.Type != domain.TypeCard {
			status.SetText("Select a card first.")
			return
		}
		cardID, ok := domain.CardRefID(el.Data)
		if !ok {
			return
		}
		ed, err := cfgr.EditModal(cardID)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		modal = ed
		kc.SetController(ed.Controller())
		btnBack.Enable()
		status.SetText(fmt.Sprintf("Editing the modal of card %s.", cardID))
		redraw()
	})
	btnText := widget.NewButton("Add Text", func() {
		if modal == nil {
			return
		}
		modal.AddText()
		redraw()
	})
	btnBack = widget.NewButton("Back to Main", func() {
		if modal == nil {
			return
		}
		modal.Close()
		modal = nil
		kc.SetController(cfgr.Controller())
		btnBack.Disable()
		redraw()
	})
	btnBack.Disable()

	top := container.NewBorder(nil, nil, widget.NewLabel("Theme"), widget.NewButton("Open", openTheme), themeEntry)
	toolbar := container.NewHBox(btnSave, btnRemove, btnModal, btnText, btnBack)
	left := container.NewBorder(widget.NewLabel("Sidebar"), nil, nil, nil, sidebar)
	split := container.NewHSplit(left, kc)
	split.Offset = 0.22
	w.SetContent(container.NewBorder(container.NewVBox(top, toolbar), status, nil, nil, split))

	if opts.ThemeID > 0 {
		openTheme()
	}
}

func runVisitor(w fyne.Window, opts Options, l *slog.Logger) {
	v := kiosk.NewVisitor(opts.Store, opts.API, opts.Viewport, kiosk.WithResolver(opts.Resolve))
	kc := NewKioskCanvas(opts.Viewport)
	status := widget.NewLabel("")

	var main render.Scene
	showMain := func() {
		kc.SetScene(main)
		status.SetText("")
	}
	load := func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		view, err := v.Load(ctx)
		if err != nil {
			if kiosk.IsDiscarded(err) {
				return
			}
			l.Error("visitor load failed", slog.Any("err", err))
			status.SetText("This kiosk is not configured yet.")
			return
		}
		main = view.Scene
		showMain()
		if view.Stale {
			l.Warn("showing saved theme snapshot")
		}
	}

	idle := kiosk.NewIdleWatcher(opts.IdleTimeout, func() {
		fyne.Do(func() {
			if v.Reset() {
				showMain()
			}
		})
	})
	kc.OnTouch = idle.Touch
	kc.OnSelect = func(b render.Box) {
		if _, open := v.OpenedModal(); open || b.CardID == "" {
			return
		}
		sc, ok := v.OpenModal(b.CardID)
		if !ok {
			return
		}
		kc.SetScene(sc)
		status.SetText(b.Title)
	}
	btnClose := widget.NewButton("Close", func() {
		v.CloseModal()
		showMain()
		idle.Touch()
	})

	w.SetContent(container.NewBorder(nil, container.NewBorder(nil, nil, nil, btnClose, status), nil, nil, kc))
	w.SetOnClosed(func() {
		idle.Stop()
		v.Close()
	})
	load()
	idle.Start()
}
