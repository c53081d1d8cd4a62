/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/enrich"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/layout"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/render"
	"museumkiosk/internal/storage"
	"museumkiosk/internal/telemetry"
)

// View is what the visitor display shows after a load.
type View struct {
	Config *domain.TabletConfiguration
	Scene  render.Scene
	// Stale is set when the theme could not be fetched and the saved snapshot was used.
	Stale bool
	// Failed lists card elements that kept their saved data.
	Failed []string
}

// Visitor is the read-only display of the stored configuration.
type Visitor struct {
	store    *storage.TabletStore
	api      ThemeSource
	viewport geometry.Size
	set      settings
	enricher *enrich.Enricher
	log      *slog.Logger

	mu        sync.Mutex
	current   *domain.TabletConfiguration
	openModal string
}

// NewVisitor creates a visitor display. Close it when the display goes away
// so pending enrichment results are dropped.
func NewVisitor(store *storage.TabletStore, api ThemeSource, viewport geometry.Size, opts ...Option) *Visitor {
	v := &Visitor{
		store:    store,
		api:      api,
		viewport: viewport,
		set:      newSettings(opts),
		log:      applog.WithComponent("kiosk").With(slog.String("mode", "visitor")),
	}
	v.enricher = enrich.New(enrich.FetcherFunc(api.FetchCard),
		enrich.WithLimit(v.set.enrichLimit),
		enrich.WithFailureHook(func(elementID string, err error) {
			v.set.sink.Event(telemetry.EventEnrichFailed, map[string]any{"element": elementID})
		}),
	)
	return v
}

// Load reads the stored configuration, refreshes the theme snapshot and the
// card contents, and builds the main scene.
func (v *Visitor) Load(ctx context.Context) (View, error) {
	ctx = applog.ContextWithScope(ctx, layout.MainScope)
	cfg := v.store.GetCompleteLayout()
	if !cfg.Valid() {
		return View{}, ErrNotConfigured
	}

	view := View{Config: cfg}
	if fresh, err := v.fetchTheme(ctx, cfg.ThemeID); err == nil {
		cfg.ThemeData = fresh
	} else {
		if !hasSnapshot(cfg.ThemeData) {
			return View{}, fmt.Errorf("load theme %s: %w", cfg.ThemeID, err)
		}
		v.log.WarnContext(ctx, "theme fetch failed, using saved snapshot", slog.String("theme", cfg.ThemeID.String()), slog.Any("err", err))
		view.Stale = true
	}

	res, err := v.enricher.Enrich(ctx, cfg.Elements)
	if err != nil {
		return View{}, err
	}
	cfg.Elements = res.Layout
	view.Failed = res.Failed
	view.Scene = render.Build(cfg.Elements, v.viewport, cfg.ThemeData, v.set.resolve)

	v.mu.Lock()
	v.current = cfg
	v.openModal = ""
	v.mu.Unlock()

	v.set.sink.Event(telemetry.EventVisitorLoaded, map[string]any{
		"elements": len(cfg.Elements),
		"failed":   len(res.Failed),
		"stale":    view.Stale,
	})
	v.log.InfoContext(ctx, "visitor view loaded", slog.Int("elements", len(cfg.Elements)), slog.Int("failed", len(res.Failed)))
	return view, nil
}

func (v *Visitor) fetchTheme(ctx context.Context, id domain.ThemeID) (json.RawMessage, error) {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("theme id %q: %w", id, err)
	}
	theme, err := v.api.FetchTheme(ctx, n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(theme)
}

func hasSnapshot(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// OpenModal builds the scene of the modal attached to cardID. Cards without a
// configured modal report false.
func (v *Visitor) OpenModal(cardID string) (render.Scene, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.current.Modal(cardID)
	if !ok {
		return render.Scene{}, false
	}
	v.openModal = cardID
	return render.Build(l, v.viewport, v.current.ThemeData, v.set.resolve), true
}

// OpenedModal returns the card whose modal is shown, if any.
func (v *Visitor) OpenedModal() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.openModal, v.openModal != ""
}

// CloseModal returns to the main scene.
func (v *Visitor) CloseModal() {
	v.mu.Lock()
	v.openModal = ""
	v.mu.Unlock()
}

// Reset is called after the inactivity timeout. It closes any open modal
// and reports whether one was open.
func (v *Visitor) Reset() bool {
	v.mu.Lock()
	was := v.openModal != ""
	v.openModal = ""
	v.mu.Unlock()
	v.set.sink.Event(telemetry.EventIdleReset, map[string]any{"modal_open": was})
	return was
}

// Close drops results of enrichment still in flight.
func (v *Visitor) Close() { v.enricher.Close() }

// IsDiscarded reports whether err means a Load finished after Close or
// cancellation.
func IsDiscarded(err error) bool { return errors.Is(err, enrich.ErrDiscarded) }
