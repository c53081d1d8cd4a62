/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package kiosk wires the layout stores, the persistence facade and the
// content API into the two sessions a kiosk runs: the configurator used by
// museum staff and the visitor display.
package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/telemetry"
)

// ThemeSource is the part of the content API the sessions read from.
type ThemeSource interface {
	FetchTheme(ctx context.Context, id int64) (domain.Theme, error)
	FetchCard(ctx context.Context, id int64) (domain.Card, error)
}

var (
	// ErrNoTheme is returned by configurator calls made before Open.
	ErrNoTheme = errors.New("kiosk: no theme opened")
	// ErrUnknownItem means the requested card, media or color is not part of the theme.
	ErrUnknownItem = errors.New("kiosk: item not found in theme")
	// ErrNotConfigured means no usable configuration is stored on the device.
	ErrNotConfigured = errors.New("kiosk: device not configured")
)

// DefaultTextContent fills a new text block when the card has no detail.
const DefaultTextContent = "Texte personnalisé..."

type settings struct {
	sink        telemetry.Sink
	now         func() time.Time
	enrichLimit int
	resolve     func(string) string
}

// Option customizes a Configurator or a Visitor.
type Option func(*settings)

// WithSink routes usage events to s instead of the default telemetry client.
func WithSink(s telemetry.Sink) Option { return func(o *settings) { o.sink = s } }

// WithClock sets the clock used for element ids.
func WithClock(now func() time.Time) Option { return func(o *settings) { o.now = now } }

// WithEnrichLimit bounds concurrent card fetches on the visitor path.
func WithEnrichLimit(n int) Option { return func(o *settings) { o.enrichLimit = n } }

// WithResolver maps media public paths to URLs.
func WithResolver(fn func(publicPath string) string) Option {
	return func(o *settings) { o.resolve = fn }
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, enrichLimit: 4}
	for _, o := range opts {
		o(&s)
	}
	if s.sink == nil {
		s.sink = telemetry.Default()
	}
	return s
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }

func findMedia(ms []domain.Media, id int64) (domain.Media, bool) {
	for _, m := range ms {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Media{}, false
}
