/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package enrich resolves card references in a stored layout into fresh
// card records before display.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"museumkiosk/internal/domain"
	applog "museumkiosk/internal/log"

	"golang.org/x/sync/errgroup"
)

// ErrDiscarded is returned when the owning scope ended before the results
// could be delivered.
var ErrDiscarded = errors.New("enrich: results discarded")

// CardFetcher loads a card by id.
type CardFetcher interface {
	FetchCard(ctx context.Context, id int64) (domain.Card, error)
}

// FetcherFunc adapts a function to CardFetcher.
type FetcherFunc func(ctx context.Context, id int64) (domain.Card, error)

func (f FetcherFunc) FetchCard(ctx context.Context, id int64) (domain.Card, error) { return f(ctx, id) }

// Result is an enriched layout plus the ids of elements left as they were.
type Result struct {
	Layout domain.Layout
	Failed []string
}

// Enricher runs enrichment on behalf of one owner. After Close, results of
// in-flight runs are dropped.
type Enricher struct {
	fetcher   CardFetcher
	limit     int
	onFailure func(elementID string, err error)
	log       *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithLimit bounds the number of concurrent fetches.
func WithLimit(n int) Option { return func(e *Enricher) { e.limit = n } }

// WithFailureHook is called once per element whose fetch failed.
func WithFailureHook(fn func(elementID string, err error)) Option {
	return func(e *Enricher) { e.onFailure = fn }
}

// New creates an Enricher backed by f.
func New(f CardFetcher, opts ...Option) *Enricher {
	e := &Enricher{fetcher: f, limit: 4, log: applog.WithComponent("enrich")}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Close ends the owner's scope.
func (e *Enricher) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *Enricher) alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// Enrich returns a copy of l in which every card element whose data names a
// card id carries the freshly fetched record. Order and length are kept;
// elements whose fetch fails keep their previous data.
func (e *Enricher) Enrich(ctx context.Context, l domain.Layout) (Result, error) {
	out := l.Clone()
	failed := make([]bool, len(out))

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := range out {
		if out[i].Type != domain.TypeCard {
			continue
		}
		ref, ok := domain.CardRefID(out[i].Data)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			continue
		}
		g.Go(func() error {
			card, err := e.fetcher.FetchCard(ctx, id)
			if err == nil {
				var data []byte
				if data, err = json.Marshal(card); err == nil {
					out[i].Data = data
					return nil
				}
			}
			failed[i] = true
			e.log.Warn("card not refreshed", slog.String("element", out[i].ID), slog.Int64("card", id), slog.Any("err", err))
			if e.onFailure != nil {
				e.onFailure(out[i].ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil || !e.alive() {
		e.log.Debug("owner gone, dropping enrichment results")
		return Result{}, ErrDiscarded
	}
	res := Result{Layout: out}
	for i, f := range failed {
		if f {
			res.Failed = append(res.Failed, out[i].ID)
		}
	}
	return res, nil
}
