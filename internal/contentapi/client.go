/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package contentapi is the HTTP client for the museum content system. It
// owns authentication (see AuthSession), bounded retries and the mapping of
// upstream payloads onto the records in package domain.
package contentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"museumkiosk/internal/config"
	"museumkiosk/internal/domain"
	applog "museumkiosk/internal/log"
)

// maxAuthRetries bounds re-authentication after a 401.
const maxAuthRetries = 1

// Client issues authenticated read requests against the content API.
type Client struct {
	BaseURL   string
	UploadURL string

	session  *AuthSession
	http     *http.Client
	attempts int
	delay    time.Duration
	log      *slog.Logger
}

// NewClient creates a client for baseURL. baseURL may carry a trailing slash.
func NewClient(baseURL, uploadURL string, session *AuthSession) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UploadURL: strings.TrimRight(uploadURL, "/"),
		session:   session,
		http:      &http.Client{Timeout: 10 * time.Second},
		attempts:  2,
		delay:     250 * time.Millisecond,
		log:       applog.WithComponent("contentapi"),
	}
}

// NewFromConfig wires a client and session from the content_api section.
// The app password comes from the secret store.
func NewFromConfig(cfg config.ContentAPIConfig) *Client {
	pw, _ := config.Secrets().Get(config.KeyringService, config.SecretAppPassword)
	hc := &http.Client{Timeout: cfg.Timeout()}
	sess := NewAuthSession(cfg.BaseURL, Credentials{Username: cfg.Username, Password: pw}, WithHTTPClient(hc))
	c := NewClient(cfg.BaseURL, cfg.UploadURL, sess)
	c.http = hc
	c.SetRetry(cfg.RetryAttempts, cfg.RetryDelay())
	return c
}

// SetRetry configures transient-failure retries.
func (c *Client) SetRetry(attempts int, delay time.Duration) {
	c.attempts = max(attempts, 1)
	c.delay = delay
}

// Session returns the auth session used by c.
func (c *Client) Session() *AuthSession { return c.session }

// MediaURL resolves a stored public path against the upload base.
func (c *Client) MediaURL(publicPath string) string { return MediaURL(c.UploadURL, publicPath) }

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return retry(ctx, c.attempts, c.delay, func() error { return c.authorized(ctx, path, dest) })
}

// authorized sends one GET, renewing credentials at most maxAuthRetries times
// on 401.
func (c *Client) authorized(ctx context.Context, path string, dest any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.session.Token(ctx)
		if err != nil {
			return err
		}
		resp, err := c.send(ctx, path, token)
		if err != nil {
			return &RetryableError{Err: &Error{Kind: KindNetwork, Message: "content API unreachable", Cause: err}}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if attempt >= maxAuthRetries {
				return &Error{Kind: KindExpired, Message: "session expired", Status: resp.StatusCode}
			}
			c.log.Debug("renewing credentials", slog.String("path", path))
			if err := c.session.Renew(ctx); err != nil {
				return err
			}
			continue
		}
		return decodeResponse(resp, path, dest)
	}
}

func (c *Client) send(ctx context.Context, path, token string) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/ld+json, application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func decodeResponse(resp *http.Response, path string, dest any) error {
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: "not found: " + path, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &RetryableError{Err: &Error{Kind: KindServer, Message: "content API error", Status: resp.StatusCode}}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &Error{Kind: KindServer, Message: "unexpected response for " + path, Status: resp.StatusCode}
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, 16<<20))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return &Error{Kind: KindDecode, Message: "unreadable response for " + path, Cause: err}
	}
	return nil
}

// hydraCollection accepts both the compact and the prefixed JSON-LD keys.
type hydraCollection struct {
	Member          []json.RawMessage `json:"member"`
	HydraMember     []json.RawMessage `json:"hydra:member"`
	TotalItems      int               `json:"totalItems"`
	HydraTotalItems int               `json:"hydra:totalItems"`
}

func (h hydraCollection) items() []json.RawMessage {
	if len(h.Member) > 0 {
		return h.Member
	}
	return h.HydraMember
}

func (h hydraCollection) total() int {
	if h.TotalItems > 0 {
		return h.TotalItems
	}
	return h.HydraTotalItems
}

// ListThemes returns one page of non-archived themes ordered by name.
func (c *Client) ListThemes(ctx context.Context, page int) (domain.ThemePage, error) {
	page = max(page, 1)
	q := url.Values{}
	q.Set("archived", "false")
	q.Set("page", strconv.Itoa(page))
	q.Set("order[name]", "asc")
	var coll hydraCollection
	if err := c.getJSON(ctx, "/api/themes?"+q.Encode(), &coll); err != nil {
		return domain.ThemePage{}, err
	}
	out := domain.ThemePage{Themes: []domain.Theme{}, TotalItems: coll.total(), Page: page}
	for _, raw := range coll.items() {
		t, err := NormalizeTheme(raw)
		if err != nil {
			c.log.Warn("skipping theme", slog.Any("err", err))
			continue
		}
		out.Themes = append(out.Themes, t)
	}
	return out, nil
}

// FetchTheme loads a single theme.
func (c *Client) FetchTheme(ctx context.Context, id int64) (domain.Theme, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/api/themes/%d", id), &raw); err != nil {
		return domain.Theme{}, err
	}
	return NormalizeTheme(raw)
}

// FetchThemeRaw loads a theme and also returns the payload as received, for
// storing as the opaque theme snapshot.
func (c *Client) FetchThemeRaw(ctx context.Context, id int64) (domain.Theme, json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/api/themes/%d", id), &raw); err != nil {
		return domain.Theme{}, nil, err
	}
	t, err := NormalizeTheme(raw)
	return t, raw, err
}

// FetchCard loads a single card.
func (c *Client) FetchCard(ctx context.Context, id int64) (domain.Card, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/api/cards/%d", id), &raw); err != nil {
		return domain.Card{}, err
	}
	return NormalizeCard(raw)
}

// ListCards returns every card. Both hydra collections and bare arrays are
// accepted.
func (c *Client) ListCards(ctx context.Context) ([]domain.Card, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/cards", &raw); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var coll hydraCollection
		if err := json.Unmarshal(raw, &coll); err != nil {
			return nil, &Error{Kind: KindDecode, Message: "card list", Cause: err}
		}
		items = coll.items()
	}
	out := make([]domain.Card, 0, len(items))
	for _, it := range items {
		card, err := NormalizeCard(it)
		if err != nil {
			continue
		}
		out = append(out, card)
	}
	return out, nil
}
