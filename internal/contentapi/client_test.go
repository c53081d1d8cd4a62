/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contentapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"museumkiosk/internal/config"
)

type fakeAPI struct {
	srv          *httptest.Server
	logins       atomic.Int32
	refreshes    atomic.Int32
	cardCalls    atomic.Int32
	validToken   atomic.Value // string
	alwaysUnauth bool
	failCards    int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.validToken.Store("app-1")
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login_check", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		n := f.logins.Add(1)
		switch body["username"] {
		case "app":
			tok := "app-" + string(rune('0'+n))
			f.validToken.Store(tok)
			_ = json.NewEncoder(w).Encode(map[string]string{"token": tok})
		case "member":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.validToken.Store("member-1")
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "member-1", "refresh_token": "r1"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/api/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.refreshes.Add(1)
		if body["refresh_token"] == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.validToken.Store("member-2")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "member-2", "refresh_token": "r2"})
	})
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			want := "Bearer " + f.validToken.Load().(string)
			if f.alwaysUnauth || r.Header.Get("Authorization") != want {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/themes", auth(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("archived") != "false" || q.Get("order[name]") != "asc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"hydra:member":[{"id":1,"name":"Egypt"},{"id":2,"Name":"Rome"}],"hydra:totalItems":2}`))
	}))
	mux.HandleFunc("/api/themes/1", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"Egypt","cards":["/api/cards/42",{"id":7,"Title":"Sphinx"}],
			"medias":[{"id":3,"publicPath":"/uploads/media/a.PNG"}],
			"colors":[{"id":1,"name":"Sand","hexCode":"#c2b280"}],
			"backgroundImage":{"id":9,"publicPath":"/uploads/media/bg.jpg","extensionFile":"jpg"}}`))
	}))
	mux.HandleFunc("/api/cards/42", auth(func(w http.ResponseWriter, r *http.Request) {
		if f.cardCalls.Add(1) <= f.failCards {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"card":{"id":42,"title":"X","details":"about","backgroundColor":[{"code":"#111"}]}}`))
	}))
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client(user string) *Client {
	sess := NewAuthSession(f.srv.URL, Credentials{Username: user, Password: "pw"}, WithSecrets(config.NewMemoryTokenStore()))
	c := NewClient(f.srv.URL+"/", "https://cdn.example/media/", sess)
	c.SetRetry(3, time.Millisecond)
	return c
}

func TestListThemesHydraAndAppAuth(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client("app")
	page, err := c.ListThemes(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListThemes: %v", err)
	}
	if page.Page != 1 || page.TotalItems != 2 || len(page.Themes) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Themes[1].Name != "Rome" {
		t.Fatalf("capitalized key not normalized: %+v", page.Themes[1])
	}
	if f.logins.Load() != 1 {
		t.Fatalf("expected lazy app login once, got %d", f.logins.Load())
	}
}

func TestFetchThemeNormalizes(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client("app")
	th, err := c.FetchTheme(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(th.Cards) != 2 || th.Cards[0].ID != 42 || th.Cards[1].Title != "Sphinx" {
		t.Fatalf("cards: %+v", th.Cards)
	}
	if len(th.Colors) != 1 || th.Colors[0].ColorCode != "#c2b280" {
		t.Fatalf("colors: %+v", th.Colors)
	}
	if th.Medias[0].ExtensionFile != "png" {
		t.Fatalf("extension not derived: %+v", th.Medias[0])
	}
	if th.BackgroundImage == nil || c.MediaURL(th.BackgroundImage.PublicPath) != "https://cdn.example/media/bg.jpg" {
		t.Fatalf("background: %+v", th.BackgroundImage)
	}
}

func TestFetchCardUnwrapsAndRetriesServerErrors(t *testing.T) {
	f := newFakeAPI(t)
	f.failCards = 2
	c := f.client("app")
	card, err := c.FetchCard(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchCard: %v", err)
	}
	if card.ID != 42 || card.Title != "X" || card.Detail != "about" {
		t.Fatalf("card: %+v", card)
	}
	if card.BackgroundColor == nil || card.BackgroundColor.ColorCode != "#111" {
		t.Fatalf("background color: %+v", card.BackgroundColor)
	}
	if f.cardCalls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.cardCalls.Load())
	}
}

func TestNotFoundKind(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client("app")
	_, err := c.FetchCard(context.Background(), 99)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpiredTokenRenewsOnce(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client("app")
	if _, err := c.ListThemes(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	// The server rotates the valid token; the next call gets a 401 and re-logs in.
	f.logins.Store(5)
	f.validToken.Store("app-6")
	if _, err := c.ListThemes(context.Background(), 1); err != nil {
		t.Fatalf("expected renewal to succeed: %v", err)
	}
	if f.logins.Load() != 6 {
		t.Fatalf("expected exactly one re-login, got %d", f.logins.Load()-5)
	}
}

func TestPersistent401IsBounded(t *testing.T) {
	f := newFakeAPI(t)
	f.alwaysUnauth = true
	c := f.client("app")
	_, err := c.ListThemes(context.Background(), 1)
	if !IsKind(err, KindExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	// one lazy login plus one renewal
	if got := f.logins.Load(); got != 2 {
		t.Fatalf("expected 2 logins, got %d", got)
	}
}

func TestMemberPreferredAndRefreshed(t *testing.T) {
	f := newFakeAPI(t)
	store := config.NewMemoryTokenStore()
	sess := NewAuthSession(f.srv.URL, Credentials{Username: "app", Password: "pw"}, WithSecrets(store))
	c := NewClient(f.srv.URL, "", sess)

	if err := sess.Login(context.Background(), "member", "wrong"); !IsKind(err, KindInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := sess.Login(context.Background(), "member", "secret"); err != nil {
		t.Fatal(err)
	}
	if rt, _ := store.Get(config.KeyringService, config.SecretRefreshToken); rt != "r1" {
		t.Fatalf("refresh token not stored: %q", rt)
	}
	if _, err := c.ListThemes(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	f.validToken.Store("member-2")
	if _, err := c.ListThemes(context.Background(), 1); err != nil {
		t.Fatalf("refresh path: %v", err)
	}
	if f.refreshes.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", f.refreshes.Load())
	}
	if rt, _ := store.Get(config.KeyringService, config.SecretRefreshToken); rt != "r2" {
		t.Fatalf("rotated refresh token not stored: %q", rt)
	}

	sess.Logout()
	if sess.HasMember() {
		t.Fatalf("member still present after logout")
	}
	if _, err := store.Get(config.KeyringService, config.SecretRefreshToken); err == nil {
		t.Fatalf("refresh token survived logout")
	}
}

func TestNetworkErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	sess := NewAuthSession(url, Credentials{Username: "app"}, WithSecrets(config.NewMemoryTokenStore()))
	sess.AdoptMemberToken(jwtWithExp(time.Now().Add(time.Hour)))
	c := NewClient(url, "", sess)
	c.SetRetry(2, time.Millisecond)
	_, err := c.FetchTheme(context.Background(), 1)
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func jwtWithExp(exp time.Time) string {
	enc := base64.RawURLEncoding
	payload, _ := json.Marshal(map[string]any{"exp": exp.Unix(), "username": "m"})
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

func TestTokenUsable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", jwtWithExp(now.Add(time.Minute)), true},
		{"expired", jwtWithExp(now.Add(-time.Minute)), false},
		{"no exp", base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".s", true},
		{"string exp", base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".s", false},
		{"no alg", "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1900000000}`)) + ".s", false},
		{"garbage", "not-a-jwt", false},
		{"bad payload", "a.!!!.c", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TokenUsable(tc.token, now); got != tc.want {
				t.Fatalf("TokenUsable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMediaURL(t *testing.T) {
	cases := map[string]string{
		"/uploads/media/a.jpg":    "https://u.example/m/a.jpg",
		"b.png":                   "https://u.example/m/b.png",
		"https://other.example/c": "https://other.example/c",
		"":                        "",
	}
	for in, want := range cases {
		if got := MediaURL("https://u.example/m/", in); got != want {
			t.Errorf("MediaURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCardShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		id   int64
		ttl  string
	}{
		{"direct", `{"id":1,"title":"A"}`, 1, "A"},
		{"capitalized", `{"id":"2","Title":"B"}`, 2, "B"},
		{"wrapped card", `{"card":{"id":3,"title":"C"}}`, 3, "C"},
		{"wrapped element", `{"element":{"id":4,"title":"D"}}`, 4, "D"},
		{"bare id", `5`, 5, ""},
		{"iri", `"/api/cards/6"`, 6, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NormalizeCard(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatal(err)
			}
			if c.ID != tc.id || c.Title != tc.ttl {
				t.Fatalf("got %+v", c)
			}
		})
	}
	if _, err := NormalizeCard(json.RawMessage(`{"foo":1}`)); !IsKind(err, KindDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindServer, Message: "boom", Status: 502}
	if !strings.Contains(e.Error(), "HTTP 502") {
		t.Fatalf("status missing: %s", e.Error())
	}
	if KindOf(e) != KindServer || KindOf(nil) != KindUnknown {
		t.Fatalf("KindOf mismatch")
	}
}
