/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"museumkiosk/internal/config"
	applog "museumkiosk/internal/log"

	"github.com/google/uuid"
)

// Credentials is a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// AuthSession owns the bearer credentials used by a Client. Two identities
// exist: the technical app account, authenticated lazily, and an optional
// logged-in member whose token takes precedence.
type AuthSession struct {
	mu      sync.Mutex
	id      string
	baseURL string
	http    *http.Client
	app     Credentials
	secrets config.TokenStore
	now     func() time.Time
	log     *slog.Logger

	appToken      string
	memberToken   string
	memberRefresh string
}

// SessionOption customizes an AuthSession.
type SessionOption func(*AuthSession)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) SessionOption { return func(s *AuthSession) { s.http = c } }

// WithSecrets stores the member refresh token in ts instead of the process keyring.
func WithSecrets(ts config.TokenStore) SessionOption {
	return func(s *AuthSession) { s.secrets = ts }
}

// WithSessionClock injects the clock used for token expiry checks.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *AuthSession) { s.now = now }
}

// NewAuthSession creates a session against baseURL using app for the
// technical identity.
func NewAuthSession(baseURL string, app Credentials, opts ...SessionOption) *AuthSession {
	s := &AuthSession{
		id:      uuid.NewString(),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		app:     app,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.secrets == nil {
		s.secrets = config.Secrets()
	}
	s.log = applog.WithComponent("contentapi").With(slog.String("session", s.id))
	return s
}

// ID identifies the session in logs and telemetry.
func (s *AuthSession) ID() string { return s.id }

// HasMember reports whether a member is logged in.
func (s *AuthSession) HasMember() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberToken != ""
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates a member. The refresh token is kept in the secret store
// so a later run can resume the session.
func (s *AuthSession) Login(ctx context.Context, username, password string) error {
	tp, err := s.post(ctx, "/api/login_check", map[string]string{"username": username, "password": password},
		KindInvalidCredentials, "invalid member credentials")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.memberToken = tp.Token
	s.memberRefresh = tp.RefreshToken
	s.mu.Unlock()
	if tp.RefreshToken != "" {
		if err := s.secrets.Set(config.KeyringService, config.SecretRefreshToken, tp.RefreshToken); err != nil {
			s.log.Warn("refresh token not persisted", slog.Any("err", err))
		}
	}
	s.log.Info("member logged in", slog.String("user", username))
	return nil
}

// AdoptMemberToken installs a previously stored member token if it is still
// valid. It reports whether the token was accepted.
func (s *AuthSession) AdoptMemberToken(token string) bool {
	if token == "" || !TokenUsable(token, s.now()) {
		return false
	}
	s.mu.Lock()
	s.memberToken = token
	s.mu.Unlock()
	return true
}

// Refresh exchanges the member refresh token for a new token pair.
func (s *AuthSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	rt := s.memberRefresh
	s.mu.Unlock()
	if rt == "" {
		stored, err := s.secrets.Get(config.KeyringService, config.SecretRefreshToken)
		if err != nil || stored == "" {
			return &Error{Kind: KindExpired, Message: "no refresh token available"}
		}
		rt = stored
	}
	tp, err := s.post(ctx, "/api/token/refresh", map[string]string{"refresh_token": rt},
		KindExpired, "could not refresh session")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.memberToken = tp.Token
	if tp.RefreshToken != "" {
		s.memberRefresh = tp.RefreshToken
	}
	s.mu.Unlock()
	if tp.RefreshToken != "" {
		_ = s.secrets.Set(config.KeyringService, config.SecretRefreshToken, tp.RefreshToken)
	}
	s.log.Debug("member token refreshed")
	return nil
}

// Logout forgets the member identity, including the stored refresh token.
func (s *AuthSession) Logout() {
	s.mu.Lock()
	s.memberToken = ""
	s.memberRefresh = ""
	s.mu.Unlock()
	if err := s.secrets.Delete(config.KeyringService, config.SecretRefreshToken); err != nil {
		s.log.Warn("refresh token not removed", slog.Any("err", err))
	}
	s.log.Info("member logged out")
}

// Token returns the bearer token to present: the member token when logged
// in, otherwise the app token, authenticating the app on first use.
func (s *AuthSession) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if t := s.memberToken; t != "" {
		s.mu.Unlock()
		return t, nil
	}
	t := s.appToken
	s.mu.Unlock()
	if t != "" {
		return t, nil
	}
	if err := s.authenticateApp(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appToken, nil
}

// Renew is called after a 401: members are refreshed, the app identity
// logs in again.
func (s *AuthSession) Renew(ctx context.Context) error {
	if s.HasMember() {
		return s.Refresh(ctx)
	}
	return s.authenticateApp(ctx)
}

func (s *AuthSession) authenticateApp(ctx context.Context) error {
	if s.app.Username == "" {
		return &Error{Kind: KindInvalidCredentials, Message: "no app credentials configured"}
	}
	tp, err := s.post(ctx, "/api/login_check", map[string]string{"username": s.app.Username, "password": s.app.Password},
		KindInvalidCredentials, "app authentication failed")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.appToken = tp.Token
	s.mu.Unlock()
	s.log.Debug("app authenticated")
	return nil
}

func (s *AuthSession) post(ctx context.Context, path string, body any, failKind Kind, failMsg string) (tokenPair, error) {
	var tp tokenPair
	buf, err := json.Marshal(body)
	if err != nil {
		return tp, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return tp, &Error{Kind: KindNetwork, Message: "bad request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return tp, &Error{Kind: KindNetwork, Message: "content API unreachable", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := failKind
		if resp.StatusCode >= 500 {
			kind = KindServer
		}
		return tp, &Error{Kind: kind, Message: failMsg, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&tp); err != nil {
		return tp, &Error{Kind: KindDecode, Message: "unreadable token response", Cause: err}
	}
	if tp.Token == "" {
		return tp, &Error{Kind: failKind, Message: failMsg, Cause: errors.New("empty token")}
	}
	return tp, nil
}
