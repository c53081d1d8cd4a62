/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// Keyring service and secret keys.
const (
	KeyringService     = "MuseumKiosk"
	SecretAppPassword  = "app_password"
	SecretRefreshToken = "member_refresh_token"
)

// ErrSecretNotFound is returned when the keyring holds no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var (
	tokenStoreMu sync.RWMutex
	tokenStore   TokenStore = osKeyring{}
)

// SetTokenStore swaps the process-wide secret store and returns a restore func.
func SetTokenStore(ts TokenStore) (restore func()) {
	tokenStoreMu.Lock()
	prev := tokenStore
	tokenStore = ts
	tokenStoreMu.Unlock()
	return func() {
		tokenStoreMu.Lock()
		tokenStore = prev
		tokenStoreMu.Unlock()
	}
}

// Secrets returns the active secret store.
func Secrets() TokenStore {
	tokenStoreMu.RLock()
	defer tokenStoreMu.RUnlock()
	return tokenStore
}

// osKeyring implements TokenStore with github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return v, err
}

func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MemoryTokenStore is an in-process TokenStore for tests and headless kiosks
// without a keyring daemon.
type MemoryTokenStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore { return &MemoryTokenStore{m: map[string]string{}} }

func (s *MemoryTokenStore) Get(service, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (s *MemoryTokenStore) Set(service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[service+"/"+key] = value
	return nil
}

func (s *MemoryTokenStore) Delete(service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, service+"/"+key)
	return nil
}
