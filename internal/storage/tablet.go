/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"museumkiosk/internal/domain"
	applog "museumkiosk/internal/log"
)

const (
	// LayoutKey is the slot key of the TabletConfiguration.
	LayoutKey = "museumLayout"
	// LegacyTokenKey holds {"token": "..."} written by older kiosk builds.
	LegacyTokenKey = "token"
	// CrashKey receives the in-memory configuration when the process panics.
	CrashKey = LayoutKey + "-crash"
)

// TabletStore reads and writes the device's TabletConfiguration.
// Failures are logged and reported as nil/false, never returned as errors.
type TabletStore struct {
	mu          sync.Mutex
	slot        Slot
	now         func() time.Time
	historyKeep int
	log         *slog.Logger
}

// TabletOption customizes a TabletStore.
type TabletOption func(*TabletStore)

// WithNow sets the clock used for savedAt.
func WithNow(now func() time.Time) TabletOption { return func(s *TabletStore) { s.now = now } }

// WithHistoryKeep caps the layout history when the slot keeps one.
func WithHistoryKeep(n int) TabletOption { return func(s *TabletStore) { s.historyKeep = n } }

// NewTabletStore wraps slot.
func NewTabletStore(slot Slot, opts ...TabletOption) *TabletStore {
	s := &TabletStore{
		slot:        slot,
		now:         time.Now,
		historyKeep: 20,
		log:         applog.WithComponent("storage"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Slot returns the underlying slot.
func (s *TabletStore) Slot() Slot { return s.slot }

// SaveCompleteLayout overwrites the whole configuration in one write and
// stamps savedAt. It reports false on any serialization or storage failure.
func (s *TabletStore) SaveCompleteLayout(themeID domain.ThemeID, themeData json.RawMessage, elements domain.Layout, modalConfigs map[string]domain.Layout) bool {
	cfg := &domain.TabletConfiguration{
		ThemeID:      themeID,
		ThemeData:    themeData,
		Elements:     elements,
		ModalConfigs: modalConfigs,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(cfg, "save_complete")
}

// GetCompleteLayout returns the stored configuration, or nil when it is
// absent, corrupt or unreadable.
func (s *TabletStore) GetCompleteLayout() *domain.TabletConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// HasValidConfiguration reports whether a configuration with a theme and a
// main layout is stored.
func (s *TabletStore) HasValidConfiguration() bool {
	return s.GetCompleteLayout().Valid()
}

// UpdateModalConfig replaces modalConfigs[cardID] and leaves every other part
// of the stored configuration untouched. It fails when nothing is stored yet.
func (s *TabletStore) UpdateModalConfig(cardID string, modal domain.Layout) bool {
	l := applog.WithOperation(s.log, "update_modal").With(slog.String("card", cardID))
	if strings.TrimSpace(cardID) == "" {
		l.Warn("empty card id")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.readLocked()
	if cur == nil {
		l.Warn("no saved configuration, modal layout not stored")
		return false
	}
	if cur.ModalConfigs == nil {
		cur.ModalConfigs = map[string]domain.Layout{}
	}
	cur.ModalConfigs[cardID] = modal
	return s.writeLocked(cur, "update_modal")
}

// GetModalConfig returns the modal layout stored for cardID.
func (s *TabletStore) GetModalConfig(cardID string) (domain.Layout, bool) {
	return s.GetCompleteLayout().Modal(cardID)
}

// Clear deletes the stored configuration.
func (s *TabletStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.slot.Delete(LayoutKey); err != nil {
		applog.WithOperation(s.log, "clear").Error("delete failed", slog.Any("err", err))
		return false
	}
	return true
}

// LegacyToken returns the bearer token stored by older builds, if any.
func (s *TabletStore) LegacyToken() (string, bool) {
	b, err := s.slot.Get(LegacyTokenKey)
	if err != nil {
		return "", false
	}
	var v struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(b, &v) != nil || v.Token == "" {
		return "", false
	}
	return v.Token, true
}

// ClearLegacyToken removes the legacy token entry.
func (s *TabletStore) ClearLegacyToken() { _ = s.slot.Delete(LegacyTokenKey) }

// History lists recent saves when the slot keeps a history.
func (s *TabletStore) History(ctx context.Context, limit int) ([]Snapshot, error) {
	h, ok := s.slot.(History)
	if !ok {
		return nil, errors.New("storage backend keeps no history")
	}
	return h.ListSnapshots(ctx, limit)
}

// RestoreDocument validates doc and writes it as the current configuration.
func (s *TabletStore) RestoreDocument(doc []byte) bool {
	cfg, err := decodeDocument(doc)
	if err != nil {
		applog.WithOperation(s.log, "restore").Warn("rejecting restore document", slog.Any("err", err))
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRawLocked(cfg, "restore")
}

func (s *TabletStore) readLocked() *domain.TabletConfiguration {
	l := applog.WithOperation(s.log, "read")
	b, err := s.slot.Get(LayoutKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		l.Error("slot read failed", slog.Any("err", err))
		return nil
	}
	cfg, err := decodeDocument(b)
	if err != nil {
		l.Warn("stored configuration is unusable", slog.Any("err", err))
		return nil
	}
	return cfg
}

func decodeDocument(b []byte) (*domain.TabletConfiguration, error) {
	if err := ValidateDocument(b); err != nil {
		return nil, err
	}
	var cfg domain.TabletConfiguration
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.ModalConfigs == nil {
		cfg.ModalConfigs = map[string]domain.Layout{}
	}
	return &cfg, nil
}

func (s *TabletStore) writeLocked(cfg *domain.TabletConfiguration, op string) bool {
	cfg.SavedAt = s.now().UTC().Truncate(time.Millisecond)
	return s.writeRawLocked(cfg, op)
}

func (s *TabletStore) writeRawLocked(cfg *domain.TabletConfiguration, op string) bool {
	l := applog.WithOperation(s.log, op).With(slog.String("theme", cfg.ThemeID.String()))
	if cfg.Elements == nil {
		cfg.Elements = domain.Layout{}
	}
	modals := make(map[string]domain.Layout, len(cfg.ModalConfigs))
	for id, m := range cfg.ModalConfigs {
		if m == nil {
			m = domain.Layout{}
		}
		modals[id] = m
	}
	cfg.ModalConfigs = modals
	if len(cfg.ThemeData) == 0 {
		cfg.ThemeData = json.RawMessage("null")
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		l.Error("serialize configuration failed", slog.Any("err", err))
		return false
	}
	if err := ValidateDocument(doc); err != nil {
		l.Error("configuration rejected", slog.Any("err", err))
		return false
	}
	if err := s.slot.Put(LayoutKey, doc); err != nil {
		l.Error("slot write failed", slog.Any("err", err))
		return false
	}
	l.Info("configuration stored", slog.Int("elements", len(cfg.Elements)), slog.Int("modals", len(cfg.ModalConfigs)))
	s.recordHistory(cfg, doc)
	return true
}

// recordHistory is best effort: the configuration is already stored.
func (s *TabletStore) recordHistory(cfg *domain.TabletConfiguration, doc []byte) {
	h, ok := s.slot.(History)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	l := applog.WithOperation(s.log, "history")
	if err := h.RecordSnapshot(ctx, cfg.ThemeID.String(), doc, cfg.SavedAt); err != nil {
		l.Warn("record snapshot failed", slog.Any("err", err))
		return
	}
	if _, err := h.PruneSnapshots(ctx, s.historyKeep); err != nil {
		l.Warn("prune snapshots failed", slog.Any("err", err))
	}
}

// AutosaveCrashSnapshot writes cfg under CrashKey so a crash never
// overwrites the last explicit save.
func AutosaveCrashSnapshot(slot Slot, cfg *domain.TabletConfiguration) error {
	if slot == nil || cfg == nil {
		return nil
	}
	snap := cfg.Clone()
	snap.SavedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return slot.Put(CrashKey, doc)
}
