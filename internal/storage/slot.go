/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by Slot.Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a write would exceed the slot capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Slot is a local key-value store holding whole serialized values.
type Slot interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\:`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// MemorySlot keeps values in memory. Quota, when positive, caps the total
// number of stored bytes.
type MemorySlot struct {
	mu    sync.Mutex
	m     map[string][]byte
	Quota int
}

func NewMemorySlot() *MemorySlot { return &MemorySlot{m: map[string][]byte{}} }

func (s *MemorySlot) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemorySlot) Put(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string][]byte{}
	}
	if s.Quota > 0 {
		used := len(value)
		for k, v := range s.m {
			if k != key {
				used += len(v)
			}
		}
		if used > s.Quota {
			return ErrQuotaExceeded
		}
	}
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemorySlot) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
