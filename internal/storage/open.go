/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"strings"
)

// OpenSlot opens the slot for backend ("file" or "sqlite") rooted at dir.
// The returned close func is never nil.
func OpenSlot(backend, dir string, backupKeep int) (Slot, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file":
		fs, err := NewFileSlot(dir, backupKeep)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case "sqlite":
		ss, err := OpenSQLiteSlot(dir)
		if err != nil {
			return nil, noop, err
		}
		return ss, ss.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", backend)
	}
}
