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
	"database/sql"
	"errors"
	"time"
)

// tsLayout is fixed width so timestamps sort lexicographically in SQL.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Snapshot is one saved layout document from the history.
type Snapshot struct {
	ID      int64
	TS      time.Time
	ThemeID string
	Doc     []byte
}

// History is implemented by slots that keep past layout saves.
type History interface {
	RecordSnapshot(ctx context.Context, themeID string, doc []byte, ts time.Time) error
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
	PruneSnapshots(ctx context.Context, keepLast int) (int64, error)
}

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO layout_history(ts, theme_id, doc) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, theme_id, doc FROM layout_history ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectSnapshotSQL = `SELECT id, ts, theme_id, doc FROM layout_history WHERE id = ?`

// language=SQL
// dialect=SQLite
const pruneSnapshotsSQL = `DELETE FROM layout_history WHERE id NOT IN (
	SELECT id FROM layout_history ORDER BY ts DESC, id DESC LIMIT ?
)`

// RecordSnapshot appends doc to the layout history.
func (s *SQLiteSlot) RecordSnapshot(ctx context.Context, themeID string, doc []byte, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, insertSnapshotSQL, ts.UTC().Format(tsLayout), themeID, doc)
	return err
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func (s *SQLiteSlot) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Snapshot returns the history entry with the given id.
func (s *SQLiteSlot) Snapshot(ctx context.Context, id int64) (Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, selectSnapshotSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

// PruneSnapshots keeps the newest keepLast entries and deletes the rest.
func (s *SQLiteSlot) PruneSnapshots(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanSnapshot(r rowScanner) (Snapshot, error) {
	var snap Snapshot
	var ts string
	if err := r.Scan(&snap.ID, &ts, &snap.ThemeID, &snap.Doc); err != nil {
		return Snapshot{}, err
	}
	snap.TS, _ = time.Parse(tsLayout, ts)
	return snap, nil
}
