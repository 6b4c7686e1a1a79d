/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(script_id, ts, content) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT id, ts, content FROM snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, content FROM snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectSnapshotSQL = `SELECT id, ts, content FROM snapshots WHERE script_id = ? AND id = ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE script_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// tsLayout has a fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one saved revision of a script's document.
type Snapshot struct {
	ID       int64
	ScriptID string
	TS       time.Time
	Content  json.RawMessage
}

// SaveSnapshot records content as a revision of the script. A revision equal
// to the latest one is not stored again; the result reports whether a row was
// written.
func (ix *Index) SaveSnapshot(ctx context.Context, scriptID string, content []byte, ts time.Time) (bool, error) {
	if scriptID == "" {
		return false, errors.New("script id is required")
	}
	content = bytes.TrimSpace(content)
	latest, ok, err := ix.LatestSnapshot(ctx, scriptID)
	if err != nil {
		return false, err
	}
	if ok && bytes.Equal(latest.Content, content) {
		return false, nil
	}
	if _, err := ix.db.ExecContext(ctx, insertSnapshotSQL, scriptID, ts.UTC().Format(tsLayout), string(content)); err != nil {
		return false, err
	}
	return true, nil
}

// LatestSnapshot returns the newest revision of a script, if any.
func (ix *Index) LatestSnapshot(ctx context.Context, scriptID string) (Snapshot, bool, error) {
	s, err := scanSnapshot(ix.db.QueryRowContext(ctx, selectLatestSnapshotSQL, scriptID), scriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

// Snapshot returns one revision by id.
func (ix *Index) Snapshot(ctx context.Context, scriptID string, id int64) (Snapshot, error) {
	s, err := scanSnapshot(ix.db.QueryRowContext(ctx, selectSnapshotSQL, scriptID, id), scriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return s, err
}

// ListSnapshots returns up to limit revisions, newest first.
func (ix *Index) ListSnapshots(ctx context.Context, scriptID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, listSnapshotsSQL, scriptID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows, scriptID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the keepLast newest revisions of a script and deletes
// the rest.
func (ix *Index) PruneSnapshots(ctx context.Context, scriptID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldSnapshotsSQL, scriptID, scriptID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner, scriptID string) (Snapshot, error) {
	var s Snapshot
	var tsStr, content string
	if err := r.Scan(&s.ID, &tsStr, &content); err != nil {
		return Snapshot{}, err
	}
	s.ScriptID = scriptID
	s.TS, _ = time.Parse(tsLayout, tsStr)
	s.Content = json.RawMessage(content)
	return s, nil
}
