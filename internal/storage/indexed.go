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
	"log/slog"

	"gocomicscript/internal/domain"
	applog "gocomicscript/internal/log"
)

// IndexedStore keeps an Index in step with a Store. Every save is indexed and
// recorded as a revision. Index failures are logged and never fail a save:
// the records on disk stay authoritative.
type IndexedStore struct {
	Store
	Index *Index
	// KeepSnapshots bounds the revisions per script; <= 0 keeps all of them.
	KeepSnapshots int
}

// Save saves s, then indexes it and records a revision.
func (s *IndexedStore) Save(ctx context.Context, sc domain.Script) (domain.Script, error) {
	saved, err := s.Store.Save(ctx, sc)
	if err != nil || s.Index == nil {
		return saved, err
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "index_update").With(slog.String("script", saved.ID))
	if err := s.Index.Update(ctx, saved); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
		return saved, nil
	}
	added, err := s.Index.SaveSnapshot(ctx, saved.ID, saved.Content, saved.Modified())
	if err != nil {
		l.Warn("snapshot failed", slog.Any("err", err))
		return saved, nil
	}
	if added && s.KeepSnapshots > 0 {
		if n, err := s.Index.PruneSnapshots(ctx, saved.ID, s.KeepSnapshots); err != nil {
			l.Warn("prune snapshots failed", slog.Any("err", err))
		} else if n > 0 {
			l.Debug("pruned snapshots", slog.Int64("count", n))
		}
	}
	return saved, nil
}

// Delete deletes the record and drops it from the index.
func (s *IndexedStore) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			applog.WithComponent("storage").Warn("index remove failed", slog.String("script", id), slog.Any("err", err))
		}
	}
	return nil
}

// Restore saves revision id of a script as its current version.
func (s *IndexedStore) Restore(ctx context.Context, scriptID string, id int64) (domain.Script, error) {
	snap, err := s.Index.Snapshot(ctx, scriptID, id)
	if err != nil {
		return domain.Script{}, err
	}
	cur, err := s.Store.Load(ctx, scriptID)
	if err != nil {
		return domain.Script{}, err
	}
	cur.Content = snap.Content
	return s.Save(ctx, cur)
}

// Close closes the index.
func (s *IndexedStore) Close() error { return s.Index.Close() }
