/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend stores scripts in PostgreSQL. It satisfies the same
// storage.Store contract as the file store and keeps a searchable block table
// next to every script.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/domain"
	"gocomicscript/internal/storage"
)

// DefaultTimeout bounds a single database operation.
const DefaultTimeout = 10 * time.Second

// Store is a storage.Store backed by PostgreSQL.
type Store struct {
	db      *sql.DB
	Timeout time.Duration
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, checks the connection and applies the migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, Timeout: DefaultTimeout, now: time.Now}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// Save upserts the script and replaces its search rows.
func (s *Store) Save(ctx context.Context, sc domain.Script) (domain.Script, error) {
	if sc.ID == "" {
		return sc, errors.New("script id is required")
	}
	d, err := doc.Decode(sc.Content)
	if err != nil {
		return sc, fmt.Errorf("script %s: %w", sc.ID, err)
	}
	sc.Touch(s.now())
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sc, fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scripts(id, title, series_title, chapter_number, content, last_modified)
		VALUES($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, series_title=EXCLUDED.series_title,
			chapter_number=EXCLUDED.chapter_number, content=EXCLUDED.content, last_modified=EXCLUDED.last_modified`,
		sc.ID, sc.Title, sc.SeriesTitle, string(sc.ChapterNumber), string(sc.Content), sc.LastModified); err != nil {
		_ = tx.Rollback()
		return sc, fmt.Errorf("upsert script: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM script_blocks WHERE script_id=$1`, sc.ID); err != nil {
		_ = tx.Rollback()
		return sc, fmt.Errorf("clear blocks: %w", err)
	}
	for _, r := range storage.BlockRows(d) {
		speaker := sql.NullString{String: r.Speaker, Valid: r.Speaker != ""}
		if _, err := tx.ExecContext(ctx, `INSERT INTO script_blocks(script_id, page, logical, panel, pos, block_type, speaker, raw_text)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
			sc.ID, r.Page, r.Logical, r.Panel, r.Pos, r.Type, speaker, r.Text); err != nil {
			_ = tx.Rollback()
			return sc, fmt.Errorf("insert block: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sc, fmt.Errorf("commit: %w", err)
	}
	return sc, nil
}

// Load returns the script stored under id or storage.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (domain.Script, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	sc, err := scanScript(s.db.QueryRowContext(ctx, `SELECT id, title, series_title, chapter_number, content, last_modified
		FROM scripts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Script{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Script{}, fmt.Errorf("load script: %w", err)
	}
	return sc, nil
}

// List returns every script, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Script, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, series_title, chapter_number, content, last_modified
		FROM scripts ORDER BY last_modified DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Script
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Delete removes a script; its search rows go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(r rowScanner) (domain.Script, error) {
	var sc domain.Script
	var chapter, content string
	if err := r.Scan(&sc.ID, &sc.Title, &sc.SeriesTitle, &chapter, &content, &sc.LastModified); err != nil {
		return domain.Script{}, err
	}
	sc.ChapterNumber = domain.Chapter(chapter)
	sc.Content = []byte(content)
	return sc, nil
}
