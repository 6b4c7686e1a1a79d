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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/domain"
	applog "gocomicscript/internal/log"
	"gocomicscript/internal/numbering"
	"gocomicscript/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds the derived index data below the scripts directory.
	IndexDirName  = ".gcs"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump it together with a
	// migration step in runMigrations.
	schemaVersion = 2
)

// Index is the SQLite search and history index of a scripts directory.
type Index struct {
	db   *sql.DB
	path string
}

// IndexPath returns the index database file of a scripts directory.
func IndexPath(dir string) string {
	return filepath.Join(dir, IndexDirName, IndexFileName)
}

// OpenIndex ensures the index at <dir>/.gcs/index.sqlite exists, enables WAL
// mode and brings the schema up to date.
func OpenIndex(dir string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("scripts directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	path := IndexPath(dir)
	// SQLite URIs want forward slashes
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return &Index{db: db, path: path}, nil
}

// Path returns the database file.
func (ix *Index) Path() string { return ix.path }

// Close checkpoints the WAL and closes the database.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	var err error
	if _, cerr := ix.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("checkpoint index: %w", cerr))
	}
	if cerr := ix.db.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close index: %w", cerr))
	}
	ix.db = nil
	return err
}

// SchemaVersion reports the schema version recorded in the database.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema so migrations can run
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// a newer build created this index; never downgrade
		return nil
	}
	migrated := false
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// speaker lookups and per-script history listing
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_blocks_speaker ON blocks(lower(speaker));`,
				`CREATE INDEX IF NOT EXISTS idx_snapshots_script_ts ON snapshots(script_id, ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
		migrated = true
	}
	if migrated {
		// best effort
		_, _ = db.ExecContext(ctx, `INSERT INTO fts_blocks(fts_blocks) VALUES('optimize')`)
	}
	return nil
}

// ensureIndexSchema creates the index tables and the FTS structures.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scripts (
			id       TEXT PRIMARY KEY,
			title    TEXT NOT NULL,
			series   TEXT NOT NULL DEFAULT '',
			chapter  TEXT NOT NULL DEFAULT '',
			modified INTEGER NOT NULL
		);`,
		// One row per non-empty block. page is the physical sheet, logical the
		// printed page number, panel the running panel number on that logical page.
		`CREATE TABLE IF NOT EXISTS blocks (
			block_id  INTEGER PRIMARY KEY,
			script_id TEXT    NOT NULL,
			page      INTEGER NOT NULL,
			logical   INTEGER NOT NULL,
			panel     INTEGER NOT NULL,
			pos       INTEGER NOT NULL,
			type      TEXT    NOT NULL,
			speaker   TEXT,
			text      TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_script ON blocks(script_id, page);`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_speaker ON blocks(lower(speaker));`,

		// FTS5 over blocks.text, kept in sync by triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_blocks USING fts5(
			text,
			content='blocks',
			content_rowid='block_id',
			tokenize = 'unicode61'
		);`,

		// Saved revisions of a script's document.
		`CREATE TABLE IF NOT EXISTS snapshots (
			id        INTEGER PRIMARY KEY,
			script_id TEXT NOT NULL,
			ts        TEXT NOT NULL,
			content   TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_script_ts ON snapshots(script_id, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS blocks_ai AFTER INSERT ON blocks BEGIN
			INSERT INTO fts_blocks(rowid, text) VALUES (new.block_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_ad AFTER DELETE ON blocks BEGIN
			INSERT INTO fts_blocks(fts_blocks, rowid, text) VALUES ('delete', old.block_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_au AFTER UPDATE OF text ON blocks BEGIN
			INSERT INTO fts_blocks(fts_blocks, rowid, text) VALUES ('delete', old.block_id, old.text);
			INSERT INTO fts_blocks(rowid, text) VALUES (new.block_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// BlockRow is one searchable block of a script.
type BlockRow struct {
	// Page is the 1-based physical sheet, Logical the printed page number and
	// Panel the running panel number on that logical page.
	Page, Logical, Panel int
	// Pos is the position before the block.
	Pos  int
	Type string
	// Speaker is the character cue a dialogue block answers to.
	Speaker string
	Text    string
}

// BlockRows flattens d into search rows, one per non-empty block, numbering
// pages and panels the same way the editor does.
func BlockRows(d *doc.Node) []BlockRow {
	infos := numbering.LogicalPages(d)
	rows := make([]BlockRow, 0, 64)
	panel := 0
	for pi, page := range d.Content {
		info := infos[pi]
		pos := info.Pos + 1
		for bi, b := range page.Content {
			switch {
			case doc.IsHeader(b):
				panel = 0
			case doc.IsPanel(b):
				panel++
			}
			if text := strings.TrimSpace(b.TextContent()); text != "" {
				r := BlockRow{Page: pi + 1, Logical: info.Logical, Panel: panel, Pos: pos, Type: string(b.Type), Text: text}
				if bi > 0 && doc.IsPair(page.Content[bi-1], b) {
					r.Speaker = strings.TrimSpace(page.Content[bi-1].TextContent())
				}
				rows = append(rows, r)
			}
			pos += b.NodeSize()
		}
	}
	return rows
}

// Update replaces the indexed content of one script.
func (ix *Index) Update(ctx context.Context, s domain.Script) error {
	d, err := doc.Decode(s.Content)
	if err != nil {
		return fmt.Errorf("index %s: %w", s.ID, err)
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := indexScript(ctx, tx, s, d); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func indexScript(ctx context.Context, tx *sql.Tx, s domain.Script, d *doc.Node) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE script_id=?`, s.ID); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scripts(id, title, series, chapter, modified) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, series=excluded.series, chapter=excluded.chapter, modified=excluded.modified`,
		s.ID, s.Title, s.SeriesTitle, string(s.ChapterNumber), s.LastModified); err != nil {
		return fmt.Errorf("upsert script: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO blocks(script_id, page, logical, panel, pos, type, speaker, text) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range BlockRows(d) {
		speaker := sql.NullString{String: r.Speaker, Valid: r.Speaker != ""}
		if _, err := ins.ExecContext(ctx, s.ID, r.Page, r.Logical, r.Panel, r.Pos, r.Type, speaker, r.Text); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
	}
	return nil
}

// Remove drops a script, its blocks and its history from the index.
func (ix *Index) Remove(ctx context.Context, id string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, q := range []string{
		`DELETE FROM blocks WHERE script_id=?`,
		`DELETE FROM snapshots WHERE script_id=?`,
		`DELETE FROM scripts WHERE id=?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("remove script: %w", err)
		}
	}
	return tx.Commit()
}

// Count returns the number of indexed scripts.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scripts`).Scan(&n)
	return n, err
}

// Rebuild drops the derived tables and indexes scripts again. History
// snapshots are kept. Scripts whose content does not decode are skipped.
func (ix *Index) Rebuild(ctx context.Context, scripts []domain.Script) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_rebuild")
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS blocks_ai;",
		"DROP TRIGGER IF EXISTS blocks_ad;",
		"DROP TRIGGER IF EXISTS blocks_au;",
		"DROP TABLE IF EXISTS fts_blocks;",
		"DROP TABLE IF EXISTS blocks;",
		"DROP TABLE IF EXISTS scripts;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, ix.db); err != nil {
		return err
	}

	tx, err = ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	n := 0
	for _, s := range scripts {
		d, derr := doc.Decode(s.Content)
		if derr != nil {
			l.Warn("skip undecodable script", slog.String("script", s.ID), slog.Any("err", derr))
			continue
		}
		if err := indexScript(ctx, tx, s, d); err != nil {
			_ = tx.Rollback()
			return err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	l.Info("index rebuilt", slog.Int("scripts", n))
	return nil
}

// BuildIfEmpty indexes scripts when the index holds none yet.
func (ix *Index) BuildIfEmpty(ctx context.Context, scripts []domain.Script) (bool, error) {
	n, err := ix.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("check scripts count: %w", err)
	}
	if n > 0 || len(scripts) == 0 {
		return false, nil
	}
	return true, ix.Rebuild(ctx, scripts)
}

// DetectAndRebuildIndex opens the index of dir, replacing it when it is
// corrupt or misses its tables, and fills it from st when it is new. It
// reports whether a corrupt index was replaced.
func DetectAndRebuildIndex(ctx context.Context, dir string, st Store) (*Index, bool, error) {
	path := IndexPath(dir)
	ix, err := OpenIndex(dir)
	needs := err != nil
	if ix != nil {
		var chk string
		if qerr := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); qerr != nil || !strings.Contains(strings.ToLower(chk), "ok") {
			needs = true
		}
		if !needs {
			if _, perr := ix.db.ExecContext(ctx, `SELECT 1 FROM blocks LIMIT 1;`); perr != nil {
				needs = true
			}
		}
		if needs {
			_ = ix.Close()
			ix = nil
		}
	}
	if needs {
		applog.WithOperation(applog.WithComponent("storage"), "index_check").Warn("index unusable, rebuilding", slog.String("path", path), slog.Any("err", err))
		backupIndexFile(path)
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			_ = os.Remove(p)
		}
		if ix, err = OpenIndex(dir); err != nil {
			return nil, false, fmt.Errorf("reopen index: %w", err)
		}
	}
	all, err := st.List(ctx)
	if err != nil {
		return ix, needs, err
	}
	if needs {
		err = ix.Rebuild(ctx, all)
	} else {
		_, err = ix.BuildIfEmpty(ctx, all)
	}
	return ix, needs, err
}

// backupIndexFile copies the index file into <dir>/.gcs/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
