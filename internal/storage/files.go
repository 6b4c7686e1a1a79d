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
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gocomicscript/internal/domain"
	applog "gocomicscript/internal/log"
)

const (
	BackupsDirName = "backups"
	recordExt      = ".json"
	// DefaultKeepBackups is the number of backups kept per script.
	DefaultKeepBackups = 10
)

// FileStore keeps one JSON record per script in Dir. Every save first copies
// the current record to Dir/backups/<id>.json.<stamp>.bak.
type FileStore struct {
	Dir string
	// KeepBackups bounds the backups per script; <= 0 keeps all of them.
	KeepBackups int

	mu sync.Mutex
}

// NewFileStore creates dir and its backups folder if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("scripts directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	return &FileStore{Dir: dir, KeepBackups: DefaultKeepBackups}, nil
}

// Path returns the record file of id.
func (fs *FileStore) Path(id string) string { return filepath.Join(fs.Dir, id+recordExt) }

// Save writes s transactionally and returns it with LastModified stamped.
func (fs *FileStore) Save(_ context.Context, s domain.Script) (domain.Script, error) {
	if err := validID(s.ID); err != nil {
		return s, err
	}
	if !s.HasContent() {
		return s, fmt.Errorf("script %s: content is required", s.ID)
	}
	s.Touch(clock())
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return s, fmt.Errorf("marshal script: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()
	path := fs.Path(s.ID)
	bdir := filepath.Join(fs.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return s, fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := clock().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s%s.%s.bak", s.ID, recordExt, stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return s, fmt.Errorf("backup current script: %w", cerr)
		}
		fs.pruneBackups(s.ID)
	}

	temp := filepath.Join(fs.Dir, fmt.Sprintf(".%s%s.tmp-%d-%d", s.ID, recordExt, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return s, fmt.Errorf("write temp script: %w", werr)
	}
	// Windows refuses to rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return s, fmt.Errorf("replace script: %w", rerr)
	}
	return s, nil
}

// Load reads the record of id. A record that cannot be read or parsed is
// restored from its latest backup.
func (fs *FileStore) Load(_ context.Context, id string) (domain.Script, error) {
	if err := validID(id); err != nil {
		return domain.Script{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("storage"), "load").With(slog.String("script", id))

	b, err := os.ReadFile(fs.Path(id))
	if err != nil {
		s, berr := fs.openFromLatestBackup(id)
		if berr != nil {
			if errors.Is(err, os.ErrNotExist) {
				return domain.Script{}, ErrNotFound
			}
			return domain.Script{}, fmt.Errorf("open script: %w; backup attempt: %v", err, berr)
		}
		l.Warn("script file unreadable, restored from backup", slog.Any("err", err))
		return s, nil
	}
	var s domain.Script
	if uerr := json.Unmarshal(b, &s); uerr != nil || !s.Valid() {
		if uerr == nil {
			uerr = errors.New("record has no id or content")
		}
		bs, berr := fs.openFromLatestBackup(id)
		if berr != nil {
			return domain.Script{}, fmt.Errorf("parse script: %w; backup attempt: %v", uerr, berr)
		}
		l.Warn("script file corrupt, restored from backup", slog.Any("err", uerr))
		return bs, nil
	}
	return s, nil
}

// List returns every readable record, newest first. Unreadable files are
// skipped and logged.
func (fs *FileStore) List(_ context.Context) ([]domain.Script, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ents, err := os.ReadDir(fs.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "list")
	var out []domain.Script
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(fs.Dir, name))
		if err != nil {
			l.Warn("skip unreadable script", slog.String("file", name), slog.Any("err", err))
			continue
		}
		var s domain.Script
		if err := json.Unmarshal(b, &s); err != nil || s.ID == "" {
			l.Warn("skip malformed script", slog.String("file", name), slog.Any("err", err))
			continue
		}
		out = append(out, s)
	}
	sortNewestFirst(out)
	return out, nil
}

// Delete removes the record of id together with its backups. Deleting an
// unknown id is not an error.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete script: %w", err)
	}
	for _, b := range fs.backups(id) {
		_ = os.Remove(b)
	}
	return nil
}

// Backups lists the backup files of id, oldest first.
func (fs *FileStore) Backups(id string) []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.backups(id)
}

func (fs *FileStore) backups(id string) []string {
	bdir := filepath.Join(fs.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := id + recordExt + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (fs *FileStore) pruneBackups(id string) {
	if fs.KeepBackups <= 0 {
		return
	}
	all := fs.backups(id)
	for len(all) > fs.KeepBackups {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

// openFromLatestBackup tries the backups of id from newest to oldest.
func (fs *FileStore) openFromLatestBackup(id string) (domain.Script, error) {
	candidates := fs.backups(id)
	if len(candidates) == 0 {
		return domain.Script{}, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = fmt.Errorf("read backup: %w", err)
			continue
		}
		var s domain.Script
		if err := json.Unmarshal(b, &s); err != nil || !s.Valid() {
			lastErr = fmt.Errorf("parse backup %s: %v", filepath.Base(candidates[i]), err)
			continue
		}
		return s, nil
	}
	return domain.Script{}, lastErr
}

func sortNewestFirst(s []domain.Script) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].LastModified != s[j].LastModified {
			return s[i].LastModified > s[j].LastModified
		}
		return s[i].ID < s[j].ID
	})
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
