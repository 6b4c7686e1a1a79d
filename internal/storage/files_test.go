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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/domain"
)

// stepClock makes every call to clock one second later than the previous one.
func stepClock(t *testing.T) {
	t.Helper()
	now := time.Date(2025, 11, 29, 8, 0, 0, 0, time.UTC)
	prev := clock
	clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { clock = prev })
}

func encode(t *testing.T, d *doc.Node) []byte {
	t.Helper()
	b, err := doc.Encode(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func scriptDoc(panel string) *doc.Node {
	return doc.NewDoc(doc.NewPage(
		doc.NewBlock(doc.TypeHeader, ""),
		doc.NewPanel(1, panel),
		doc.NewBlock(doc.TypeParagraph, "Rain."),
	))
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "scripts"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestFileStoreSaveLoad(t *testing.T) {
	stepClock(t)
	fs := newStore(t)
	ctx := context.Background()
	saved, err := SaveDocument(ctx, fs, "s1", scriptDoc("Rooftop"), Meta{Title: " The Docks ", SeriesTitle: "Night City", ChapterNumber: "3"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.LastModified == 0 || saved.Title != "The Docks" {
		t.Fatalf("saved = %+v", saved)
	}
	d, s, err := LoadDocument(ctx, fs, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !d.Equal(scriptDoc("Rooftop")) {
		t.Fatalf("document changed on the way through the store")
	}
	if MetaOf(s) != (Meta{Title: "The Docks", SeriesTitle: "Night City", ChapterNumber: "3"}) {
		t.Fatalf("meta = %+v", MetaOf(s))
	}
	if _, err := os.Stat(fs.Path("s1")); err != nil {
		t.Fatalf("record file missing: %v", err)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(fs.Dir)
	for _, e := range ents {
		if e.Name() != "s1.json" && e.Name() != BackupsDirName {
			t.Fatalf("unexpected file %s", e.Name())
		}
	}
}

func TestLoadMissingScriptYieldsDefaultDocument(t *testing.T) {
	fs := newStore(t)
	ctx := context.Background()
	if _, err := fs.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load err = %v, want ErrNotFound", err)
	}
	d, s, err := LoadDocument(ctx, fs, "nope")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if !d.Equal(doc.DefaultDocument()) || s.ID != "nope" {
		t.Fatalf("expected the default document")
	}
}

func TestSaveKeepsBackupAndRestoresFromIt(t *testing.T) {
	stepClock(t)
	fs := newStore(t)
	ctx := context.Background()
	if _, err := SaveDocument(ctx, fs, "s1", scriptDoc("one"), Meta{Title: "v1"}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if _, err := SaveDocument(ctx, fs, "s1", scriptDoc("two"), Meta{Title: "v2"}); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	if n := len(fs.Backups("s1")); n != 1 {
		t.Fatalf("backups = %d, want 1", n)
	}
	if err := os.WriteFile(fs.Path("s1"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	s, err := fs.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load after corruption: %v", err)
	}
	if s.Title != "v1" {
		t.Fatalf("restored %q, want the backed up v1", s.Title)
	}
}

func TestBackupsArePruned(t *testing.T) {
	stepClock(t)
	fs := newStore(t)
	fs.KeepBackups = 2
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := SaveDocument(ctx, fs, "s1", scriptDoc("x"), Meta{}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if n := len(fs.Backups("s1")); n != 2 {
		t.Fatalf("backups = %d, want 2", n)
	}
}

func TestListNewestFirstAndDelete(t *testing.T) {
	stepClock(t)
	fs := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := SaveDocument(ctx, fs, id, scriptDoc(id), Meta{Title: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	// a stray file is skipped
	if err := os.WriteFile(filepath.Join(fs.Dir, "junk.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	all, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("list order = %+v", all)
	}
	if _, err := SaveDocument(ctx, fs, "a", scriptDoc("a2"), Meta{Title: "a"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if err := fs.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted script still loads: %v", err)
	}
	if len(fs.Backups("a")) != 0 {
		t.Fatalf("backups of a deleted script remain")
	}
	if err := fs.Delete(ctx, "a"); err != nil {
		t.Fatalf("deleting twice: %v", err)
	}
}

func TestInvalidIDsAndContent(t *testing.T) {
	fs := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"", "..", "../x", `a\b`} {
		if _, err := fs.Save(ctx, domain.Script{ID: id, Content: encode(t, doc.DefaultDocument())}); err == nil {
			t.Fatalf("id %q accepted", id)
		}
	}
	if _, err := fs.Save(ctx, domain.Script{ID: "x"}); err == nil {
		t.Fatalf("script without content accepted")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	a, err := NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	b, _ := NewID()
	if a == b || len(a) != 36 {
		t.Fatalf("ids %q %q", a, b)
	}
}
