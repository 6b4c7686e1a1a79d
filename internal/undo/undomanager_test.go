/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"strings"
	"testing"
	"time"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

func snap(text string, ts time.Time) Snapshot {
	d := doc.NewDoc(doc.NewPage(doc.NewBlock(doc.TypeParagraph, text)))
	return Snapshot{Doc: d, Selection: edit.Cursor(2), TS: ts}
}

func text(s Snapshot) string { return s.Doc.TextContent() }

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record("s", snap("a", t0))
	m.Record("s", snap("b", t0.Add(20*time.Millisecond)))
	if _, scripts, total := m.Stats(); scripts != 1 || total != 2 {
		t.Fatalf("expected 1 script and 2 snapshots, got scripts=%d total=%d", scripts, total)
	}
	s, ok := m.Undo("s", snap("c", t0.Add(time.Second)))
	if !ok || text(s) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v text=%q", ok, text(s))
	}
	if !m.CanRedo("s") {
		t.Fatalf("expected redo history")
	}
	s, ok = m.Redo("s", s)
	if !ok || text(s) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v text=%q", ok, text(s))
	}
	if _, ok := m.Undo("other", snap("", t0)); ok {
		t.Fatalf("unknown script must have no history")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Record("s", snap("a", t0))
	cur, _ := m.Undo("s", snap("b", t0))
	m.Record("s", cur)
	if m.CanRedo("s") {
		t.Fatalf("a new edit must drop redo history")
	}
}

func TestCoalesce(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record("s", snap("1", t0))
	m.Record("s", snap("2", t0.Add(10*time.Millisecond)))
	m.Record("s", snap("3", t0.Add(40*time.Millisecond)))
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo("s", snap("4", t0.Add(time.Second)))
	if !ok || text(s) != "1" {
		t.Fatalf("expected the group to restore '1', got ok=%v text=%q", ok, text(s))
	}

	m.Record("s", snap("5", t0.Add(2*time.Second)))
	m.Break("s")
	m.Record("s", snap("6", t0.Add(2*time.Second+time.Millisecond)))
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("Break must start a new group, got %d snapshots", total)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxDepth: 2})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record("s", snap("xxxxx", t0.Add(time.Duration(i)*time.Millisecond)))
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxDepth cap to limit to 2, got %d", total)
	}
}

func TestGlobalPruneAcrossScripts(t *testing.T) {
	// each snapshot holds a page with one 4-character paragraph, 8 positions
	m := NewManager(Config{MaxSize: 16})
	t0 := time.Now()
	m.Record("one", snap("xxxx", t0))
	m.Record("two", snap("yyyy", t0.Add(time.Second)))
	m.Record("two", snap("zzzz", t0.Add(2*time.Second)))
	if m.CanUndo("one") {
		t.Fatalf("expected the oldest script history to be pruned")
	}
	if !m.CanUndo("two") {
		t.Fatalf("expected script two to keep history")
	}
	size, _, _ := m.Stats()
	if size > 16 {
		t.Fatalf("size = %d exceeds cap", size)
	}
}

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{})
	m.Record("s", snap(strings.Repeat("a", 6), time.Now()))
	size, scripts, total := m.Stats()
	if size == 0 || scripts != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: size=%d scripts=%d total=%d", size, scripts, total)
	}
	m.Clear("s")
	size, scripts, total = m.Stats()
	if size != 0 || scripts != 0 || total != 0 {
		t.Fatalf("expected cleared stats to be zero, got size=%d scripts=%d total=%d", size, scripts, total)
	}
}
