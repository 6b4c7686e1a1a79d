/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-script undo and redo history as document snapshots.
// Documents are immutable and share unchanged pages, so a snapshot costs one
// pointer plus whatever the edit actually replaced.
package undo

import (
	"sync"
	"time"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

// Snapshot is a document version together with the selection to restore.
// TS is when the snapshot was captured.
type Snapshot struct {
	Doc       *doc.Node
	Selection edit.Selection
	TS        time.Time
}

func (s Snapshot) size() int { return s.Doc.ContentSize() }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxSize is a soft cap on the summed document sizes held in undo stacks;
	// older entries are pruned when exceeded.
	MaxSize int
	// MaxDepth limits the number of undo steps per script (0 means unlimited).
	MaxDepth int
	// MinInterval groups edits captured within the interval of the previous one
	// into a single undo step.
	MinInterval time.Duration
}

// Manager provides undo/redo stacks per script with memory safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// last is when the newest edit of a group was recorded
	last map[string]time.Time

	totalSize int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 16 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{
		cfg:  cfg,
		undo: make(map[string][]Snapshot),
		redo: make(map[string][]Snapshot),
		last: make(map[string]time.Time),
	}
}

// Record stores the state an edit is about to replace. If the previous edit on
// the same script happened within MinInterval, the edit joins that group and
// the older snapshot is kept. Any new edit clears redo.
func (m *Manager) Record(key string, before Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redo[key] = nil
	stack := m.undo[key]
	last, seen := m.last[key]
	m.last[key] = before.TS
	if n := len(stack); n > 0 && seen && m.cfg.MinInterval > 0 && before.TS.Sub(last) < m.cfg.MinInterval {
		return
	}
	m.undo[key] = append(stack, before)
	m.totalSize += before.size()
	m.enforceCapsLocked(key)
}

// Break ends the current group so the next edit starts a new undo step.
func (m *Manager) Break(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, key)
}

// Undo pops the newest snapshot and parks current on the redo stack.
func (m *Manager) Undo(key string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[key]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[key] = stack[:len(stack)-1]
	m.totalSize -= s.size()
	m.redo[key] = append(m.redo[key], current)
	delete(m.last, key)
	return s, true
}

// Redo pops the newest redo snapshot and pushes current back onto undo.
func (m *Manager) Redo(key string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[key]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[key] = r[:len(r)-1]
	m.undo[key] = append(m.undo[key], current)
	m.totalSize += current.size()
	delete(m.last, key)
	m.enforceCapsLocked(key)
	return s, true
}

// CanUndo reports whether key has undo history.
func (m *Manager) CanUndo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[key]) > 0
}

// CanRedo reports whether key has redo history.
func (m *Manager) CanRedo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[key]) > 0
}

// Clear drops all history of a script, e.g. when it is closed.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[key] {
		m.totalSize -= s.size()
	}
	delete(m.undo, key)
	delete(m.redo, key)
	delete(m.last, key)
	if m.totalSize < 0 {
		m.totalSize = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalSize int, scripts int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scripts = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalSize, scripts, totalSnapshots
}

func (m *Manager) enforceCapsLocked(key string) {
	if m.cfg.MaxDepth > 0 {
		stack := m.undo[key]
		if len(stack) > m.cfg.MaxDepth {
			toDrop := len(stack) - m.cfg.MaxDepth
			for i := 0; i < toDrop; i++ {
				m.totalSize -= stack[i].size()
			}
			m.undo[key] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// global cap: prune the oldest snapshot across all scripts
	for m.cfg.MaxSize > 0 && m.totalSize > m.cfg.MaxSize {
		oldestKey := ""
		found := false
		var oldestTS time.Time
		for k, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestKey, oldestTS, found = k, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestKey]
		m.totalSize -= stack[0].size()
		m.undo[oldestKey] = stack[1:]
		if len(m.undo[oldestKey]) == 0 {
			delete(m.undo, oldestKey)
		}
	}
}
