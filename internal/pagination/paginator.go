/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"log/slog"
	"strconv"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	applog "gocomicscript/internal/log"
)

// Outcome is the result of one measurement cycle.
type Outcome int

const (
	Stable Outcome = iota
	Cleaned
	Relocated
	Joined
	Aborted
	Detached
)

func (o Outcome) String() string {
	switch o {
	case Stable:
		return "stable"
	case Cleaned:
		return "cleaned"
	case Relocated:
		return "relocated"
	case Joined:
		return "joined"
	case Aborted:
		return "aborted"
	case Detached:
		return "detached"
	default:
		return "unknown(" + strconv.Itoa(int(o)) + ")"
	}
}

const (
	keyPrefix  = "pagination:"
	keyCleanup = "pagination:cleanup"
)

// Paginator runs cleanup and overflow handling after the host has rendered a
// change. Work is deferred per page, so a newer edit to the same page replaces
// a pending cycle. A cycle changes at most one page; the transaction it
// dispatches arms the next cycle.
type Paginator struct {
	engine *Engine
	log    *slog.Logger
	// OnCycle, when set, observes every completed cycle.
	OnCycle func(start int, o Outcome)
}

// NewPaginator wraps an engine as an editor plugin.
func NewPaginator(e *Engine) *Paginator {
	return &Paginator{engine: e, log: applog.WithComponent("pagination")}
}

// Init checks a freshly loaded document from its first page.
func (p *Paginator) Init(v edit.View) { p.schedule(v, 0) }

// Update arms a cycle starting at the first page the transaction touched. A
// selection-only change arms a cleanup-only cycle, since leaving a page may make
// it eligible for removal.
func (p *Paginator) Update(v edit.View, prev *edit.State, tr *edit.Transaction) {
	if tr.DocChanged() {
		if start := firstChangedPage(prev.Doc, tr.Doc); start >= 0 {
			p.schedule(v, start)
		}
		return
	}
	if tr.Selection() != prev.Selection {
		v.Scheduler().Defer(keyCleanup, func() { p.finish(-1, p.cleanupOnly(v)) })
	}
}

func (p *Paginator) schedule(v edit.View, start int) {
	v.Scheduler().Defer(keyPrefix+strconv.Itoa(start), func() { p.Cycle(v, start) })
}

// Cycle runs one measurement cycle: cleanup first, then rejoining a speaker
// split from its line, and only when both had nothing to do, one relocation of
// the first overflowing page at or after start.
func (p *Paginator) Cycle(v edit.View, start int) Outcome {
	if v.IsDestroyed() {
		return p.finish(start, Detached)
	}
	if o := p.cleanupOnly(v); o != Stable {
		return p.finish(start, o)
	}
	if o := p.joinPair(v, start); o != Stable {
		return p.finish(start, o)
	}
	st := v.State()
	idx, ok := p.engine.FirstOverflow(st.Doc, start)
	if !ok {
		return p.finish(start, Stable)
	}
	tr, rel, err := p.engine.Reflow(st, idx)
	if err != nil {
		p.log.Warn("relocation aborted", slog.Int("page", idx), slog.Any("err", err))
		return p.finish(start, Aborted)
	}
	if err := v.Dispatch(tr); err != nil {
		p.log.Error("relocation dispatch failed", slog.Int("page", idx), slog.Any("err", err))
		return p.finish(start, Aborted)
	}
	p.log.Debug("blocks relocated",
		slog.Int("page", rel.Source),
		slog.Int("blocks", rel.Blocks),
		slog.Bool("merged", rel.Merged),
		slog.Bool("cursor", rel.CursorMoved))
	return p.finish(start, Relocated)
}

// joinPair looks one page before start too, since a change at the top of a
// page can bring it next to a speaker left at the bottom of the previous one.
func (p *Paginator) joinPair(v edit.View, start int) Outcome {
	st := v.State()
	idx, ok := FirstSplitPair(st.Doc, start-1)
	if !ok {
		return Stable
	}
	tr, rep, err := JoinPair(st, idx)
	if err != nil {
		p.log.Warn("pair join aborted", slog.Int("page", idx), slog.Any("err", err))
		return Aborted
	}
	if err := v.Dispatch(tr); err != nil {
		p.log.Error("pair join dispatch failed", slog.Int("page", idx), slog.Any("err", err))
		return Aborted
	}
	p.log.Debug("split pair joined",
		slog.Int("page", rep.Page),
		slog.Bool("forward", rep.Forward),
		slog.Bool("cursor", rep.CursorMoved))
	return Joined
}

func (p *Paginator) cleanupOnly(v edit.View) Outcome {
	if v.IsDestroyed() {
		return Detached
	}
	tr := Cleanup(v.State())
	if tr == nil {
		return Stable
	}
	if err := v.Dispatch(tr); err != nil {
		p.log.Error("cleanup dispatch failed", slog.Any("err", err))
		return Aborted
	}
	p.log.Debug("empty pages removed", slog.Int("pages", len(tr.Steps)))
	return Cleaned
}

func (p *Paginator) finish(start int, o Outcome) Outcome {
	if p.OnCycle != nil {
		p.OnCycle(start, o)
	}
	return o
}

// firstChangedPage returns the index of the first page that differs between
// two document versions. Unchanged pages are shared, so pointer identity is enough.
func firstChangedPage(a, b *doc.Node) int {
	n := min(a.ChildCount(), b.ChildCount())
	for i := 0; i < n; i++ {
		if a.Child(i) != b.Child(i) {
			return i
		}
	}
	if a.ChildCount() == b.ChildCount() {
		return -1
	}
	return max(n-1, 0)
}
