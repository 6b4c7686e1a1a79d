/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagination keeps physical pages within their rendered capacity.
// Overflowing pages shed their trailing block (or speaker/line pair) onto a
// continuation page, and continuation pages that end up empty are removed.
package pagination

import (
	"errors"
	"fmt"
	"log/slog"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	applog "gocomicscript/internal/log"
)

// DefaultCapacity is the page height limit in pixels used when none is configured.
const DefaultCapacity = 1200

// Measurer reports the rendered height of a page. ok is false when the page has
// no live rendering, for example because it was removed since the cycle began.
type Measurer interface {
	MeasurePage(page *doc.Node, index int) (height float64, ok bool)
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(page *doc.Node, index int) (float64, bool)

func (f MeasureFunc) MeasurePage(page *doc.Node, index int) (float64, bool) { return f(page, index) }

// Reasons a relocation is refused.
var (
	ErrNoPage         = errors.New("page does not exist")
	ErrTooFewBlocks   = errors.New("page has fewer than two blocks")
	ErrHeaderOnly     = errors.New("page holds only its header and one block")
	ErrHeaderLast     = errors.New("last block is the page header")
	ErrWouldEmptyPage = errors.New("relocation would leave the page without content")
)

// Guard returns the unit to relocate from an overflowing page, or the reason
// the page must be left alone.
func Guard(page *doc.Node) (doc.Unit, error) {
	n := page.ChildCount()
	if n < 2 {
		return doc.Unit{}, ErrTooFewBlocks
	}
	hasHeader := doc.HasHeader(page)
	if n == 2 && hasHeader {
		return doc.Unit{}, ErrHeaderOnly
	}
	if doc.IsHeader(page.LastChild()) {
		return doc.Unit{}, ErrHeaderLast
	}
	u, _ := doc.TrailingUnit(page)
	rest := n - u.Count
	if hasHeader {
		rest--
	}
	if rest < 1 {
		return doc.Unit{}, ErrWouldEmptyPage
	}
	return u, nil
}

// Engine detects overflowing pages and builds relocation transactions.
type Engine struct {
	Measurer Measurer
	Capacity float64
	log      *slog.Logger
}

// NewEngine returns an engine measuring with m against capacity. A capacity
// of zero or less selects DefaultCapacity.
func NewEngine(m Measurer, capacity float64) *Engine {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Engine{Measurer: m, Capacity: capacity, log: applog.WithComponent("pagination")}
}

// Overflows reports whether page exceeds the capacity.
func (e *Engine) Overflows(page *doc.Node, index int) bool {
	h, ok := e.Measurer.MeasurePage(page, index)
	return ok && h > e.Capacity
}

// FirstOverflow returns the first page at or after start that overflows and may
// be relocated. Guarded pages are skipped so later pages still get handled.
func (e *Engine) FirstOverflow(d *doc.Node, start int) (int, bool) {
	for i := max(start, 0); i < d.ChildCount(); i++ {
		p := d.Child(i)
		if !e.Overflows(p, i) {
			continue
		}
		if _, err := Guard(p); err != nil {
			e.log.Debug("overflowing page left alone", slog.Int("page", i), slog.String("reason", err.Error()))
			continue
		}
		return i, true
	}
	return 0, false
}

// Relocation summarizes a planned move for logging and tests.
type Relocation struct {
	Source int
	Blocks int
	// Merged is true when the unit was prepended to an existing continuation page.
	Merged bool
	// InsertPos is the position of the first moved block in the new document.
	InsertPos int
	// CursorMoved is true when the selection travelled with the unit.
	CursorMoved bool
}

// Reflow moves the trailing unit of page index onto the next page in a single
// transaction. If the next page is a continuation page the unit is prepended to
// it, otherwise a new continuation page is inserted after the source. A
// selection inside the moved blocks is carried along at the same offset.
func (e *Engine) Reflow(st *edit.State, index int) (*edit.Transaction, Relocation, error) {
	d := st.Doc
	page := d.Child(index)
	if page == nil {
		return nil, Relocation{}, ErrNoPage
	}
	u, err := Guard(page)
	if err != nil {
		return nil, Relocation{}, err
	}
	pagePos := d.PagePos(index)
	pageEnd := pagePos + page.NodeSize()
	from := pageEnd - u.Size - 1
	to := from + u.Size
	blocks := u.Blocks(page)

	rel := Relocation{Source: index, Blocks: u.Count}
	tr := st.Tr().SetAddToHistory(false).SetOrigin(edit.OriginReflow)
	if err := tr.Delete(from, to); err != nil {
		return nil, rel, fmt.Errorf("detach trailing blocks: %w", err)
	}
	target := tr.Mapping.Map(pageEnd, 1)
	if next := d.Child(index + 1); next != nil && !doc.HasHeader(next) {
		rel.Merged = true
		rel.InsertPos = target + 1
		if err := tr.Insert(rel.InsertPos, blocks...); err != nil {
			return nil, rel, fmt.Errorf("merge into continuation page: %w", err)
		}
	} else {
		rel.InsertPos = target + 1
		if err := tr.Insert(target, doc.NewPage(blocks...)); err != nil {
			return nil, rel, fmt.Errorf("insert continuation page: %w", err)
		}
	}

	sel := st.Selection
	if sel.From() >= from && sel.To() <= to {
		moved := edit.Selection{
			Anchor: rel.InsertPos + (sel.Anchor - from),
			Head:   rel.InsertPos + (sel.Head - from),
		}
		if size := tr.Doc.ContentSize(); moved.Anchor <= size && moved.Head <= size {
			tr.SetSelection(moved).ScrollIntoView()
			rel.CursorMoved = true
		} else {
			e.log.Warn("cursor restore skipped", slog.Int("head", moved.Head), slog.Int("size", size))
		}
	}
	return tr, rel, nil
}
