/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package numbering keeps panel numbers consistent with the logical page
// structure and derives the page/panel indexes used by navigation and export.
//
// Panel numbers restart at 1 after every page header and run on across
// continuation pages, so a panel pushed onto a continuation page keeps its number.
package numbering

import (
	"log/slog"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	applog "gocomicscript/internal/log"
)

// Patch is a panel whose stored number differs from its computed number.
type Patch struct {
	Pos    int
	Number int
}

// Compute walks the document in order and returns the panels that need a new
// number. An empty result means the document is already consistent.
func Compute(d *doc.Node) []Patch {
	var patches []Patch
	counter := 0
	d.Descendants(func(n *doc.Node, pos int, _ *doc.Node, _ int) bool {
		switch n.Type {
		case doc.TypePage:
			return true
		case doc.TypeHeader:
			counter = 0
		case doc.TypePanel:
			counter++
			if n.Number() != counter {
				patches = append(patches, Patch{Pos: pos, Number: counter})
			}
		}
		return false
	})
	return patches
}

// Renumber builds the transaction that fixes every stale panel number, or nil
// when nothing changes. The transaction stays out of undo history.
func Renumber(st *edit.State) *edit.Transaction {
	patches := Compute(st.Doc)
	if len(patches) == 0 {
		return nil
	}
	tr := st.Tr().SetAddToHistory(false).SetOrigin(edit.OriginNumbering)
	for _, p := range patches {
		// attribute steps do not move positions
		if err := tr.SetNodeAttrs(p.Pos, doc.Attrs{Number: p.Number}); err != nil {
			return nil
		}
	}
	return tr
}

// Plugin renumbers panels after every document change made by someone else.
type Plugin struct {
	log *slog.Logger
}

// NewPlugin returns the numbering pass as an editor plugin.
func NewPlugin() *Plugin {
	return &Plugin{log: applog.WithComponent("numbering")}
}

// Init numbers a freshly loaded document.
func (p *Plugin) Init(v edit.View) { p.run(v) }

// Update ignores transactions it produced itself, which keeps the pass from
// re-triggering on its own output.
func (p *Plugin) Update(v edit.View, _ *edit.State, tr *edit.Transaction) {
	if !tr.DocChanged() || tr.Origin() == edit.OriginNumbering {
		return
	}
	p.run(v)
}

func (p *Plugin) run(v edit.View) {
	if v.IsDestroyed() {
		return
	}
	tr := Renumber(v.State())
	if tr == nil {
		return
	}
	if err := v.Dispatch(tr); err != nil {
		p.log.Error("renumber dispatch failed", slog.Any("err", err))
		return
	}
	p.log.Debug("panels renumbered", slog.Int("steps", len(tr.Steps)))
}
