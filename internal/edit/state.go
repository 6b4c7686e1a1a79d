/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package edit is the tree editor: steps that change a document, the position
// mapping they produce, transactions that bundle them, and the immutable
// editor state they are applied to.
package edit

import (
	"errors"

	"gocomicscript/internal/doc"
)

// ErrStaleTransaction is returned when a transaction built on one document is
// applied to a state holding another.
var ErrStaleTransaction = errors.New("transaction was built against a different document")

// State is one immutable version of the edited document plus its selection.
type State struct {
	Doc       *doc.Node
	Selection Selection
}

// NewState returns a state for d with the cursor at the first text position.
func NewState(d *doc.Node) *State {
	return &State{Doc: d, Selection: Cursor(d.NearestTextPos(0, 1))}
}

// Tr starts a transaction on this state.
func (s *State) Tr() *Transaction { return newTransaction(s.Doc, s.Selection) }

// Apply returns the state that results from tr. The selection is clamped into
// the new document and moved into the nearest block text when it landed between
// blocks.
func (s *State) Apply(tr *Transaction) (*State, error) {
	if tr.Before != s.Doc {
		return nil, ErrStaleTransaction
	}
	sel := tr.Selection()
	sel = Selection{
		Anchor: settle(tr.Doc, sel.Anchor, -1),
		Head:   settle(tr.Doc, sel.Head, 1),
	}
	if tr.Selection().Empty() {
		sel.Anchor = sel.Head
	}
	return &State{Doc: tr.Doc, Selection: sel}, nil
}

func settle(d *doc.Node, pos, bias int) int {
	size := d.ContentSize()
	if pos < 0 {
		pos = 0
	}
	if pos > size {
		pos = size
	}
	return d.NearestTextPos(pos, bias)
}

// CursorInfo resolves the head of the selection.
func (s *State) CursorInfo() (*doc.ResolvedPos, error) { return s.Doc.Resolve(s.Selection.Head) }
