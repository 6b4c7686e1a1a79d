/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package edit

import (
	"time"

	"gocomicscript/internal/doc"
)

// Origin tags the producer of a transaction. Passes use it to ignore their own output.
type Origin string

const (
	OriginInput     Origin = "input"
	OriginCommand   Origin = "command"
	OriginNumbering Origin = "numbering"
	OriginCleanup   Origin = "cleanup"
	OriginReflow    Origin = "reflow"
	OriginHistory   Origin = "history"
	OriginLoad      Origin = "load"
)

// Selection is an anchor/head pair of absolute positions. A cursor has Anchor == Head.
type Selection struct {
	Anchor int
	Head   int
}

// Cursor returns a collapsed selection at pos.
func Cursor(pos int) Selection { return Selection{Anchor: pos, Head: pos} }

// From returns the smaller end.
func (s Selection) From() int { return min(s.Anchor, s.Head) }

// To returns the larger end.
func (s Selection) To() int { return max(s.Anchor, s.Head) }

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

// Map moves both ends through a mapping.
func (s Selection) Map(m *Mapping) Selection {
	return Selection{Anchor: m.Map(s.Anchor, 1), Head: m.Map(s.Head, 1)}
}

// Transaction accumulates steps against a base document. Steps are validated as
// they are added; a rejected step leaves the transaction unchanged. Nothing is
// visible until the transaction is applied to the state it was created from.
type Transaction struct {
	Before  *doc.Node
	Doc     *doc.Node
	Steps   []Step
	Mapping Mapping
	Time    time.Time

	baseSel      Selection
	sel          *Selection
	scroll       bool
	addToHistory bool
	origin       Origin
}

func newTransaction(d *doc.Node, sel Selection) *Transaction {
	return &Transaction{
		Before:       d,
		Doc:          d,
		Time:         time.Now(),
		baseSel:      sel,
		addToHistory: true,
		origin:       OriginInput,
	}
}

// Step applies s to the transaction's current document.
func (tr *Transaction) Step(s Step) error {
	next, err := s.Apply(tr.Doc)
	if err != nil {
		return err
	}
	tr.Doc = next
	tr.Steps = append(tr.Steps, s)
	tr.Mapping.Append(s.Map())
	return nil
}

// Replace replaces [from, to) with nodes.
func (tr *Transaction) Replace(from, to int, nodes ...*doc.Node) error {
	return tr.Step(ReplaceStep{From: from, To: to, Content: nodes})
}

// Delete removes [from, to).
func (tr *Transaction) Delete(from, to int) error {
	if from == to {
		return nil
	}
	return tr.Replace(from, to)
}

// Insert inserts nodes at pos.
func (tr *Transaction) Insert(pos int, nodes ...*doc.Node) error {
	return tr.Replace(pos, pos, nodes...)
}

// InsertText inserts a text run at a position inside a block.
func (tr *Transaction) InsertText(pos int, text string, marks ...doc.Mark) error {
	if text == "" {
		return nil
	}
	return tr.Replace(pos, pos, doc.NewText(text, marks...))
}

// SetNodeAttrs sets the attributes of the panel after pos.
func (tr *Transaction) SetNodeAttrs(pos int, a doc.Attrs) error {
	return tr.Step(AttrStep{Pos: pos, Attrs: a})
}

// SetBlockType converts the block after pos.
func (tr *Transaction) SetBlockType(pos int, t doc.NodeType) error {
	return tr.Step(SetTypeStep{Pos: pos, Type: t})
}

// DocChanged reports whether any step was added.
func (tr *Transaction) DocChanged() bool { return len(tr.Steps) > 0 }

// SetSelection replaces the selection that results from the transaction.
func (tr *Transaction) SetSelection(s Selection) *Transaction {
	tr.sel = &s
	return tr
}

// Selection returns the selection the transaction will produce: the explicit one
// if set, otherwise the base selection mapped through all steps.
func (tr *Transaction) Selection() Selection {
	if tr.sel != nil {
		return *tr.sel
	}
	return tr.baseSel.Map(&tr.Mapping)
}

// SelectionSet reports whether SetSelection was called.
func (tr *Transaction) SelectionSet() bool { return tr.sel != nil }

// ScrollIntoView asks the host to reveal the resulting selection.
func (tr *Transaction) ScrollIntoView() *Transaction {
	tr.scroll = true
	return tr
}

// ScrolledIntoView reports whether ScrollIntoView was requested.
func (tr *Transaction) ScrolledIntoView() bool { return tr.scroll }

// SetAddToHistory controls whether undo records the state before this transaction.
func (tr *Transaction) SetAddToHistory(v bool) *Transaction {
	tr.addToHistory = v
	return tr
}

// AddToHistory reports whether the transaction is undo tracked.
func (tr *Transaction) AddToHistory() bool { return tr.addToHistory }

// SetOrigin tags the transaction.
func (tr *Transaction) SetOrigin(o Origin) *Transaction {
	tr.origin = o
	return tr
}

// Origin returns the producer tag.
func (tr *Transaction) Origin() Origin { return tr.origin }
