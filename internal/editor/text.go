/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"unicode/utf8"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	"gocomicscript/internal/script"
)

// SetCursor moves the cursor. Positions between blocks settle into the nearest
// block text.
func (e *Editor) SetCursor(pos int) error {
	return e.Select(edit.Cursor(pos))
}

// Select sets the selection.
func (e *Editor) Select(sel edit.Selection) error {
	if e.destroyed {
		return ErrDestroyed
	}
	return e.Dispatch(e.state.Tr().SetSelection(sel))
}

// InsertText types s at the cursor, replacing a selection first. Text inherits
// the marks of the run it is typed into.
func (e *Editor) InsertText(s string) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if s == "" {
		return nil
	}
	tr := e.state.Tr()
	if !e.state.Selection.Empty() {
		if !deleteRange(tr, e.state.Selection.From(), e.state.Selection.To()) {
			return ErrNotApplicable
		}
	}
	pos := tr.Selection().Head
	rp, err := tr.Doc.Resolve(pos)
	if err != nil || !rp.InTextblock() {
		return ErrNotApplicable
	}
	if err := tr.InsertText(pos, s, marksAt(rp)...); err != nil {
		return err
	}
	tr.SetSelection(edit.Cursor(pos + utf8.RuneCountInString(s)))
	return e.Dispatch(tr)
}

// marksAt returns the marks of the text before the position, or after it at the
// start of a block.
func marksAt(rp *doc.ResolvedPos) []doc.Mark {
	b := rp.Parent()
	off := rp.ParentOffset
	var runs []*doc.Node
	if off > 0 {
		runs = doc.CutInline(b.Content, off-1, off)
	} else {
		runs = doc.CutInline(b.Content, 0, 1)
	}
	if len(runs) == 0 || !doc.AllowsMarks(b.Type) {
		return nil
	}
	return runs[0].Marks
}

// DeleteSelection removes the selected range. A range spanning blocks of one
// page joins the first and last block; ranges across pages are left alone.
func (e *Editor) DeleteSelection() error {
	if e.destroyed {
		return ErrDestroyed
	}
	sel := e.state.Selection
	if sel.Empty() {
		return ErrNotApplicable
	}
	tr := e.state.Tr()
	if !deleteRange(tr, sel.From(), sel.To()) {
		return ErrNotApplicable
	}
	return e.Dispatch(tr)
}

func deleteRange(tr *edit.Transaction, from, to int) bool {
	rf, err := tr.Doc.Resolve(from)
	if err != nil || rf.Depth() != 2 {
		return false
	}
	rt, err := tr.Doc.Resolve(to)
	if err != nil || rt.Depth() != 2 || rt.Index(0) != rf.Index(0) {
		return false
	}
	if rf.Index(1) == rt.Index(1) {
		if tr.Delete(from, to) != nil {
			return false
		}
	} else {
		first, last := rf.Parent(), rt.Parent()
		tail := doc.CutInline(last.Content, rt.ParentOffset, last.ContentSize())
		joined := first.WithContent(doc.ReplaceInline(first.Content, rf.ParentOffset, first.ContentSize(), tail)).WithType(first.Type)
		if tr.Replace(rf.Before(2), rt.After(2), joined) != nil {
			return false
		}
	}
	tr.SetSelection(edit.Cursor(from))
	return true
}

// DeleteBackward deletes the character before the cursor. At the start of a
// block an empty neighbour is removed or the block joins the previous one. A
// header never absorbs text.
func (e *Editor) DeleteBackward() error {
	if e.destroyed {
		return ErrDestroyed
	}
	if !e.state.Selection.Empty() {
		return e.DeleteSelection()
	}
	rp, err := e.state.CursorInfo()
	if err != nil || rp.Depth() != 2 {
		return ErrNotApplicable
	}
	pos := rp.Pos
	tr := e.state.Tr()
	if rp.ParentOffset > 0 {
		if err := tr.Delete(pos-1, pos); err != nil {
			return err
		}
		tr.SetSelection(edit.Cursor(pos - 1))
		return e.Dispatch(tr)
	}
	bi := rp.Index(1)
	if bi == 0 {
		return ErrNotApplicable
	}
	cur := rp.Parent()
	page := rp.Node(1)
	prev := page.Child(bi - 1)
	prevFrom := rp.Before(2) - prev.NodeSize()
	switch {
	case prev.ContentSize() == 0 && !doc.IsHeader(prev):
		if err := tr.Delete(prevFrom, rp.Before(2)); err != nil {
			return err
		}
		tr.SetSelection(edit.Cursor(prevFrom + 1))
	case cur.ContentSize() == 0:
		if err := tr.Delete(rp.Before(2), rp.After(2)); err != nil {
			return err
		}
		tr.SetSelection(edit.Cursor(rp.Before(2) - 1))
	case doc.IsHeader(prev):
		return ErrNotApplicable
	default:
		joined := prev.WithContent(doc.ReplaceInline(prev.Content, prev.ContentSize(), prev.ContentSize(), cur.Content)).WithType(prev.Type)
		if err := tr.Replace(prevFrom, rp.After(2), joined); err != nil {
			return err
		}
		tr.SetSelection(edit.Cursor(prevFrom + 1 + prev.ContentSize()))
	}
	return e.Dispatch(tr)
}

// SplitBlock splits the cursor's block in two. Dialogue and paragraphs continue
// as the same type; every other block continues as a paragraph.
func (e *Editor) SplitBlock() error {
	if e.destroyed {
		return ErrDestroyed
	}
	tr := e.state.Tr()
	if !e.state.Selection.Empty() {
		if !deleteRange(tr, e.state.Selection.From(), e.state.Selection.To()) {
			return ErrNotApplicable
		}
	}
	rp, err := tr.Doc.Resolve(tr.Selection().Head)
	if err != nil || rp.Depth() != 2 {
		return ErrNotApplicable
	}
	b := rp.Parent()
	off := rp.ParentOffset
	next := doc.TypeParagraph
	if doc.IsDialogue(b) || doc.IsParagraph(b) {
		next = b.Type
	}
	left := b.WithContent(doc.CutInline(b.Content, 0, off))
	right := doc.NewBlock(next, "").WithContent(doc.CutInline(b.Content, off, b.ContentSize()))
	from := rp.Before(2)
	if err := tr.Replace(from, rp.After(2), left, right); err != nil {
		return err
	}
	tr.SetSelection(edit.Cursor(from + left.NodeSize() + 1)).ScrollIntoView()
	return e.Dispatch(tr)
}

// Paste inserts clipboard text at the cursor. Hard-wrapped lines are joined and
// every further paragraph starts a new block.
func (e *Editor) Paste(s string) error {
	for i, p := range script.PasteParagraphs(s) {
		if i > 0 {
			if err := e.SplitBlock(); err != nil {
				return err
			}
		}
		if err := e.InsertText(p); err != nil {
			return err
		}
	}
	return nil
}
