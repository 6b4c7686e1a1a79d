/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package commands holds the structural editing commands bound to keys: new
// panel, new logical page, speaker and line transitions, and backspace at the
// start of a page.
package commands

import (
	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

// Command builds a transaction for st. ok is false when the command does not
// apply to the current selection, so the next binding can try.
type Command func(st *edit.State) (tr *edit.Transaction, ok bool)

// cursorBlock resolves the selection head when it sits inside a block.
func cursorBlock(st *edit.State) (*doc.ResolvedPos, bool) {
	rp, err := st.CursorInfo()
	if err != nil || rp.Depth() != 2 {
		return nil, false
	}
	return rp, true
}

func command(st *edit.State) *edit.Transaction {
	return st.Tr().SetOrigin(edit.OriginCommand)
}

// insertAfter adds an empty block of type t after the cursor's block and puts
// the cursor inside it.
func insertAfter(st *edit.State, rp *doc.ResolvedPos, t doc.NodeType) (*edit.Transaction, bool) {
	pos := rp.After(2)
	tr := command(st)
	if err := tr.Insert(pos, doc.NewBlock(t, "")); err != nil {
		return nil, false
	}
	tr.SetSelection(edit.Cursor(pos + 1)).ScrollIntoView()
	return tr, true
}

// NewPanel inserts a panel after the cursor's block. An empty block other than
// a panel or header becomes the panel instead, so no stray empty block is left.
func NewPanel(st *edit.State) (*edit.Transaction, bool) {
	rp, ok := cursorBlock(st)
	if !ok {
		return nil, false
	}
	b := rp.Parent()
	if b.ContentSize() == 0 && !doc.IsPanel(b) && !doc.IsHeader(b) {
		tr := command(st)
		if err := tr.SetBlockType(rp.Before(2), doc.TypePanel); err != nil {
			return nil, false
		}
		return tr.ScrollIntoView(), true
	}
	return insertAfter(st, rp, doc.TypePanel)
}

// LogicalPage returns a fresh logical page: header, blank panel, blank paragraph.
func LogicalPage() *doc.Node {
	return doc.NewPage(
		doc.NewBlock(doc.TypeHeader, ""),
		doc.NewPanel(1, ""),
		doc.NewBlock(doc.TypeParagraph, ""),
	)
}

// NewLogicalPage appends a new logical page, reusing a trailing empty page, and
// moves the cursor into its panel. A document holding only an empty page gets
// that page replaced.
func NewLogicalPage(st *edit.State) (*edit.Transaction, bool) {
	d := st.Doc
	last := d.ChildCount() - 1
	lastPos := d.PagePos(last)
	end := d.ContentSize()
	from := end
	if doc.IsEmptyPage(d.Child(last)) {
		from = lastPos
	}
	tr := command(st)
	if err := tr.Replace(from, end, LogicalPage()); err != nil {
		return nil, false
	}
	// page open, header, panel open
	tr.SetSelection(edit.Cursor(from + 4)).ScrollIntoView()
	return tr, true
}

// CharacterToDialogue opens a dialogue block below a character cue.
func CharacterToDialogue(st *edit.State) (*edit.Transaction, bool) {
	rp, ok := cursorBlock(st)
	if !ok || !doc.IsCharacter(rp.Parent()) {
		return nil, false
	}
	return insertAfter(st, rp, doc.TypeDialogue)
}

// DialogueToParagraph leaves a dialogue for an action paragraph when the cursor
// is at the end of the line.
func DialogueToParagraph(st *edit.State) (*edit.Transaction, bool) {
	rp, ok := cursorBlock(st)
	if !ok || !st.Selection.Empty() || !doc.IsDialogue(rp.Parent()) {
		return nil, false
	}
	if rp.ParentOffset != rp.Parent().ContentSize() {
		return nil, false
	}
	return insertAfter(st, rp, doc.TypeParagraph)
}

// ParagraphToCharacter turns the paragraph under the cursor into a character cue.
func ParagraphToCharacter(st *edit.State) (*edit.Transaction, bool) {
	rp, ok := cursorBlock(st)
	if !ok || !doc.IsParagraph(rp.Parent()) {
		return nil, false
	}
	tr := command(st)
	if err := tr.SetBlockType(rp.Before(2), doc.TypeCharacter); err != nil {
		return nil, false
	}
	return tr, true
}

// InsertSfx opens a sound effect block below the cursor's block.
func InsertSfx(st *edit.State) (*edit.Transaction, bool) {
	rp, ok := cursorBlock(st)
	if !ok {
		return nil, false
	}
	return insertAfter(st, rp, doc.TypeSfx)
}

// BackspaceAtPageStart handles backspace at the first position of a page other
// than the first. A page without text besides its "PAGE n" label is deleted;
// otherwise the cursor moves to the end of the previous page. Text is never
// merged backwards.
func BackspaceAtPageStart(st *edit.State) (*edit.Transaction, bool) {
	if !st.Selection.Empty() {
		return nil, false
	}
	rp, ok := cursorBlock(st)
	if !ok || rp.Index(1) != 0 || rp.ParentOffset != 0 {
		return nil, false
	}
	pi := rp.Index(0)
	if pi == 0 {
		return nil, false
	}
	d := st.Doc
	page := d.Child(pi)
	prevEnd := prevPageEnd(d, pi)
	tr := command(st)
	if doc.PageText(page) == "" {
		from := rp.Before(1)
		if err := tr.Delete(from, from+page.NodeSize()); err != nil {
			return nil, false
		}
	}
	tr.SetSelection(edit.Cursor(prevEnd)).ScrollIntoView()
	return tr, true
}

// prevPageEnd is the last text position of the page before index.
func prevPageEnd(d *doc.Node, index int) int {
	prev := d.Child(index - 1)
	pos := d.PagePos(index-1) + prev.NodeSize() - 1
	if prev.ChildCount() > 0 {
		return pos - 1
	}
	return d.NearestTextPos(pos, -1)
}
