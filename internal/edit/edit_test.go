/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package edit

import (
	"errors"
	"testing"

	"gocomicscript/internal/doc"
)

//	0 <page> 1 <hdr> 2..8 </hdr> 9 <panel> 10..12 </panel> 13 <p> 14 </p> 15 </page> 16
func sample() *doc.Node {
	return doc.NewDoc(doc.NewPage(
		doc.NewBlock(doc.TypeHeader, "PAGE 1"),
		doc.NewPanel(1, "Hi"),
		doc.NewBlock(doc.TypeParagraph, ""),
	))
}

func TestStepMap(t *testing.T) {
	del := StepMap{Pos: 5, OldSize: 5}
	if r := del.Map(7, 1); r.Pos != 5 || !r.Deleted {
		t.Fatalf("inside deletion: %+v", r)
	}
	if r := del.Map(12, 1); r.Pos != 7 || r.Deleted {
		t.Fatalf("after deletion: %+v", r)
	}
	if r := del.Map(3, 1); r.Pos != 3 {
		t.Fatalf("before deletion: %+v", r)
	}
	if r := del.Map(10, -1); r.Pos != 5 || r.Deleted {
		t.Fatalf("deletion end: %+v", r)
	}
	ins := StepMap{Pos: 5, NewSize: 3}
	if r := ins.Map(5, -1); r.Pos != 5 {
		t.Fatalf("assoc -1 stays before insertion: %+v", r)
	}
	if r := ins.Map(5, 1); r.Pos != 8 {
		t.Fatalf("assoc 1 moves after insertion: %+v", r)
	}
	if r := (StepMap{}).Map(42, 1); r.Pos != 42 {
		t.Fatalf("identity map moved position: %+v", r)
	}
}

func TestInsertTextAndSelectionMapping(t *testing.T) {
	st := &State{Doc: sample(), Selection: Cursor(12)}
	tr := st.Tr()
	if err := tr.InsertText(11, "ey"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	next, err := st.Apply(tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := next.Doc.Child(0).Child(1).TextContent(); got != "Heyi" {
		t.Fatalf("panel text = %q", got)
	}
	if next.Selection.Head != 14 {
		t.Fatalf("cursor = %d, want 14", next.Selection.Head)
	}
	if st.Doc.Child(0).Child(1).TextContent() != "Hi" {
		t.Fatalf("base document was mutated")
	}
	// untouched siblings are shared between versions
	if next.Doc.Child(0).Child(0) != st.Doc.Child(0).Child(0) {
		t.Fatalf("header was copied instead of shared")
	}
}

func TestBlockLevelReplace(t *testing.T) {
	tr := (&State{Doc: sample()}).Tr()
	if err := tr.Delete(13, 15); err != nil {
		t.Fatalf("Delete paragraph: %v", err)
	}
	if tr.Doc.Child(0).ChildCount() != 2 {
		t.Fatalf("paragraph not removed")
	}
	if err := tr.Insert(tr.Doc.ContentSize(), doc.NewPage(doc.NewBlock(doc.TypeSfx, "BOOM"))); err != nil {
		t.Fatalf("Insert page: %v", err)
	}
	if tr.Doc.ChildCount() != 2 || !doc.IsSfx(tr.Doc.Child(1).Child(0)) {
		t.Fatalf("page not appended: %+v", tr.Doc)
	}
	if tr.Mapping.Len() != 2 {
		t.Fatalf("mapping len = %d", tr.Mapping.Len())
	}
}

func TestRejectedStepsLeaveTransactionUnchanged(t *testing.T) {
	tr := (&State{Doc: sample()}).Tr()
	if err := tr.Replace(11, 14); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected cross-boundary error, got %v", err)
	}
	if err := tr.Insert(9, doc.NewBlock(doc.TypeHeader, "")); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected header placement error, got %v", err)
	}
	if err := tr.Insert(11, doc.NewBlock(doc.TypeParagraph, "x")); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected block-in-text error, got %v", err)
	}
	if err := tr.Delete(0, 16); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected empty document error, got %v", err)
	}
	if err := tr.Delete(0, 99); !errors.Is(err, doc.ErrPositionOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if tr.DocChanged() || tr.Doc != tr.Before {
		t.Fatalf("rejected steps changed the transaction")
	}
}

func TestSetBlockTypeAndAttrs(t *testing.T) {
	tr := (&State{Doc: sample()}).Tr()
	if err := tr.SetBlockType(13, doc.TypePanel); err != nil {
		t.Fatalf("SetBlockType: %v", err)
	}
	if err := tr.SetNodeAttrs(13, doc.Attrs{Number: 2}); err != nil {
		t.Fatalf("SetNodeAttrs: %v", err)
	}
	b := tr.Doc.Child(0).Child(2)
	if !doc.IsPanel(b) || b.Number() != 2 {
		t.Fatalf("block = %+v", b)
	}
	if err := tr.SetNodeAttrs(1, doc.Attrs{Number: 2}); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("headers carry no attributes, got %v", err)
	}
	if err := tr.SetBlockType(9, doc.TypeHeader); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("second header accepted: %v", err)
	}
}

func TestApplyRejectsStaleTransactions(t *testing.T) {
	a := NewState(sample())
	b := NewState(sample())
	tr := a.Tr()
	_ = tr.InsertText(2, "x")
	if _, err := b.Apply(tr); !errors.Is(err, ErrStaleTransaction) {
		t.Fatalf("expected ErrStaleTransaction, got %v", err)
	}
}

func TestApplySettlesSelectionIntoText(t *testing.T) {
	st := NewState(sample())
	if st.Selection.Head != 2 {
		t.Fatalf("initial cursor = %d, want 2", st.Selection.Head)
	}
	tr := st.Tr().SetSelection(Cursor(16))
	next, err := st.Apply(tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.Selection.Head != 14 || !next.Selection.Empty() {
		t.Fatalf("cursor between pages should settle into the last paragraph, got %+v", next.Selection)
	}
	meta := st.Tr().SetAddToHistory(false).SetOrigin(OriginReflow).ScrollIntoView()
	if meta.AddToHistory() || meta.Origin() != OriginReflow || !meta.ScrolledIntoView() {
		t.Fatalf("transaction metadata not kept")
	}
}
