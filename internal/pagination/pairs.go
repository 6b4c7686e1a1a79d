/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"fmt"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

// FirstSplitPair returns the first page at or after start that ends in a
// Character whose Dialogue opens the following page. Removing a page between
// the two, or deleting a block that sat between them, leaves them split.
func FirstSplitPair(d *doc.Node, start int) (int, bool) {
	for i := max(start, 0); i+1 < d.ChildCount(); i++ {
		if doc.IsPair(d.Child(i).LastChild(), d.Child(i+1).FirstChild()) {
			return i, true
		}
	}
	return 0, false
}

// PairRepair summarizes how a split pair was joined.
type PairRepair struct {
	Page int
	// Forward is true when the Character moved onto the next page, false when
	// the Dialogue was pulled back.
	Forward     bool
	CursorMoved bool
}

// JoinPair rejoins the split pair between page index and the next page in one
// transaction. The Character moves forward to its Dialogue unless that would
// leave page index without content, in which case the Dialogue is pulled back.
// A selection inside the moved block travels with it.
func JoinPair(st *edit.State, index int) (*edit.Transaction, PairRepair, error) {
	d := st.Doc
	page, next := d.Child(index), d.Child(index+1)
	if page == nil || next == nil {
		return nil, PairRepair{}, ErrNoPage
	}
	if !doc.IsPair(page.LastChild(), next.FirstChild()) {
		return nil, PairRepair{}, fmt.Errorf("page %d: no split pair", index)
	}
	rest := page.ChildCount() - 1
	if doc.HasHeader(page) {
		rest--
	}
	nextPos := d.PagePos(index + 1)
	rep := PairRepair{Page: index, Forward: rest >= 1}
	tr := st.Tr().SetAddToHistory(false).SetOrigin(edit.OriginReflow)

	var from, to, insertPos int
	if rep.Forward {
		speaker := page.LastChild()
		to = nextPos - 1
		from = to - speaker.NodeSize()
		if err := tr.Delete(from, to); err != nil {
			return nil, rep, fmt.Errorf("detach speaker: %w", err)
		}
		insertPos = tr.Mapping.Map(nextPos, 1) + 1
		if err := tr.Insert(insertPos, speaker); err != nil {
			return nil, rep, fmt.Errorf("attach speaker: %w", err)
		}
	} else {
		line := next.FirstChild()
		from = nextPos + 1
		to = from + line.NodeSize()
		if err := tr.Delete(from, to); err != nil {
			return nil, rep, fmt.Errorf("detach line: %w", err)
		}
		// The end of page index lies before the deleted range.
		insertPos = nextPos - 1
		if err := tr.Insert(insertPos, line); err != nil {
			return nil, rep, fmt.Errorf("attach line: %w", err)
		}
	}

	sel := st.Selection
	if sel.From() >= from && sel.To() <= to {
		moved := edit.Selection{
			Anchor: insertPos + (sel.Anchor - from),
			Head:   insertPos + (sel.Head - from),
		}
		if size := tr.Doc.ContentSize(); moved.Anchor <= size && moved.Head <= size {
			tr.SetSelection(moved).ScrollIntoView()
			rep.CursorMoved = true
		}
	}
	return tr, rep, nil
}
