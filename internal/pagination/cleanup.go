/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

// Cleanup builds a transaction that removes empty continuation pages, or nil
// when there is nothing to remove. The first page, pages with a header and the
// page holding the selection are kept. Pages are removed from the end backwards
// so earlier positions stay valid while the transaction is built.
func Cleanup(st *edit.State) *edit.Transaction {
	d := st.Doc
	n := d.ChildCount()
	if n < 2 {
		return nil
	}
	offsets := make([]int, n)
	pos := 0
	for i, p := range d.Content {
		offsets[i] = pos
		pos += p.NodeSize()
	}
	sel := st.Selection
	var tr *edit.Transaction
	for i := n - 1; i >= 1; i-- {
		page := d.Child(i)
		if doc.HasHeader(page) || !doc.IsEmptyPage(page) {
			continue
		}
		from, to := offsets[i], offsets[i]+page.NodeSize()
		if sel.From() >= from && sel.To() <= to {
			continue
		}
		if tr == nil {
			tr = st.Tr().SetAddToHistory(false).SetOrigin(edit.OriginCleanup)
		}
		if err := tr.Delete(from, to); err != nil {
			return nil
		}
	}
	return tr
}
