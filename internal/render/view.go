/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render draws script documents for the terminal. Rendering is a pure
// function of the document and selection; the view holds no editing state.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	"gocomicscript/internal/numbering"
	"gocomicscript/internal/textlayout"
)

const (
	gutterCursor = "▌ "
	gutterBlank  = "  "
)

// View renders pages with the same cell layout the cell measurer counts, so
// what overflows on screen is what the pagination pass moves.
type View struct {
	Cells *textlayout.CellMeasurer
	Theme Theme
	// Capacity, when set, is shown as the fill level of each sheet.
	Capacity float64
}

// New returns a view over a cell measurer.
func New(cells *textlayout.CellMeasurer, theme Theme) *View {
	if cells == nil {
		cells = textlayout.NewCellMeasurer(0)
	}
	return &View{Cells: cells, Theme: theme}
}

// Document renders every physical page of the state's document. The page
// holding the cursor is highlighted and the cursor's block is marked in the gutter.
func (v *View) Document(st *edit.State) string {
	d := st.Doc
	info := numbering.LogicalPages(d)
	cursor := st.Selection.Head
	pages := make([]string, 0, d.ChildCount())
	for i := range d.Content {
		pages = append(pages, v.page(d, info[i], cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, pages...)
}

// Page renders one physical page without a cursor.
func (v *View) Page(d *doc.Node, index int) string {
	info := numbering.LogicalPages(d)
	if index < 0 || index >= len(info) {
		return ""
	}
	return v.page(d, info[index], -1)
}

func (v *View) page(d *doc.Node, pi numbering.PageInfo, cursor int) string {
	page := d.Child(pi.Index)
	width := v.Cells.Width
	cursorBlock := -1
	if cursor >= 0 && d.PageAt(cursor) == pi.Index {
		if rp, err := d.Resolve(cursor); err == nil && rp.Depth() == 2 {
			cursorBlock = rp.Index(1)
		}
	}

	var out []string
	out = append(out, v.title(pi, page, width))

	prevAfter := 0
	for bi, b := range page.Content {
		st := v.Cells.Styles[b.Type]
		if bi > 0 {
			for i := 0; i < max(st.Before, prevAfter); i++ {
				out = append(out, gutterBlank+strings.Repeat(" ", width))
			}
		}
		gutter := gutterBlank
		if bi == cursorBlock {
			gutter = v.Theme.Cursor.Render(gutterCursor)
		}
		body := indent.String(strings.Join(v.Cells.Lines(b), "\n"), uint(st.Indent))
		style := v.Theme.block(b.Type)
		for _, line := range strings.Split(body, "\n") {
			line = runewidth.FillRight(runewidth.Truncate(line, width, ""), width)
			out = append(out, gutter+style.Render(line))
		}
		prevAfter = st.After
	}

	box := v.Theme.Page
	if cursorBlock >= 0 {
		box = v.Theme.CurrentPage
	}
	return box.Render(strings.Join(out, "\n"))
}

// title is the sheet heading: "PAGE n" or "PAGE n (CONT.)", the panel count
// and, with a capacity, the fill level.
func (v *View) title(pi numbering.PageInfo, page *doc.Node, width int) string {
	label := fmt.Sprintf("PAGE %d", pi.Logical)
	style := v.Theme.Label
	if pi.Continuation {
		label += " (CONT.)"
		style = v.Theme.Continuation
	}
	var meta []string
	if pi.Panels > 0 {
		meta = append(meta, fmt.Sprintf("PANELS: %d", pi.Panels))
	}
	if v.Capacity > 0 {
		h, _ := v.Cells.MeasurePage(page, pi.Index)
		meta = append(meta, fmt.Sprintf("%d/%d", int(h), int(v.Capacity)))
	}
	right := strings.Join(meta, "  ")
	pad := max(width-runewidth.StringWidth(label)-runewidth.StringWidth(right), 1)
	return gutterBlank + style.Render(label) + strings.Repeat(" ", pad) + v.Theme.Meta.Render(right)
}

// Outline renders the navigation sidebar: logical pages and their panels.
func (v *View) Outline(d *doc.Node) string {
	var b strings.Builder
	for _, p := range numbering.Outline(d) {
		b.WriteString(v.Theme.Label.Render(fmt.Sprintf("PAGE %d", p.Number)))
		b.WriteString("\n")
		for _, pn := range p.Panels {
			label := runewidth.Truncate(pn.Label, max(v.Cells.Width-4, 8), "…")
			fmt.Fprintf(&b, "  %d. %s\n", pn.Number, label)
		}
	}
	return b.String()
}
