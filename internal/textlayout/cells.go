/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gocomicscript/internal/doc"
)

// CellStyle is the terminal layout of one block type, in character cells.
type CellStyle struct {
	Indent, Right int
	Before, After int
	Uppercase     bool
	// Prefix is printed before the text on the first line, e.g. "SFX: ".
	Prefix string
}

// DefaultCellWidth is the column count of a script page in a terminal.
const DefaultCellWidth = 60

// DefaultCellCapacity is the line count of a script page in a terminal.
const DefaultCellCapacity = 50

// DefaultCellStyles mirrors the page box model with character indents.
func DefaultCellStyles() map[doc.NodeType]CellStyle {
	return map[doc.NodeType]CellStyle{
		doc.TypeHeader:    {Before: 1, After: 1, Uppercase: true},
		doc.TypePanel:     {Before: 1, Uppercase: true, Prefix: "PANEL # "},
		doc.TypeParagraph: {After: 1},
		doc.TypeCharacter: {Indent: 24, Before: 1, Uppercase: true},
		doc.TypeDialogue:  {Indent: 12, Right: 12, After: 1},
		doc.TypeSfx:       {Indent: 6, Before: 1, After: 1, Uppercase: true, Prefix: "SFX: "},
	}
}

// CellMeasurer measures pages in terminal lines. It backs the command line
// tools, where capacity is a line count instead of pixels.
type CellMeasurer struct {
	Width  int
	Styles map[doc.NodeType]CellStyle
}

// NewCellMeasurer returns a measurer for a page width columns wide.
func NewCellMeasurer(width int) *CellMeasurer {
	if width <= 0 {
		width = DefaultCellWidth
	}
	return &CellMeasurer{Width: width, Styles: DefaultCellStyles()}
}

// MeasurePage implements the pagination measurer. Blank lines between blocks
// collapse to the larger of the two gaps.
func (m *CellMeasurer) MeasurePage(page *doc.Node, _ int) (float64, bool) {
	if page == nil || page.Type != doc.TypePage {
		return 0, false
	}
	lines, prevAfter := 0, 0
	for i, b := range page.Content {
		st := m.Styles[b.Type]
		if i > 0 {
			lines += max(st.Before, prevAfter)
		}
		lines += len(m.Lines(b))
		prevAfter = st.After
	}
	return float64(lines), true
}

// Lines returns the wrapped, unindented lines of a block. An empty block keeps
// one blank line.
func (m *CellMeasurer) Lines(b *doc.Node) []string {
	st := m.Styles[b.Type]
	text := st.Prefix + b.TextContent()
	if doc.IsPanel(b) && st.Prefix != "" {
		text = strings.Replace(text, "#", strconv.Itoa(b.Number()), 1)
	}
	if st.Uppercase {
		text = cases.Upper(language.Und).String(text)
	}
	width := max(m.Width-st.Indent-st.Right, 1)
	if runewidth.StringWidth(text) <= width {
		return []string{text}
	}
	// soft wrap on words, then hard wrap words longer than the column
	wrapped := wrap.String(wordwrap.String(text, width), width)
	return strings.Split(wrapped, "\n")
}

// Indent returns the left indent of a block type in cells.
func (m *CellMeasurer) Indent(t doc.NodeType) int { return m.Styles[t].Indent }
