/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gocomicscript/internal/doc"
)

// BlockStyle is the box model of one block type in CSS pixels. Indents are
// fractions of the content width when below 1 and pixels otherwise.
type BlockStyle struct {
	MarginTop, MarginBottom float32
	PaddingY                float32
	IndentLeft, IndentRight float32
	LineHeight              float32
	Font                    FontSpec
	Uppercase               bool
	// Label is rendered on its own line above the text, e.g. "PANEL 3".
	Label bool
}

// PageStyle is the box model of a page.
type PageStyle struct {
	ContentWidth float32
	PaddingY     float32
	// BlockGap is the vertical margin between blocks that do not collapse.
	BlockGap float32
}

// DefaultPage approximates an A4 sheet with 25mm padding at 96 DPI.
var DefaultPage = PageStyle{ContentWidth: 605, PaddingY: 94}

// DefaultStyles is the editor box model per block type.
func DefaultStyles() map[doc.NodeType]BlockStyle {
	body := FontSpec{Family: ScriptFamily, SizePt: 12, Weight: 400}
	bold := body
	bold.Weight = 700
	return map[doc.NodeType]BlockStyle{
		doc.TypeHeader:    {MarginTop: 32, MarginBottom: 24, LineHeight: 24, Font: bold, Uppercase: true},
		doc.TypePanel:     {MarginTop: 32, MarginBottom: 8, PaddingY: 16, IndentLeft: 16, IndentRight: 16, LineHeight: 24, Font: bold, Uppercase: true, Label: true},
		doc.TypeParagraph: {MarginBottom: 16, LineHeight: 24, Font: body},
		doc.TypeCharacter: {MarginTop: 24, IndentLeft: 0.4, LineHeight: 24, Font: bold, Uppercase: true},
		doc.TypeDialogue:  {MarginBottom: 24, IndentLeft: 0.2, IndentRight: 0.2, LineHeight: 26, Font: body},
		doc.TypeSfx:       {MarginTop: 16, MarginBottom: 16, IndentLeft: 68, LineHeight: 24, Font: bold, Uppercase: true},
	}
}

// FontMeasurer computes page heights by laying out every block with real font
// metrics. Vertical margins of adjacent blocks collapse as in CSS.
type FontMeasurer struct {
	Layout *WordWrapLayouter
	Page   PageStyle
	Styles map[doc.NodeType]BlockStyle
}

// NewFontMeasurer returns a measurer using provider and the default box model.
func NewFontMeasurer(provider Provider) *FontMeasurer {
	return &FontMeasurer{Layout: NewWordWrap(provider), Page: DefaultPage, Styles: DefaultStyles()}
}

// MeasurePage implements the pagination measurer.
func (m *FontMeasurer) MeasurePage(page *doc.Node, _ int) (float64, bool) {
	if page == nil || page.Type != doc.TypePage {
		return 0, false
	}
	h := 2 * m.Page.PaddingY
	var prevBottom float32
	for i, b := range page.Content {
		st := m.Styles[b.Type]
		top := st.MarginTop
		if i > 0 {
			top = max(top, prevBottom) + m.Page.BlockGap
		}
		h += top + m.BlockHeight(b)
		prevBottom = st.MarginBottom
	}
	return float64(h + prevBottom), true
}

// BlockHeight returns the border-box height of a block.
func (m *FontMeasurer) BlockHeight(b *doc.Node) float32 {
	st := m.Styles[b.Type]
	width := m.Page.ContentWidth - indent(st.IndentLeft, m.Page.ContentWidth) - indent(st.IndentRight, m.Page.ContentWidth)
	box := m.Layout.Layout(Spans(b, st), width)
	lineH := max(st.LineHeight, box.Metrics.LineHeight())
	lines := float32(len(box.Lines))
	if st.Label {
		lines++
	}
	return 2*st.PaddingY + lines*lineH
}

func indent(v, width float32) float32 {
	if v > 0 && v < 1 {
		return v * width
	}
	return v
}

// Spans converts the inline content of a block into layout spans. Bold and
// italic marks select the matching face.
func Spans(b *doc.Node, st BlockStyle) []Span {
	var out []Span
	for _, t := range b.Content {
		f := st.Font
		for _, mk := range t.Marks {
			switch mk.Type {
			case doc.MarkBold:
				f.Weight = 700
			case doc.MarkItalic:
				f.Italic = true
			}
		}
		s := t.Text
		if st.Uppercase {
			s = cases.Upper(language.Und).String(s)
		}
		out = append(out, Span{Text: s, Font: f})
	}
	return out
}
