/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"

	"gocomicscript/internal/doc"
)

func TestWordWrap_Naive(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box := l.Layout([]Span{{Text: "Hello world from Go"}}, 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	if box.Width <= 0 || box.Height <= 0 {
		t.Fatalf("expected positive box size: %+v", box)
	}
	if box.Width > 50 {
		t.Fatalf("line wider than the box: %v", box.Width)
	}
}

func TestWordWrap_HardBreaksLongWords(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	// 7px per glyph, 10 glyphs per 70px line
	box := l.Layout([]Span{{Text: strings.Repeat("x", 25)}}, 70)
	if len(box.Lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(box.Lines))
	}
	// a box narrower than a glyph still makes progress
	narrow := l.Layout([]Span{{Text: "abc"}}, 3)
	if len(narrow.Lines) != 3 {
		t.Fatalf("narrow lines = %d, want 3", len(narrow.Lines))
	}
}

func TestWordWrap_EmptyAndNewlines(t *testing.T) {
	l := NewWordWrap(nil)
	if box := l.Layout(nil, 100); len(box.Lines) != 1 {
		t.Fatalf("empty layout lines = %d, want 1", len(box.Lines))
	}
	if box := l.Layout([]Span{{Text: "a\nb"}}, 0); len(box.Lines) != 2 {
		t.Fatalf("newline lines = %d, want 2", len(box.Lines))
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, []Span{{Text: "ABC"}})
	w2, h2 := Measure(BasicProvider{}, []Span{{Text: "A"}, {Text: "BC"}})
	if w1 != w2 || h1 != h2 {
		t.Fatalf("expected same measure, got w1=%v h1=%v vs w2=%v h2=%v", w1, h1, w2, h2)
	}
}

func TestOTProviderFallsBack(t *testing.T) {
	p := OTProvider{Lib: NewFontLibrary()}
	_, m := p.Resolve(FontSpec{Family: ScriptFamily})
	_, want := BasicProvider{}.Resolve(FontSpec{})
	if m != want {
		t.Fatalf("metrics = %+v, want fallback %+v", m, want)
	}
	if err := p.Lib.Add(ScriptFamily, 400, false, []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := p.Lib.LoadTTF(ScriptFamily, 400, false, t.TempDir()+"/missing.ttf"); err == nil {
		t.Fatalf("expected read error")
	}
	if p.Lib.Len() != 0 {
		t.Fatalf("failed loads must not register fonts")
	}
}

func page(blocks ...*doc.Node) *doc.Node { return doc.NewPage(blocks...) }

func TestFontMeasurerGrowsWithContent(t *testing.T) {
	m := NewFontMeasurer(BasicProvider{})
	short, ok := m.MeasurePage(page(doc.NewBlock(doc.TypeParagraph, "A short line.")), 0)
	if !ok {
		t.Fatalf("expected a measurement")
	}
	long, _ := m.MeasurePage(page(doc.NewBlock(doc.TypeParagraph, strings.Repeat("word ", 200))), 0)
	if long <= short {
		t.Fatalf("long page %v should exceed short page %v", long, short)
	}
	// dialogue is indented on both sides so it wraps sooner than a paragraph
	text := strings.Repeat("talk ", 40)
	p := m.BlockHeight(doc.NewBlock(doc.TypeParagraph, text))
	d := m.BlockHeight(doc.NewBlock(doc.TypeDialogue, text))
	if d <= p {
		t.Fatalf("dialogue %v should be taller than paragraph %v", d, p)
	}
	if _, ok := m.MeasurePage(doc.NewBlock(doc.TypeParagraph, ""), 0); ok {
		t.Fatalf("a non-page node has no measurement")
	}
}

func TestFontMeasurerCollapsesMargins(t *testing.T) {
	m := NewFontMeasurer(BasicProvider{})
	m.Page = PageStyle{ContentWidth: 600}
	m.Styles = map[doc.NodeType]BlockStyle{
		doc.TypeParagraph: {MarginTop: 10, MarginBottom: 20, LineHeight: 20},
	}
	h, _ := m.MeasurePage(page(doc.NewBlock(doc.TypeParagraph, "a"), doc.NewBlock(doc.TypeParagraph, "b")), 0)
	// 10 top, 20 line, max(20,10) gap, 20 line, 20 bottom
	if h != 90 {
		t.Fatalf("height = %v, want 90", h)
	}
}

func TestSpansApplyMarksAndCase(t *testing.T) {
	b := &doc.Node{Type: doc.TypeCharacter, Content: []*doc.Node{
		doc.NewText("ana "),
		doc.NewText("maria", doc.Mark{Type: doc.MarkItalic}),
	}}
	st := DefaultStyles()[doc.TypeCharacter]
	spans := Spans(b, st)
	if len(spans) != 2 || spans[0].Text != "ANA " || spans[1].Text != "MARIA" {
		t.Fatalf("spans = %+v", spans)
	}
	if !spans[1].Font.Italic || spans[0].Font.Italic {
		t.Fatalf("italic mark not applied: %+v", spans)
	}
}

func TestCellMeasurer(t *testing.T) {
	m := NewCellMeasurer(20)
	if got := m.Lines(doc.NewPanel(3, "rooftop")); len(got) != 1 || got[0] != "PANEL 3 ROOFTOP" {
		t.Fatalf("panel lines = %q", got)
	}
	long := m.Lines(doc.NewBlock(doc.TypeParagraph, "the quick brown fox jumps over the lazy dog"))
	if len(long) < 3 {
		t.Fatalf("paragraph lines = %q", long)
	}
	for _, l := range long {
		if len(l) > 20 {
			t.Fatalf("line %q exceeds the width", l)
		}
	}
	if got := m.Lines(doc.NewBlock(doc.TypeParagraph, "")); len(got) != 1 {
		t.Fatalf("empty block lines = %q", got)
	}
	h, ok := m.MeasurePage(page(
		doc.NewBlock(doc.TypeHeader, "page 1"),
		doc.NewPanel(1, "x"),
		doc.NewBlock(doc.TypeParagraph, "y"),
	), 0)
	// header, gap, panel, paragraph
	if !ok || h != 4 {
		t.Fatalf("page lines = %v, want 4", h)
	}
}
