/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures script pages the way they are rendered, so the
// pagination engine can tell when a page runs past its capacity without a
// live browser or GUI surface.
package textlayout

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is the distance between two baselines.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Span is a run of text with the same font.
type Span struct {
	Text string
	Font FontSpec
}

// Line is a single laid out line.
type Line struct {
	Spans []Span
	Width float32
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic output.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, faceMetrics(f)
}

func faceMetrics(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrapLayouter breaks on whitespace and hard-breaks words wider than the
// box. It does not shape or hyphenate.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

// Layout wraps spans into lines no wider than maxWidth. A maxWidth of zero or
// less disables wrapping. Empty input still yields one line, matching an empty
// block that keeps its line box.
func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float32) TextBox {
	p := l.Provider
	if p == nil {
		p = BasicProvider{}
	}
	var lineH float32
	var met Metrics
	for i, sp := range spans {
		_, m := p.Resolve(sp.Font)
		if i == 0 || m.LineHeight() > lineH {
			met, lineH = m, m.LineHeight()
		}
	}
	if len(spans) == 0 {
		_, met = p.Resolve(FontSpec{})
		lineH = met.LineHeight()
	}

	box := TextBox{Metrics: met}
	var cur Line
	flush := func() {
		box.Lines = append(box.Lines, cur)
		box.Width = max(box.Width, cur.Width)
		box.Height += lineH
		cur = Line{}
	}
	place := func(sp Span, word string, d *font.Drawer) {
		w := advance(d, word)
		if word == " " {
			// spaces hang past the edge and never open a line
			if cur.Width > 0 {
				cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font})
				cur.Width += w
			}
			return
		}
		if maxWidth > 0 && cur.Width > 0 && cur.Width+w > maxWidth {
			flush()
		}
		for maxWidth > 0 && w > maxWidth && word != "" {
			head := fitPrefix(d, word, maxWidth-cur.Width, cur.Width == 0)
			if head == "" {
				flush()
				continue
			}
			cur.Spans = append(cur.Spans, Span{Text: head, Font: sp.Font})
			cur.Width += advance(d, head)
			word = word[len(head):]
			w = advance(d, word)
			if word != "" {
				flush()
			}
		}
		if word != "" {
			cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font})
			cur.Width += w
		}
	}

	for _, sp := range spans {
		face, _ := p.Resolve(sp.Font)
		d := &font.Drawer{Face: face}
		start := 0
		for i, r := range sp.Text {
			if r != '\n' && !unicode.IsSpace(r) {
				continue
			}
			place(sp, sp.Text[start:i], d)
			if r == '\n' {
				flush()
			} else {
				place(sp, " ", d)
			}
			start = i + utf8.RuneLen(r)
		}
		place(sp, sp.Text[start:], d)
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		flush()
	}
	return box
}

// fitPrefix returns the longest prefix of word whose advance fits into room.
// With force set it returns at least one rune.
func fitPrefix(d *font.Drawer, word string, room float32, force bool) string {
	end := 0
	for i, r := range word {
		next := i + utf8.RuneLen(r)
		if advance(d, word[:next]) > room {
			break
		}
		end = next
	}
	if end == 0 && force {
		_, end = utf8.DecodeRuneInString(word)
	}
	return word[:end]
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}

// Measure returns the unwrapped width and the line height of spans.
func Measure(provider Provider, spans []Span) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	for _, sp := range spans {
		face, met := provider.Resolve(sp.Font)
		w += advance(&font.Drawer{Face: face}, sp.Text)
		h = max(h, met.Ascent+met.Descent)
	}
	return w, h
}
