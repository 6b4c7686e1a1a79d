/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strings"
	"testing"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	"gocomicscript/internal/textlayout"
)

// page 0 [0,20): header 1, panel "Rooftop" 3 (text 4..11), "Rain." 12; page 1 from 20: panel 21 (text 22..27)
func sample() *doc.Node {
	return doc.NewDoc(
		doc.NewPage(
			doc.NewBlock(doc.TypeHeader, ""),
			doc.NewPanel(1, "Rooftop"),
			doc.NewBlock(doc.TypeParagraph, "Rain."),
		),
		doc.NewPage(doc.NewPanel(2, "Alley")),
	)
}

func TestDocumentLabelsAndCursor(t *testing.T) {
	v := New(textlayout.NewCellMeasurer(40), PlainTheme())
	out := v.Document(&edit.State{Doc: sample(), Selection: edit.Cursor(23)})
	for _, want := range []string{"PAGE 1 ", "PAGE 1 (CONT.)", "PANEL 1 ROOFTOP", "PANEL 2 ALLEY", "PANELS: 1", "Rain."} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Count(out, "▌") != 1 {
		t.Fatalf("expected one cursor marker:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "▌") && !strings.Contains(line, "PANEL 2 ALLEY") {
			t.Fatalf("cursor marker on the wrong line: %q", line)
		}
	}
}

func TestPageHeightMatchesMeasurer(t *testing.T) {
	cells := textlayout.NewCellMeasurer(40)
	v := New(cells, PlainTheme())
	v.Capacity = 30
	d := sample()
	h, ok := cells.MeasurePage(d.Child(0), 0)
	if !ok {
		t.Fatalf("MeasurePage not ok")
	}
	out := v.Page(d, 0)
	// borders and the title line come on top of the measured body
	if got := len(strings.Split(out, "\n")); got != int(h)+3 {
		t.Fatalf("rendered %d lines, measured %v:\n%s", got, h, out)
	}
	if !strings.Contains(out, "4/30") {
		t.Fatalf("missing fill level:\n%s", out)
	}
	if v.Page(d, 5) != "" {
		t.Fatalf("out of range page should render empty")
	}
}

func TestOutline(t *testing.T) {
	v := New(nil, PlainTheme())
	out := v.Outline(sample())
	want := "PAGE 1\n  1. Rooftop\n  2. Alley\n"
	if out != want {
		t.Fatalf("Outline = %q, want %q", out, want)
	}
}
