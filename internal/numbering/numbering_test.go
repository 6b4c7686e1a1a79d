/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package numbering

import (
	"testing"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

func script() *doc.Node {
	return doc.NewDoc(
		doc.NewPage(
			doc.NewBlock(doc.TypeHeader, "PAGE 1"),
			doc.NewPanel(5, "Street"),
			doc.NewPanel(5, ""),
			doc.NewBlock(doc.TypeParagraph, "x"),
		),
		doc.NewPage(doc.NewPanel(1, "Alley")),
		doc.NewPage(
			doc.NewBlock(doc.TypeHeader, "PAGE 2"),
			doc.NewPanel(9, "Roof"),
		),
	)
}

func panelNumbers(d *doc.Node) []int {
	var out []int
	for _, p := range d.Content {
		for _, b := range p.Content {
			if doc.IsPanel(b) {
				out = append(out, b.Number())
			}
		}
	}
	return out
}

func TestRenumberRestartsAtHeadersAndRunsAcrossContinuations(t *testing.T) {
	st := edit.NewState(script())
	tr := Renumber(st)
	if tr == nil {
		t.Fatalf("expected a renumber transaction")
	}
	if tr.AddToHistory() || tr.Origin() != edit.OriginNumbering {
		t.Fatalf("renumbering must stay out of history and carry its origin")
	}
	next, err := st.Apply(tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := panelNumbers(next.Doc)
	want := []int{1, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("numbers = %v, want %v", got, want)
		}
	}
	// only panels whose number differs are patched
	if len(tr.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(tr.Steps))
	}
	if Renumber(next) != nil {
		t.Fatalf("second pass over a consistent document must be a no-op")
	}
}

func TestComputeSkipsCorrectPanels(t *testing.T) {
	d := doc.NewDoc(doc.NewPage(doc.NewBlock(doc.TypeHeader, ""), doc.NewPanel(1, ""), doc.NewPanel(3, "")))
	patches := Compute(d)
	if len(patches) != 1 || patches[0].Number != 2 {
		t.Fatalf("patches = %+v", patches)
	}
	// page opens at 0, header at 1, panels at 3 and 5
	if patches[0].Pos != 5 {
		t.Fatalf("patch pos = %d, want 5", patches[0].Pos)
	}
}

func TestLogicalPages(t *testing.T) {
	pages := LogicalPages(script())
	if len(pages) != 3 {
		t.Fatalf("pages = %d", len(pages))
	}
	if pages[0].Logical != 1 || pages[0].Continuation || pages[0].Panels != 2 {
		t.Fatalf("page 0 = %+v", pages[0])
	}
	if pages[1].Logical != 1 || !pages[1].Continuation || pages[1].Panels != 1 {
		t.Fatalf("page 1 = %+v", pages[1])
	}
	if pages[2].Logical != 2 || pages[2].Continuation {
		t.Fatalf("page 2 = %+v", pages[2])
	}
	if pages[1].Pos != script().Child(0).NodeSize() {
		t.Fatalf("page 1 pos = %d", pages[1].Pos)
	}

	implicit := doc.NewDoc(doc.NewPage(doc.NewPanel(1, "")), doc.NewPage(doc.NewBlock(doc.TypeHeader, "")))
	ip := LogicalPages(implicit)
	if ip[0].Logical != 1 || ip[1].Logical != 2 {
		t.Fatalf("implicit first page: %+v", ip)
	}
}

func TestOutline(t *testing.T) {
	out := Outline(script())
	if len(out) != 2 {
		t.Fatalf("logical pages = %d", len(out))
	}
	if len(out[0].Panels) != 3 || out[0].Panels[2].Label != "Alley" {
		t.Fatalf("page 1 panels = %+v", out[0].Panels)
	}
	if out[0].Panels[1].Label != "PANEL 2" {
		t.Fatalf("empty panel label = %q", out[0].Panels[1].Label)
	}
	if out[1].Number != 2 || out[1].Panels[0].Number != 1 {
		t.Fatalf("page 2 = %+v", out[1])
	}

	noHeader := doc.NewDoc(doc.NewPage(doc.NewPanel(1, "Intro")))
	o := Outline(noHeader)
	if len(o) != 1 || !o[0].Implicit || o[0].Number != 1 {
		t.Fatalf("implicit outline = %+v", o)
	}
}
