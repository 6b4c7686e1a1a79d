/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
	"testing"

	"gocomicscript/internal/doc"
)

const sample = `PAGE 1
PANEL 1 Rooftop, night.
Rain hammers the city.
alice: Where is he?
  He said midnight.

; remember the lightning
SFX: KRAKOOM

# The Docks
Panel: Fog.
BOB:
  Over here.
`

func TestLexClassifiesLines(t *testing.T) {
	lines, errs := Lex(sample)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	want := []LineType{LineHeading, LinePanel, LineParagraph, LineDialogue, LineNote, LineSfx, LineHeading, LinePanel, LineDialogue}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %+v", len(want), len(lines), lines)
	}
	for i, l := range lines {
		if l.Type != want[i] {
			t.Fatalf("line %d: got %s, want %s", i, l.Type, want[i])
		}
	}
	if lines[1].Number != 1 || lines[1].Text != "Rooftop, night." {
		t.Fatalf("panel = %+v", lines[1])
	}
	if lines[3].Character != "ALICE" || lines[3].Text != "Where is he?\nHe said midnight." {
		t.Fatalf("dialogue = %+v", lines[3])
	}
	if lines[7].Number != 0 || lines[7].Text != "Fog." {
		t.Fatalf("unnumbered panel = %+v", lines[7])
	}
	if lines[8].Text != "Over here." || lines[8].LineNo != 12 {
		t.Fatalf("continued cue = %+v", lines[8])
	}
}

func TestParseBuildsLogicalPages(t *testing.T) {
	d, errs := Parse(sample)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if err := doc.Check(d); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.ChildCount() != 2 {
		t.Fatalf("pages = %d, want 2", d.ChildCount())
	}
	first := d.Child(0)
	if first.Child(0).TextContent() != "PAGE 1" {
		t.Fatalf("header = %q", first.Child(0).TextContent())
	}
	var kinds []string
	for _, b := range first.Content {
		kinds = append(kinds, string(b.Type))
	}
	if got := strings.Join(kinds, ","); got != "header,panel,paragraph,character,dialogue,sfx" {
		t.Fatalf("blocks = %s", got)
	}
	second := d.Child(1)
	if second.Child(0).TextContent() != "The Docks" || !doc.IsPair(second.Child(2), second.Child(3)) {
		t.Fatalf("second page = %+v", second.Content)
	}
}

func TestParseEdgeCases(t *testing.T) {
	d, _ := Parse("")
	if !d.Equal(doc.DefaultDocument()) {
		t.Fatalf("empty input should give the default document")
	}
	d, _ = Parse("Just a line.\n# Empty\n")
	if d.ChildCount() != 2 || d.Child(0).Child(0).TextContent() != "" {
		t.Fatalf("content before a heading opens a page with an empty header")
	}
	if d.Child(1).ChildCount() != 2 || !doc.IsParagraph(d.Child(1).Child(1)) {
		t.Fatalf("a heading alone still gets a block to type in")
	}
	lines, _ := Lex("Panelling is hard.\nPages 4 and 5")
	if lines[0].Type != LineParagraph || lines[1].Type != LineParagraph {
		t.Fatalf("words starting like keywords are paragraphs: %+v", lines)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	d, _ := Parse(sample)
	text := Format(d)
	if !strings.Contains(text, "ALICE: Where is he?\n  He said midnight.\n") {
		t.Fatalf("dialogue not formatted with continuation:\n%s", text)
	}
	if !strings.Contains(text, "# The Docks\n") || !strings.Contains(text, "SFX: KRAKOOM\n") {
		t.Fatalf("unexpected format:\n%s", text)
	}
	again, errs := Parse(text)
	if len(errs) != 0 {
		t.Fatalf("reparse: %+v", errs)
	}
	if !again.Equal(d) {
		t.Fatalf("round trip changed the document:\n%s", text)
	}
}

func TestFormatSkipsContinuationHeadings(t *testing.T) {
	d := doc.NewDoc(
		doc.NewPage(doc.NewBlock(doc.TypeHeader, ""), doc.NewPanel(1, "A")),
		doc.NewPage(doc.NewPanel(2, "B")),
	)
	want := "PAGE 1\nPANEL 1 A\nPANEL 2 B\n"
	if got := Format(d); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestCleanPaste(t *testing.T) {
	in := "The rain fell on the\nroof of the ware-\nhouse.\r\n\r\nA well-known\nface  appeared.\n\n\n"
	want := "The rain fell on the roof of the warehouse.\n\nA well-known face appeared."
	if got := CleanPaste(in); got != want {
		t.Fatalf("CleanPaste = %q, want %q", got, want)
	}
	if got := PasteParagraphs(" \n\n "); len(got) != 0 {
		t.Fatalf("blank input gives no paragraphs: %q", got)
	}
}
