/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import (
	"errors"
	"testing"
)

// sample: page(header "PAGE 1", panel "Hi", paragraph "")
//
//	0 <page> 1 <hdr> 2..8 </hdr> 9 <panel> 10..12 </panel> 13 <p> 14 </p> 15 </page> 16
func sample() *Node {
	return NewDoc(NewPage(
		NewBlock(TypeHeader, "PAGE 1"),
		NewPanel(1, "Hi"),
		NewBlock(TypeParagraph, ""),
	))
}

func TestSizes(t *testing.T) {
	d := sample()
	if got := d.ContentSize(); got != 16 {
		t.Fatalf("doc size = %d, want 16", got)
	}
	if got := d.Child(0).NodeSize(); got != 16 {
		t.Fatalf("page size = %d, want 16", got)
	}
	if got := NewText("héllo").NodeSize(); got != 5 {
		t.Fatalf("text size counts runes, got %d", got)
	}
	if got := NewBlock(TypeParagraph, "").NodeSize(); got != 2 {
		t.Fatalf("empty block size = %d, want 2", got)
	}
}

func TestResolve(t *testing.T) {
	d := sample()
	cases := []struct {
		pos, depth, offset int
		parent             NodeType
	}{
		{0, 0, 0, TypeDoc},
		{1, 1, 0, TypePage},
		{2, 2, 0, TypeHeader},
		{8, 2, 6, TypeHeader},
		{9, 1, 8, TypePage},
		{11, 2, 1, TypePanel},
		{14, 2, 0, TypeParagraph},
		{15, 1, 14, TypePage},
		{16, 0, 16, TypeDoc},
	}
	for _, c := range cases {
		rp, err := d.Resolve(c.pos)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", c.pos, err)
		}
		if rp.Depth() != c.depth || rp.ParentOffset != c.offset || rp.Parent().Type != c.parent {
			t.Fatalf("Resolve(%d) = depth %d offset %d parent %s, want %d %d %s",
				c.pos, rp.Depth(), rp.ParentOffset, rp.Parent().Type, c.depth, c.offset, c.parent)
		}
	}
	rp, _ := d.Resolve(11)
	if rp.Before(2) != 9 || rp.After(2) != 13 || rp.Start(1) != 1 || rp.End(1) != 15 {
		t.Fatalf("unexpected block bounds: before %d after %d", rp.Before(2), rp.After(2))
	}
	if rp.Index(1) != 1 || rp.PageIndex() != 0 {
		t.Fatalf("unexpected indices: %d %d", rp.Index(1), rp.PageIndex())
	}
	if _, err := d.Resolve(17); !errors.Is(err, ErrPositionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if _, err := d.Resolve(-1); !errors.Is(err, ErrPositionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestNearestTextPosAndPageAt(t *testing.T) {
	d := NewDoc(sample().Child(0), NewPage(NewBlock(TypeParagraph, "x")))
	// second page starts at 16: <page>17 <p>18 x 19 </p>20 </page>21
	if got := d.NearestTextPos(11, 1); got != 11 {
		t.Fatalf("inside text stays: %d", got)
	}
	if got := d.NearestTextPos(16, -1); got != 14 {
		t.Fatalf("backward from page boundary = %d, want 14", got)
	}
	if got := d.NearestTextPos(16, 1); got != 18 {
		t.Fatalf("forward from page boundary = %d, want 18", got)
	}
	if d.PageAt(16) != 1 || d.PageAt(15) != 0 || d.PageAt(21) != 1 || d.PageAt(22) != -1 {
		t.Fatalf("PageAt mismatch")
	}
	if d.PagePos(1) != 16 {
		t.Fatalf("PagePos(1) = %d", d.PagePos(1))
	}
}

func TestDescendantsOrderAndPositions(t *testing.T) {
	d := sample()
	var seen []NodeType
	var panelPos int
	d.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		seen = append(seen, n.Type)
		if IsPanel(n) {
			panelPos = pos
		}
		return true
	})
	want := []NodeType{TypePage, TypeHeader, TypeText, TypePanel, TypeText, TypeParagraph}
	if len(seen) != len(want) {
		t.Fatalf("walk = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("walk[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
	if panelPos != 9 {
		t.Fatalf("panel pos = %d, want 9", panelPos)
	}
}

func TestInlineReplace(t *testing.T) {
	runs := []*Node{NewText("Hello "), NewText("big", Mark{Type: MarkBold}), NewText(" world")}
	got := ReplaceInline(runs, 6, 9, []*Node{NewText("small")})
	if len(got) != 1 || got[0].Text != "Hello small world" {
		t.Fatalf("ReplaceInline merged runs = %+v", got)
	}
	cut := CutInline(runs, 4, 8)
	if len(cut) != 2 || cut[0].Text != "o " || cut[1].Text != "bi" || len(cut[1].Marks) != 1 {
		t.Fatalf("CutInline = %+v", cut)
	}
	if ReplaceInline(runs, 0, 15, nil) != nil {
		t.Fatalf("deleting everything leaves no runs")
	}
}

func TestWithTypeHandlesAttrsAndMarks(t *testing.T) {
	p := &Node{Type: TypeParagraph, Content: []*Node{NewText("a", Mark{Type: MarkItalic}), NewText("b")}}
	panel := p.WithType(TypePanel)
	if panel.Number() != 1 || len(panel.Content) != 2 {
		t.Fatalf("panel conversion: %+v", panel)
	}
	ch := panel.WithType(TypeCharacter)
	if ch.Attrs != nil {
		t.Fatalf("character kept panel attrs")
	}
	if len(ch.Content) != 1 || ch.Content[0].Text != "ab" || len(ch.Content[0].Marks) != 0 {
		t.Fatalf("character kept marks: %+v", ch.Content)
	}
	if p.Type != TypeParagraph {
		t.Fatalf("original mutated")
	}
}
