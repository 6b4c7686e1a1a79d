/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import "testing"

func TestHasHeader(t *testing.T) {
	if !HasHeader(NewPage(NewBlock(TypeHeader, ""), NewBlock(TypeParagraph, "x"))) {
		t.Fatalf("page with leading header not detected")
	}
	if HasHeader(NewPage(NewBlock(TypeParagraph, "x"))) {
		t.Fatalf("continuation page reported a header")
	}
	if HasHeader(NewPage()) {
		t.Fatalf("empty page reported a header")
	}
}

func TestIsEmptyPage(t *testing.T) {
	cases := []struct {
		name string
		page *Node
		want bool
	}{
		{"no blocks", NewPage(), true},
		{"single empty paragraph", NewPage(NewBlock(TypeParagraph, "")), true},
		{"single empty panel", NewPage(NewPanel(2, "")), true},
		{"single paragraph with text", NewPage(NewBlock(TypeParagraph, "x")), false},
		{"two empty blocks", NewPage(NewBlock(TypeParagraph, ""), NewBlock(TypeParagraph, "")), false},
		{"lone empty header", NewPage(NewBlock(TypeHeader, "")), false},
	}
	for _, c := range cases {
		if got := IsEmptyPage(c.page); got != c.want {
			t.Fatalf("%s: IsEmptyPage = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTrailingUnit(t *testing.T) {
	pair := NewPage(NewPanel(1, "p"), NewBlock(TypeCharacter, "ANA"), NewBlock(TypeDialogue, "Hi"))
	u, ok := TrailingUnit(pair)
	if !ok || u.Index != 1 || u.Count != 2 || u.Size != 5+4 {
		t.Fatalf("pair unit = %+v", u)
	}
	if bs := u.Blocks(pair); !IsCharacter(bs[0]) || !IsDialogue(bs[1]) {
		t.Fatalf("pair blocks out of order")
	}

	single := NewPage(NewBlock(TypeDialogue, "Hi"), NewBlock(TypeCharacter, "ANA"))
	u, _ = TrailingUnit(single)
	if u.Count != 1 || u.Index != 1 {
		t.Fatalf("character as last block moves alone: %+v", u)
	}

	orphan := NewPage(NewBlock(TypeParagraph, "x"), NewBlock(TypeDialogue, "Hi"))
	u, _ = TrailingUnit(orphan)
	if u.Count != 1 {
		t.Fatalf("dialogue without speaker moves alone: %+v", u)
	}

	if _, ok := TrailingUnit(NewPage()); ok {
		t.Fatalf("empty page has no unit")
	}
}

func TestPageText(t *testing.T) {
	p := NewPage(NewBlock(TypeHeader, "PAGE 12"), NewBlock(TypeParagraph, ""))
	if got := PageText(p); got != "" {
		t.Fatalf("header label should not count as content, got %q", got)
	}
	p = NewPage(NewBlock(TypeHeader, "PAGE 2"), NewPanel(1, "City"))
	if got := PageText(p); got != "City" {
		t.Fatalf("PageText = %q", got)
	}
}
