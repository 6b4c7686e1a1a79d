/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import (
	"regexp"
	"strings"
)

func IsHeader(n *Node) bool    { return n != nil && n.Type == TypeHeader }
func IsPanel(n *Node) bool     { return n != nil && n.Type == TypePanel }
func IsParagraph(n *Node) bool { return n != nil && n.Type == TypeParagraph }
func IsCharacter(n *Node) bool { return n != nil && n.Type == TypeCharacter }
func IsDialogue(n *Node) bool  { return n != nil && n.Type == TypeDialogue }
func IsSfx(n *Node) bool       { return n != nil && n.Type == TypeSfx }

// HasHeader reports whether a page opens a logical page. A page without a
// header is a continuation of the previous logical page.
func HasHeader(page *Node) bool { return IsHeader(page.FirstChild()) }

// IsEmptyPage reports whether a page has no blocks, or a single block without
// any text that is not a header.
func IsEmptyPage(page *Node) bool {
	switch page.ChildCount() {
	case 0:
		return true
	case 1:
		b := page.FirstChild()
		return !IsHeader(b) && b.ContentSize() == 0
	default:
		return false
	}
}

// IsPair reports whether a and b form a speaker/line pair that must stay on one page.
func IsPair(a, b *Node) bool { return IsCharacter(a) && IsDialogue(b) }

// Unit is a run of trailing blocks that moves between pages as one piece.
type Unit struct {
	// Index of the first block of the unit inside the page.
	Index int
	// Count is 1 or 2.
	Count int
	// Size is the summed node size of the unit's blocks.
	Size int
}

// Blocks returns the unit's blocks from page.
func (u Unit) Blocks(page *Node) []*Node { return page.Content[u.Index : u.Index+u.Count] }

// TrailingUnit returns the blocks that leave an overflowing page together: the
// last block, or the last two when they are a Character followed by its Dialogue.
// ok is false for a page without blocks.
func TrailingUnit(page *Node) (u Unit, ok bool) {
	n := page.ChildCount()
	if n == 0 {
		return Unit{}, false
	}
	last := page.Child(n - 1)
	if n >= 2 && IsPair(page.Child(n-2), last) {
		prev := page.Child(n - 2)
		return Unit{Index: n - 2, Count: 2, Size: prev.NodeSize() + last.NodeSize()}, true
	}
	return Unit{Index: n - 1, Count: 1, Size: last.NodeSize()}, true
}

var pageLabel = regexp.MustCompile(`(?i)PAGE\s*\d+`)

// PageText returns the visible text of a page with the header's "PAGE n" label removed.
func PageText(page *Node) string {
	var b strings.Builder
	for _, c := range page.Content {
		t := c.TextContent()
		if IsHeader(c) {
			t = pageLabel.ReplaceAllString(t, "")
		}
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}
