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
	"fmt"
)

// ErrPositionOutOfRange is returned when a position lies outside [0, doc.ContentSize()].
var ErrPositionOutOfRange = errors.New("position out of range")

type pathEntry struct {
	node  *Node
	index int
	start int // absolute position of the node's content start
}

// ResolvedPos describes an absolute position in terms of the nodes that enclose it.
// Depth 0 is the document; depth 1 a page; depth 2 a block.
type ResolvedPos struct {
	Pos int
	// ParentOffset is the offset of Pos inside its parent's content.
	ParentOffset int
	path         []pathEntry
}

// Resolve maps an absolute position to its enclosing nodes.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.ContentSize() {
		return nil, fmt.Errorf("%w: %d not in [0,%d]", ErrPositionOutOfRange, pos, n.ContentSize())
	}
	rp := &ResolvedPos{Pos: pos}
	node := n
	start := 0
	parentOffset := pos
	for {
		index, offset := node.findIndex(parentOffset)
		rem := parentOffset - offset
		rp.path = append(rp.path, pathEntry{node: node, index: index, start: start})
		if rem == 0 {
			break
		}
		child := node.Child(index)
		if child == nil || child.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
		node = child
	}
	rp.ParentOffset = parentOffset
	return rp, nil
}

// findIndex returns the index of the child that contains offset and the offset at
// which that child starts. An offset on a boundary resolves to the following child.
func (n *Node) findIndex(offset int) (int, int) {
	if offset == 0 {
		return 0, 0
	}
	cur := 0
	for i, c := range n.Content {
		end := cur + c.NodeSize()
		if end == offset {
			return i + 1, end
		}
		if end > offset {
			return i, cur
		}
		cur = end
	}
	return len(n.Content), cur
}

// Depth is the depth of the innermost node that contains the position.
func (rp *ResolvedPos) Depth() int { return len(rp.path) - 1 }

// Node returns the ancestor at depth d.
func (rp *ResolvedPos) Node(d int) *Node { return rp.path[d].node }

// Parent returns the innermost enclosing node.
func (rp *ResolvedPos) Parent() *Node { return rp.path[len(rp.path)-1].node }

// Index returns the child index inside the ancestor at depth d.
func (rp *ResolvedPos) Index(d int) int { return rp.path[d].index }

// Start returns the absolute start of the content of the ancestor at depth d.
func (rp *ResolvedPos) Start(d int) int { return rp.path[d].start }

// End returns the absolute end of the content of the ancestor at depth d.
func (rp *ResolvedPos) End(d int) int { return rp.path[d].start + rp.path[d].node.ContentSize() }

// Before returns the position directly before the ancestor at depth d (d >= 1).
func (rp *ResolvedPos) Before(d int) int { return rp.path[d].start - 1 }

// After returns the position directly after the ancestor at depth d (d >= 1).
func (rp *ResolvedPos) After(d int) int { return rp.Before(d) + rp.path[d].node.NodeSize() }

// InTextblock reports whether the position lies inside a block's text.
func (rp *ResolvedPos) InTextblock() bool { return rp.Parent().IsTextblock() }

// PageIndex returns the index of the page containing the position, or -1 when
// the position sits between pages.
func (rp *ResolvedPos) PageIndex() int {
	if rp.Depth() < 1 {
		return -1
	}
	return rp.path[0].index
}

// TextRange is the content range of one block, addressed by page and block index.
type TextRange struct {
	Page, Block int
	From, To    int
}

// Textblocks returns the content ranges of all blocks of the document.
func (n *Node) Textblocks() []TextRange {
	var out []TextRange
	pos := 0
	for pi, p := range n.Content {
		bpos := pos + 1
		for bi, b := range p.Content {
			out = append(out, TextRange{Page: pi, Block: bi, From: bpos + 1, To: bpos + 1 + b.ContentSize()})
			bpos += b.NodeSize()
		}
		pos += p.NodeSize()
	}
	return out
}

// NearestTextPos returns the closest position inside any block's text. With
// bias < 0 earlier blocks win ties, otherwise later ones. When the document has
// no blocks the position is clamped to the document range.
func (n *Node) NearestTextPos(pos, bias int) int {
	size := n.ContentSize()
	pos = max(0, min(pos, size))
	ranges := n.Textblocks()
	if len(ranges) == 0 {
		return pos
	}
	best, bestDist := -1, 0
	for _, r := range ranges {
		if pos >= r.From && pos <= r.To {
			return pos
		}
		var cand, dist int
		if pos < r.From {
			cand, dist = r.From, r.From-pos
		} else {
			cand, dist = r.To, pos-r.To
		}
		better := best < 0 || dist < bestDist || (dist == bestDist && bias >= 0 && cand > best)
		if better {
			best, bestDist = cand, dist
		}
	}
	return best
}
