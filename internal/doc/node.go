/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package doc holds the script document tree: a document of physical pages,
// each page an ordered list of typed blocks, each block a run of text.
//
// Nodes are values shared between document versions. A node that is part of a
// committed document must never be mutated; edits build new parents along the
// path to the change and reuse every untouched subtree.
package doc

import (
	"strings"
	"unicode/utf8"
)

// NodeType names the kind of a node. The string values are the serialized "type" field.
type NodeType string

const (
	TypeDoc       NodeType = "doc"
	TypePage      NodeType = "page"
	TypeHeader    NodeType = "storyPageHeader"
	TypePanel     NodeType = "panel"
	TypeParagraph NodeType = "paragraph"
	TypeCharacter NodeType = "character"
	TypeDialogue  NodeType = "dialogue"
	TypeSfx       NodeType = "sfx"
	TypeText      NodeType = "text"
)

// BlockTypes lists every node type that may appear as a child of a page.
var BlockTypes = []NodeType{TypeHeader, TypePanel, TypeParagraph, TypeCharacter, TypeDialogue, TypeSfx}

// IsBlockType reports whether t is one of the page-level block types.
func IsBlockType(t NodeType) bool {
	for _, b := range BlockTypes {
		if b == t {
			return true
		}
	}
	return false
}

// Mark is an inline formatting flag on a text node.
type Mark struct {
	Type string `json:"type"`
}

// Known mark types.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
)

// Attrs carries node attributes. Only panels use Number; it is the panel's
// position within its logical page and is maintained by the numbering pass.
type Attrs struct {
	Number int `json:"number"`
}

// Node is a document tree node.
type Node struct {
	Type    NodeType `json:"type"`
	Attrs   *Attrs   `json:"attrs,omitempty"`
	Content []*Node  `json:"content,omitempty"`
	Text    string   `json:"text,omitempty"`
	Marks   []Mark   `json:"marks,omitempty"`
}

// NewDoc builds a document node from pages.
func NewDoc(pages ...*Node) *Node { return &Node{Type: TypeDoc, Content: pages} }

// NewPage builds a page node from blocks.
func NewPage(blocks ...*Node) *Node { return &Node{Type: TypePage, Content: blocks} }

// NewBlock builds a block of type t holding text. Empty text yields an empty block.
func NewBlock(t NodeType, text string) *Node {
	n := &Node{Type: t}
	if t == TypePanel {
		n.Attrs = &Attrs{Number: 1}
	}
	if text != "" {
		n.Content = []*Node{NewText(text)}
	}
	return n
}

// NewPanel builds a panel block with an explicit number.
func NewPanel(number int, text string) *Node {
	n := NewBlock(TypePanel, text)
	n.Attrs = &Attrs{Number: number}
	return n
}

// NewText builds a text node.
func NewText(s string, marks ...Mark) *Node {
	return &Node{Type: TypeText, Text: s, Marks: marks}
}

// IsText reports whether n is a text leaf.
func (n *Node) IsText() bool { return n != nil && n.Type == TypeText }

// IsTextblock reports whether n is a block holding inline text.
func (n *Node) IsTextblock() bool { return n != nil && IsBlockType(n.Type) }

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Content)
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Content) {
		return nil
	}
	return n.Content[i]
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node { return n.Child(0) }

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node { return n.Child(n.ChildCount() - 1) }

// NodeSize is the number of positions the node occupies inside its parent:
// one per rune for text, content size plus an opening and closing token otherwise.
func (n *Node) NodeSize() int {
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	return n.ContentSize() + 2
}

// ContentSize is the summed size of the node's children. For the root document
// this is the full position range [0, ContentSize].
func (n *Node) ContentSize() int {
	if n == nil || n.IsText() {
		return 0
	}
	s := 0
	for _, c := range n.Content {
		s += c.NodeSize()
	}
	return s
}

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	for _, c := range n.Content {
		if c.IsText() {
			b.WriteString(c.Text)
		} else {
			c.appendText(b)
		}
	}
}

// Number returns the panel number attribute, or 0 when absent.
func (n *Node) Number() int {
	if n == nil || n.Attrs == nil {
		return 0
	}
	return n.Attrs.Number
}

// WithContent returns a shallow copy of n with its children replaced.
func (n *Node) WithContent(content []*Node) *Node {
	c := *n
	c.Content = content
	return &c
}

// WithAttrs returns a shallow copy of n carrying attrs.
func (n *Node) WithAttrs(a Attrs) *Node {
	c := *n
	c.Attrs = &a
	return &c
}

// WithType returns a shallow copy of n converted to type t. Converting to a panel
// adds a default number, converting away from a panel drops the attributes.
func (n *Node) WithType(t NodeType) *Node {
	c := *n
	c.Type = t
	switch {
	case t == TypePanel && c.Attrs == nil:
		c.Attrs = &Attrs{Number: 1}
	case t != TypePanel:
		c.Attrs = nil
	}
	if !AllowsMarks(t) && len(c.Content) > 0 {
		c.Content = stripMarks(c.Content)
	}
	return &c
}

// ReplaceChild returns a copy of n with child i swapped for child.
func (n *Node) ReplaceChild(i int, child *Node) *Node {
	content := make([]*Node, len(n.Content))
	copy(content, n.Content)
	content[i] = child
	return n.WithContent(content)
}

// Splice returns a copy of n where children [from, to) are replaced by nodes.
func (n *Node) Splice(from, to int, nodes ...*Node) *Node {
	content := make([]*Node, 0, len(n.Content)-(to-from)+len(nodes))
	content = append(content, n.Content[:from]...)
	content = append(content, nodes...)
	content = append(content, n.Content[to:]...)
	return n.WithContent(content)
}

// Equal reports deep structural equality.
func (n *Node) Equal(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.Type != o.Type || n.Text != o.Text || n.Number() != o.Number() {
		return false
	}
	if !sameMarks(n.Marks, o.Marks) || len(n.Content) != len(o.Content) {
		return false
	}
	for i := range n.Content {
		if !n.Content[i].Equal(o.Content[i]) {
			return false
		}
	}
	return true
}

// Descendants walks every node below n in document order, calling fn with the
// node, the absolute position before it, its parent and its index in the parent.
// Returning false from fn skips the node's children.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(start int, fn func(*Node, int, *Node, int) bool) {
	pos := start
	for i, c := range n.Content {
		if fn(c, pos, n, i) && !c.IsText() && len(c.Content) > 0 {
			c.walk(pos+1, fn)
		}
		pos += c.NodeSize()
	}
}

// PagePos returns the absolute position before page i of a document.
func (n *Node) PagePos(i int) int {
	pos := 0
	for j := 0; j < i && j < len(n.Content); j++ {
		pos += n.Content[j].NodeSize()
	}
	return pos
}

// PageAt returns the index of the page whose range [before, after] contains pos,
// preferring the later page on a shared boundary. It returns -1 when out of range.
func (n *Node) PageAt(pos int) int {
	if pos < 0 || pos > n.ContentSize() {
		return -1
	}
	off := 0
	for i, p := range n.Content {
		end := off + p.NodeSize()
		if pos < end || i == len(n.Content)-1 {
			return i
		}
		off = end
	}
	return -1
}

// AllowsMarks reports whether blocks of type t may carry inline marks.
func AllowsMarks(t NodeType) bool {
	switch t {
	case TypePanel, TypeParagraph, TypeDialogue, TypeSfx:
		return true
	default:
		return false
	}
}

func stripMarks(content []*Node) []*Node {
	out := make([]*Node, 0, len(content))
	for _, c := range content {
		if c.IsText() && len(c.Marks) > 0 {
			c = NewText(c.Text)
		}
		out = append(out, c)
	}
	return normalizeInline(out)
}

func sameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
