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

// ErrEmptyDocument is returned for a document without pages.
var ErrEmptyDocument = errors.New("document has no pages")

// SchemaError reports a structural violation at a node path such as "page[2]/block[0]".
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg) }

// Check validates the structural rules of a script document:
//   - the root is a doc with at least one page
//   - pages hold blocks only; a page may be empty
//   - a header appears at most once per page, and only as its first block
//   - blocks hold non-empty text runs only
//   - marks appear only in blocks that allow them
func Check(d *Node) error {
	if d == nil || d.Type != TypeDoc {
		return &SchemaError{Path: "/", Msg: "root must be a doc node"}
	}
	if len(d.Content) == 0 {
		return ErrEmptyDocument
	}
	for pi, p := range d.Content {
		if p == nil || p.Type != TypePage {
			return &SchemaError{Path: fmt.Sprintf("page[%d]", pi), Msg: "doc children must be pages"}
		}
		for bi, b := range p.Content {
			path := fmt.Sprintf("page[%d]/block[%d]", pi, bi)
			if err := checkBlock(b, bi, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkBlock(b *Node, index int, path string) error {
	if b == nil || !IsBlockType(b.Type) {
		return &SchemaError{Path: path, Msg: "page children must be blocks"}
	}
	if IsHeader(b) && index != 0 {
		return &SchemaError{Path: path, Msg: "header must be the first block of its page"}
	}
	if IsPanel(b) && b.Number() < 0 {
		return &SchemaError{Path: path, Msg: "panel number must not be negative"}
	}
	for ti, t := range b.Content {
		if t == nil || !t.IsText() {
			return &SchemaError{Path: fmt.Sprintf("%s/text[%d]", path, ti), Msg: "blocks hold text only"}
		}
		if t.Text == "" {
			return &SchemaError{Path: fmt.Sprintf("%s/text[%d]", path, ti), Msg: "empty text node"}
		}
		if len(t.Marks) > 0 && !AllowsMarks(b.Type) {
			return &SchemaError{Path: fmt.Sprintf("%s/text[%d]", path, ti), Msg: fmt.Sprintf("%s does not allow marks", b.Type)}
		}
	}
	return nil
}

// Normalize repairs loaded documents that are structurally sound but incomplete:
// panels without a number get one, empty text runs are dropped, a document
// without pages becomes the default document. The input is not modified.
func Normalize(d *Node) *Node {
	if d == nil || len(d.Content) == 0 {
		return DefaultDocument()
	}
	pages := make([]*Node, len(d.Content))
	for pi, p := range d.Content {
		blocks := make([]*Node, len(p.Content))
		for bi, b := range p.Content {
			nb := b.WithContent(normalizeInline(b.Content))
			if IsPanel(nb) && nb.Attrs == nil {
				nb.Attrs = &Attrs{Number: 1}
			}
			blocks[bi] = nb
		}
		pages[pi] = p.WithContent(blocks)
	}
	return d.WithContent(pages)
}

// DefaultDocument is the document used when nothing has been saved yet: one
// page with a header, panel 1 and an empty paragraph.
func DefaultDocument() *Node {
	return NewDoc(NewPage(
		NewBlock(TypeHeader, ""),
		NewPanel(1, ""),
		NewBlock(TypeParagraph, ""),
	))
}
