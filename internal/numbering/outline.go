/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package numbering

import (
	"fmt"
	"strings"

	"gocomicscript/internal/doc"
)

// PageInfo describes one physical page in terms of the logical page it belongs to.
type PageInfo struct {
	Index int
	Pos   int
	// Logical is the 1-based logical page number. Content before the first
	// header forms an implicit logical page 1.
	Logical      int
	Continuation bool
	// Panels is the number of panels on this physical page.
	Panels int
}

// LogicalPages maps every physical page to its logical page.
func LogicalPages(d *doc.Node) []PageInfo {
	out := make([]PageInfo, 0, d.ChildCount())
	logical := 0
	pos := 0
	for i, p := range d.Content {
		cont := !doc.HasHeader(p)
		if !cont {
			logical++
		} else if logical == 0 {
			logical = 1
		}
		panels := 0
		for _, b := range p.Content {
			if doc.IsPanel(b) {
				panels++
			}
		}
		out = append(out, PageInfo{Index: i, Pos: pos, Logical: logical, Continuation: cont, Panels: panels})
		pos += p.NodeSize()
	}
	return out
}

// OutlinePanel is one navigation entry below a logical page.
type OutlinePanel struct {
	Pos    int
	Number int
	Label  string
}

// OutlinePage is one logical page in the navigation sidebar.
type OutlinePage struct {
	Number int
	Pos    int
	// Implicit marks content that precedes the first header.
	Implicit bool
	Panels   []OutlinePanel
}

// Outline builds the navigation index: logical pages with their panels. Panel
// labels are the panel text, or "PANEL n" for panels without text.
func Outline(d *doc.Node) []OutlinePage {
	var out []OutlinePage
	counter := 0
	d.Descendants(func(n *doc.Node, pos int, _ *doc.Node, _ int) bool {
		switch n.Type {
		case doc.TypePage:
			return true
		case doc.TypeHeader:
			out = append(out, OutlinePage{Number: len(out) + 1, Pos: pos})
			counter = 0
		case doc.TypePanel:
			if len(out) == 0 {
				out = append(out, OutlinePage{Number: 1, Pos: 0, Implicit: true})
			}
			counter++
			label := strings.TrimSpace(n.TextContent())
			if label == "" {
				label = fmt.Sprintf("PANEL %d", counter)
			}
			last := &out[len(out)-1]
			last.Panels = append(last.Panels, OutlinePanel{Pos: pos, Number: counter, Label: label})
		}
		return false
	})
	return out
}
