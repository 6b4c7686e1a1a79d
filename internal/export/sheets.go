/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders script documents to PDF and plain text. Export reads
// the document only: logical pages and panel numbers are derived again here
// and never written back.
package export

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gocomicscript/internal/doc"
)

// ItemKind is the printed role of one block.
type ItemKind int

const (
	ItemPanel ItemKind = iota
	ItemDescription
	ItemCharacter
	ItemDialogue
	ItemSfx
)

// Item is one printed block.
type Item struct {
	Kind ItemKind
	Text string
}

// Sheet is one printed page, derived from one physical document page.
type Sheet struct {
	Logical      int
	Continuation bool
	Panels       int
	// Heading is "SERIES #CH PAGE n - PANELS: k" with the parts that apply.
	Heading string
	Items   []Item
}

// Meta is the script metadata printed on the title page and sheet headings.
type Meta struct {
	Title         string
	SeriesTitle   string
	ChapterNumber string
}

// Sheets lays out the printable content of d. A page with a header starts a new
// logical page and restarts panel counting; a page without one continues it.
// Panels print their stored number and fall back to a running count.
func Sheets(d *doc.Node, meta Meta) []Sheet {
	upper := cases.Upper(language.Und)
	var out []Sheet
	logical, counter := 0, 0
	for _, page := range d.Content {
		if doc.HasHeader(page) {
			logical++
			counter = 0
		} else if logical == 0 {
			logical = 1
		}
		sh := Sheet{Logical: logical, Continuation: !doc.HasHeader(page)}
		for _, b := range page.Content {
			if doc.IsPanel(b) {
				sh.Panels++
			}
		}
		sh.Heading = heading(upper, meta, sh)

		for _, b := range page.Content {
			text := strings.TrimSpace(b.TextContent())
			if doc.IsHeader(b) || (text == "" && !doc.IsPanel(b)) {
				continue
			}
			switch b.Type {
			case doc.TypePanel:
				n := b.Number()
				if n <= 0 {
					counter++
					n = counter
				}
				label := fmt.Sprintf("PANEL %d", n)
				if text != "" {
					label += " - " + upper.String(text)
				}
				sh.Items = append(sh.Items, Item{Kind: ItemPanel, Text: label})
			case doc.TypeCharacter:
				sh.Items = append(sh.Items, Item{Kind: ItemCharacter, Text: upper.String(text)})
			case doc.TypeDialogue:
				sh.Items = append(sh.Items, Item{Kind: ItemDialogue, Text: text})
			case doc.TypeSfx:
				sh.Items = append(sh.Items, Item{Kind: ItemSfx, Text: upper.String(text)})
			default:
				sh.Items = append(sh.Items, Item{Kind: ItemDescription, Text: text})
			}
		}
		out = append(out, sh)
	}
	return out
}

func heading(upper cases.Caser, meta Meta, sh Sheet) string {
	var parts []string
	if s := strings.TrimSpace(meta.SeriesTitle); s != "" {
		parts = append(parts, upper.String(s))
	}
	if c := strings.TrimSpace(meta.ChapterNumber); c != "" {
		parts = append(parts, "#"+c)
	}
	label := fmt.Sprintf("PAGE %d", sh.Logical)
	if sh.Continuation {
		label += " (CONT.)"
	}
	parts = append(parts, label)
	if sh.Panels > 0 {
		parts = append(parts, fmt.Sprintf("- PANELS: %d", sh.Panels))
	}
	return strings.Join(parts, " ")
}
