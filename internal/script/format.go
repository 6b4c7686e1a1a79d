/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"

	"gocomicscript/internal/doc"
)

// Format writes d in the plain-text syntax Parse reads. Continuation pages
// carry no heading, so a reflowed document formats like its unflowed original.
func Format(d *doc.Node) string {
	var b strings.Builder
	logical, panel := 0, 0
	for _, page := range d.Content {
		for bi := 0; bi < len(page.Content); bi++ {
			n := page.Content[bi]
			text := strings.TrimSpace(n.TextContent())
			switch n.Type {
			case doc.TypeHeader:
				logical++
				panel = 0
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString(heading(text, logical))
			case doc.TypePanel:
				panel++
				num := n.Number()
				if num <= 0 {
					num = panel
				}
				fmt.Fprintf(&b, "PANEL %d", num)
				if text != "" {
					b.WriteString(" " + oneLine(text))
				}
			case doc.TypeCharacter:
				b.WriteString(strings.ToUpper(oneLine(text)) + ":")
				if next := page.Child(bi + 1); doc.IsDialogue(next) {
					if lines := dialogueLines(next.TextContent()); len(lines) > 0 {
						b.WriteString(" " + strings.Join(lines, "\n  "))
					}
					bi++
				}
			case doc.TypeDialogue:
				if text == "" {
					continue
				}
				b.WriteString("  " + strings.Join(dialogueLines(text), "\n  "))
			case doc.TypeSfx:
				b.WriteString("SFX: " + oneLine(text))
			default:
				if text == "" {
					continue
				}
				b.WriteString(oneLine(text))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func heading(text string, logical int) string {
	switch {
	case text == "":
		return fmt.Sprintf("PAGE %d", logical)
	case rePage.MatchString(text):
		return text
	default:
		return "# " + oneLine(text)
	}
}

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }

func dialogueLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = oneLine(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
