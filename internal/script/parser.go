/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"gocomicscript/internal/doc"
)

// maxLine bounds a single source line; longer lines are reported as errors.
const maxLine = 1 << 20

var (
	reHeading    = regexp.MustCompile(`^(#+)\s*(.*)$`)
	reHeadingAlt = regexp.MustCompile(`^(?i)\s*Scene:\s*(.+)$`)
	rePage       = regexp.MustCompile(`^(?i)PAGE\s*\d+\b`)
	rePanel      = regexp.MustCompile(`^(?i)PANEL(?:\s*(\d+))?(?:\s*[-:.]\s*|\s+|$)(.*)$`)
	reSfx        = regexp.MustCompile(`^(?i)SFX\s*:\s*(.*)$`)
	reName       = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_\- ]{0,63})\s*:\s*(.*)$`)
)

// Lex classifies every line of input. Indented lines directly after a dialogue
// line are folded into it.
func Lex(input string) ([]Line, []Error) {
	var lines []Line
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	last := -1

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		// Continuation line (indented) -> append to last dialogue
		if (strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")) && last >= 0 && lines[last].Type == LineDialogue {
			if cont := strings.TrimSpace(line); cont != "" {
				if lines[last].Text != "" {
					lines[last].Text += "\n"
				}
				lines[last].Text += cont
			}
			continue
		}

		trim := strings.TrimSpace(line)
		last = -1
		if trim == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trim, ";"):
			lines = append(lines, Line{Type: LineNote, Text: strings.TrimSpace(trim[1:]), LineNo: lineNo})
		case reHeading.MatchString(trim):
			m := reHeading.FindStringSubmatch(trim)
			lines = append(lines, Line{Type: LineHeading, Text: strings.TrimSpace(m[2]), LineNo: lineNo})
		case reHeadingAlt.MatchString(trim):
			m := reHeadingAlt.FindStringSubmatch(trim)
			lines = append(lines, Line{Type: LineHeading, Text: strings.TrimSpace(m[1]), LineNo: lineNo})
		case rePage.MatchString(trim):
			label := rePage.FindString(trim)
			lines = append(lines, Line{Type: LineHeading, Text: strings.ToUpper(label) + trim[len(label):], LineNo: lineNo})
		case rePanel.MatchString(trim):
			m := rePanel.FindStringSubmatch(trim)
			n := 0
			if m[1] != "" {
				v, err := strconv.Atoi(m[1])
				if err != nil {
					errs = append(errs, Error{Line: lineNo, Column: 1, Message: "panel number: " + err.Error()})
				}
				n = v
			}
			lines = append(lines, Line{Type: LinePanel, Number: n, Text: strings.TrimSpace(m[2]), LineNo: lineNo})
		case reSfx.MatchString(trim):
			m := reSfx.FindStringSubmatch(trim)
			lines = append(lines, Line{Type: LineSfx, Text: strings.TrimSpace(m[1]), LineNo: lineNo})
		case reName.MatchString(trim):
			m := reName.FindStringSubmatch(trim)
			lines = append(lines, Line{
				Type:      LineDialogue,
				Character: strings.ToUpper(strings.TrimSpace(m[1])),
				Text:      strings.TrimSpace(m[2]),
				LineNo:    lineNo,
			})
			last = len(lines) - 1
		default:
			lines = append(lines, Line{Type: LineParagraph, Text: trim, LineNo: lineNo})
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo + 1, Column: 1, Message: err.Error()})
	}
	return lines, errs
}

// Parse builds a script document from plain text. Every heading opens a logical
// page; content before the first heading opens one with an empty header. Notes
// are dropped and panels are numbered in order, whatever number was written.
// Empty input yields the default document.
func Parse(input string) (*doc.Node, []Error) {
	lines, errs := Lex(input)
	return Build(lines), errs
}

// Build turns classified lines into a document.
func Build(lines []Line) *doc.Node {
	var pages []*doc.Node
	var cur []*doc.Node
	panel := 0

	flush := func() {
		if cur == nil {
			return
		}
		if len(cur) == 1 {
			// a page is never just its header
			cur = append(cur, doc.NewBlock(doc.TypeParagraph, ""))
		}
		pages = append(pages, doc.NewPage(cur...))
		cur = nil
	}
	open := func(header string) {
		flush()
		cur = []*doc.Node{doc.NewBlock(doc.TypeHeader, header)}
		panel = 0
	}
	add := func(blocks ...*doc.Node) {
		if cur == nil {
			open("")
		}
		cur = append(cur, blocks...)
	}

	for _, l := range lines {
		switch l.Type {
		case LineNote:
		case LineHeading:
			open(l.Text)
		case LinePanel:
			if cur == nil {
				open("")
			}
			panel++
			add(doc.NewPanel(panel, l.Text))
		case LineSfx:
			add(doc.NewBlock(doc.TypeSfx, l.Text))
		case LineDialogue:
			add(doc.NewBlock(doc.TypeCharacter, l.Character))
			if l.Text != "" {
				add(doc.NewBlock(doc.TypeDialogue, l.Text))
			}
		default:
			add(doc.NewBlock(doc.TypeParagraph, l.Text))
		}
	}
	flush()
	if len(pages) == 0 {
		return doc.DefaultDocument()
	}
	return doc.Normalize(doc.NewDoc(pages...))
}
