/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reParaBreak = regexp.MustCompile(`\n[ \t]*\n`)

// CleanPaste undoes the hard wrapping of text copied from PDFs. Single line
// breaks become spaces, words hyphenated across a break are joined, and blank
// lines stay paragraph breaks.
func CleanPaste(s string) string {
	return strings.Join(PasteParagraphs(s), "\n\n")
}

// PasteParagraphs returns the cleaned paragraphs of pasted text.
func PasteParagraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, para := range reParaBreak.Split(s, -1) {
		var b strings.Builder
		for _, line := range strings.Split(para, "\n") {
			line = strings.Join(strings.Fields(line), " ")
			if line == "" {
				continue
			}
			if b.Len() > 0 {
				prev := b.String()
				if strings.HasSuffix(prev, "-") && startsLower(line) && len(prev) > 1 && prev[len(prev)-2] != ' ' {
					b.Reset()
					b.WriteString(strings.TrimSuffix(prev, "-"))
				} else {
					b.WriteByte(' ')
				}
			}
			b.WriteString(line)
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return out
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}
