/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

// CutInline returns the text runs of a textblock's content between rune offsets
// from and to. Runs are split at the offsets; marks are kept.
func CutInline(content []*Node, from, to int) []*Node {
	if from >= to {
		return nil
	}
	var out []*Node
	pos := 0
	for _, c := range content {
		r := []rune(c.Text)
		end := pos + len(r)
		if end > from && pos < to {
			s := max(from-pos, 0)
			e := min(to-pos, len(r))
			out = append(out, &Node{Type: TypeText, Text: string(r[s:e]), Marks: c.Marks})
		}
		pos = end
		if pos >= to {
			break
		}
	}
	return out
}

// ReplaceInline replaces the rune range [from, to) of a textblock's content with
// runs and returns the normalized result.
func ReplaceInline(content []*Node, from, to int, runs []*Node) []*Node {
	size := 0
	for _, c := range content {
		size += c.NodeSize()
	}
	out := make([]*Node, 0, len(content)+len(runs)+1)
	out = append(out, CutInline(content, 0, from)...)
	out = append(out, runs...)
	out = append(out, CutInline(content, to, size)...)
	return normalizeInline(out)
}

// normalizeInline drops empty text nodes and merges neighbours with equal marks.
func normalizeInline(runs []*Node) []*Node {
	out := make([]*Node, 0, len(runs))
	for _, r := range runs {
		if r == nil || r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && sameMarks(out[n-1].Marks, r.Marks) {
			out[n-1] = &Node{Type: TypeText, Text: out[n-1].Text + r.Text, Marks: out[n-1].Marks}
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
