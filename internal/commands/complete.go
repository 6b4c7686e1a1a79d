/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
)

// MaxSuggestions caps the number of character names offered at once.
const MaxSuggestions = 5

// CharacterNames returns the distinct speaker names used in d, trimmed,
// upper-cased and sorted.
func CharacterNames(d *doc.Node) []string {
	upper := cases.Upper(language.Und)
	seen := map[string]bool{}
	var out []string
	for _, page := range d.Content {
		for _, b := range page.Content {
			if !doc.IsCharacter(b) {
				continue
			}
			name := upper.String(strings.TrimSpace(b.TextContent()))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// typedName returns the text of the character cue before the cursor and the
// position where it starts. ok is false outside a character cue, with a range
// selected, or when nothing has been typed yet.
func typedName(st *edit.State) (query string, from int, ok bool) {
	if !st.Selection.Empty() {
		return "", 0, false
	}
	rp, found := cursorBlock(st)
	if !found || !doc.IsCharacter(rp.Parent()) || rp.ParentOffset == 0 {
		return "", 0, false
	}
	runes := []rune(rp.Parent().TextContent())
	return string(runes[:rp.ParentOffset]), rp.Pos - rp.ParentOffset, true
}

// CharacterSuggestions lists the known names completing what has been typed in
// the character cue under the cursor. A name equal to the typed text is left
// out, since there is nothing to complete.
func CharacterSuggestions(st *edit.State) []string {
	query, _, ok := typedName(st)
	if !ok {
		return nil
	}
	q := cases.Upper(language.Und).String(query)
	var out []string
	for _, name := range CharacterNames(st.Doc) {
		if name != q && strings.HasPrefix(name, q) {
			out = append(out, name)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out
}

// CompleteCharacter replaces the typed part of the character cue with name
// followed by a space and leaves the cursor after it.
func CompleteCharacter(st *edit.State, name string) (*edit.Transaction, bool) {
	name = strings.TrimSpace(name)
	_, from, ok := typedName(st)
	if !ok || name == "" {
		return nil, false
	}
	tr := command(st)
	if err := tr.Delete(from, st.Selection.Head); err != nil {
		return nil, false
	}
	text := name + " "
	if err := tr.InsertText(from, text); err != nil {
		return nil, false
	}
	tr.SetSelection(edit.Cursor(from + len([]rune(text))))
	return tr, true
}

// AcceptCharacterSuggestion completes the cue with the first suggestion.
func AcceptCharacterSuggestion(st *edit.State) (*edit.Transaction, bool) {
	s := CharacterSuggestions(st)
	if len(s) == 0 {
		return nil, false
	}
	return CompleteCharacter(st, s[0])
}
