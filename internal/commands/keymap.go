/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"sort"
	"strings"
	"unicode/utf8"

	"gocomicscript/internal/edit"
)

// Key names used by the default bindings.
const (
	KeyNewPanel       = "Mod-Enter"
	KeyNewLogicalPage = "Mod-Shift-Enter"
	KeyTab            = "Tab"
	KeyEnter          = "Enter"
	KeyBackspace      = "Backspace"
	KeySfx            = "Mod-Shift-s"
	KeyComplete       = "Mod-Space"
)

// Keymap binds normalized key names to commands tried in order.
type Keymap map[string][]Command

// DefaultKeymap returns the script editor bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		KeyNewPanel:       {NewPanel},
		KeyNewLogicalPage: {NewLogicalPage},
		KeyTab:            {CharacterToDialogue, ParagraphToCharacter},
		KeyEnter:          {CharacterToDialogue, DialogueToParagraph},
		KeyBackspace:      {BackspaceAtPageStart},
		KeySfx:            {InsertSfx},
		KeyComplete:       {AcceptCharacterSuggestion},
	}
}

// Bind appends cmds to the bindings of key.
func (k Keymap) Bind(key string, cmds ...Command) {
	key = NormalizeKey(key)
	k[key] = append(k[key], cmds...)
}

// Handle runs the first command bound to key that applies.
func (k Keymap) Handle(key string, st *edit.State) (*edit.Transaction, bool) {
	for _, c := range k[NormalizeKey(key)] {
		if tr, ok := c(st); ok {
			return tr, true
		}
	}
	return nil, false
}

// Keys lists the bound keys in sorted order.
func (k Keymap) Keys() []string {
	out := make([]string, 0, len(k))
	for key := range k {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// NormalizeKey canonicalizes a key description such as "ctrl+shift+S" into
// "Mod-Shift-s". Ctrl, Cmd and Meta all map to Mod.
func NormalizeKey(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '+' })
	if len(parts) == 0 {
		return s
	}
	var mod, alt, shift bool
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(p) {
		case "mod", "ctrl", "control", "cmd", "meta":
			mod = true
		case "alt", "option":
			alt = true
		case "shift":
			shift = true
		}
	}
	name := parts[len(parts)-1]
	if utf8.RuneCountInString(name) == 1 {
		name = strings.ToLower(name)
	} else {
		name = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
	}
	var b strings.Builder
	if mod {
		b.WriteString("Mod-")
	}
	if alt {
		b.WriteString("Alt-")
	}
	if shift {
		b.WriteString("Shift-")
	}
	b.WriteString(name)
	return b.String()
}
