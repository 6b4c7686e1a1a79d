/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads and writes comic scripts in a plain-text syntax:
//
//	PAGE 1                 opens a logical page (so does "# title" or "Scene: title")
//	PANEL 1 Rooftop, night a panel with its description
//	Rain hammers the city. a paragraph
//	BOB: Where is she?     a character cue and its dialogue
//	  Still waiting.       an indented line continues the dialogue
//	SFX: KRAKOOM           a sound effect
//	; note                 an author note, dropped on import
package script

import "fmt"

// LineType indicates the kind of a script line.
type LineType int

const (
	LineParagraph LineType = iota
	LineHeading
	LinePanel
	LineSfx
	LineDialogue
	LineNote
)

func (t LineType) String() string {
	switch t {
	case LineHeading:
		return "heading"
	case LinePanel:
		return "panel"
	case LineSfx:
		return "sfx"
	case LineDialogue:
		return "dialogue"
	case LineNote:
		return "note"
	default:
		return "paragraph"
	}
}

// Line captures a single logical line (possibly with continuations).
// For Dialogue, Character holds the upper-cased speaker and Text the spoken
// content. For Panel, Number is the written panel number or 0.

type Line struct {
	Type      LineType
	Character string
	Text      string
	Number    int
	LineNo    int // 1-based starting line number in the source
}

// Error represents a parse error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message) }
