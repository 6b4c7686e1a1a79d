/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"github.com/charmbracelet/lipgloss"

	"gocomicscript/internal/doc"
)

// Theme centralizes the Lip Gloss styles of the terminal view.
type Theme struct {
	Page         lipgloss.Style
	CurrentPage  lipgloss.Style
	Label        lipgloss.Style
	Continuation lipgloss.Style
	Meta         lipgloss.Style
	Cursor       lipgloss.Style
	Blocks       map[doc.NodeType]lipgloss.Style
}

// DefaultTheme follows the editor colours: amber panel labels, muted
// continuation sheets.
func DefaultTheme() Theme {
	page := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	amber := lipgloss.Color("208")
	return Theme{
		Page:         page.Copy().BorderForeground(lipgloss.Color("240")),
		CurrentPage:  page.Copy().BorderForeground(amber),
		Label:        lipgloss.NewStyle().Bold(true).Underline(true),
		Continuation: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244")),
		Meta:         lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Cursor:       lipgloss.NewStyle().Foreground(amber).Bold(true),
		Blocks: map[doc.NodeType]lipgloss.Style{
			doc.TypeHeader:    lipgloss.NewStyle().Bold(true),
			doc.TypePanel:     lipgloss.NewStyle().Bold(true).Foreground(amber),
			doc.TypeCharacter: lipgloss.NewStyle().Bold(true),
			doc.TypeSfx:       lipgloss.NewStyle().Italic(true),
		},
	}
}

// PlainTheme draws borders but no colours or text attributes.
func PlainTheme() Theme {
	page := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	return Theme{
		Page:         page,
		CurrentPage:  page.Copy().Border(lipgloss.DoubleBorder()),
		Label:        lipgloss.NewStyle(),
		Continuation: lipgloss.NewStyle(),
		Meta:         lipgloss.NewStyle(),
		Cursor:       lipgloss.NewStyle(),
	}
}

func (t Theme) block(tp doc.NodeType) lipgloss.Style {
	if s, ok := t.Blocks[tp]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
