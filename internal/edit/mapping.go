/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package edit

// StepMap records how one step moved positions: the range [Pos, Pos+OldSize)
// was replaced by NewSize positions.
type StepMap struct {
	Pos     int
	OldSize int
	NewSize int
}

// MapResult is a mapped position.
type MapResult struct {
	Pos int
	// Deleted is set when the original position was strictly inside a removed range.
	Deleted bool
}

// Map moves pos across the step. assoc decides on which side of an insertion at
// pos the result lands: assoc < 0 stays before it, otherwise it moves after.
func (m StepMap) Map(pos, assoc int) MapResult {
	if m.OldSize == 0 && m.NewSize == 0 {
		return MapResult{Pos: pos}
	}
	start, end := m.Pos, m.Pos+m.OldSize
	switch {
	case pos < start:
		return MapResult{Pos: pos}
	case pos > end:
		return MapResult{Pos: pos + m.NewSize - m.OldSize}
	}
	side := assoc
	if m.OldSize > 0 {
		if pos == start {
			side = -1
		} else if pos == end {
			side = 1
		}
	}
	res := MapResult{Pos: start, Deleted: pos > start && pos < end}
	if side >= 0 {
		res.Pos = start + m.NewSize
	}
	return res
}

// Mapping is the ordered list of step maps of a transaction.
type Mapping struct {
	maps []StepMap
}

// Append adds a step map.
func (m *Mapping) Append(sm StepMap) { m.maps = append(m.maps, sm) }

// Len returns the number of step maps.
func (m *Mapping) Len() int { return len(m.maps) }

// Map moves pos through every step in order.
func (m *Mapping) Map(pos, assoc int) int { return m.MapResult(pos, assoc).Pos }

// MapResult moves pos through every step and reports whether it was deleted on the way.
func (m *Mapping) MapResult(pos, assoc int) MapResult {
	res := MapResult{Pos: pos}
	for _, sm := range m.maps {
		r := sm.Map(res.Pos, assoc)
		res.Pos = r.Pos
		res.Deleted = res.Deleted || r.Deleted
	}
	return res
}
