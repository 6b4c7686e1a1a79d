/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package edit

import (
	"errors"
	"fmt"

	"gocomicscript/internal/doc"
)

// ErrInvalidStep is wrapped by every step that cannot be applied to a document.
var ErrInvalidStep = errors.New("invalid step")

// Step is one atomic change to a document. Applying a step never mutates its input.
type Step interface {
	Apply(d *doc.Node) (*doc.Node, error)
	Map() StepMap
}

// ReplaceStep replaces the range [From, To) with Content. Both ends must share a
// parent. Inside a block Content is text runs; inside a page it is blocks; at the
// top level it is pages.
type ReplaceStep struct {
	From, To int
	Content  []*doc.Node
}

func (s ReplaceStep) Apply(d *doc.Node) (*doc.Node, error) {
	if s.From > s.To {
		return nil, fmt.Errorf("%w: replace range %d..%d is inverted", ErrInvalidStep, s.From, s.To)
	}
	rf, err := d.Resolve(s.From)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}
	rt, err := d.Resolve(s.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}
	depth := rf.Depth()
	if rt.Depth() != depth || rt.Start(depth) != rf.Start(depth) {
		return nil, fmt.Errorf("%w: replace range %d..%d crosses node boundaries", ErrInvalidStep, s.From, s.To)
	}
	parent := rf.Parent()
	var np *doc.Node
	if parent.IsTextblock() {
		for _, c := range s.Content {
			if !c.IsText() {
				return nil, fmt.Errorf("%w: %s inserted into text of %s", ErrInvalidStep, c.Type, parent.Type)
			}
		}
		np = parent.WithContent(doc.ReplaceInline(parent.Content, rf.ParentOffset, rt.ParentOffset, s.Content))
	} else {
		np = parent.Splice(rf.Index(depth), rt.Index(depth), s.Content...)
	}
	return commit(rebuild(rf, depth, np))
}

func (s ReplaceStep) Map() StepMap {
	n := 0
	for _, c := range s.Content {
		n += c.NodeSize()
	}
	return StepMap{Pos: s.From, OldSize: s.To - s.From, NewSize: n}
}

// AttrStep sets the attributes of the panel directly after Pos.
type AttrStep struct {
	Pos   int
	Attrs doc.Attrs
}

func (s AttrStep) Apply(d *doc.Node) (*doc.Node, error) {
	rp, node, err := nodeAfter(d, s.Pos)
	if err != nil {
		return nil, err
	}
	if !doc.IsPanel(node) {
		return nil, fmt.Errorf("%w: %s at %d has no attributes", ErrInvalidStep, node.Type, s.Pos)
	}
	depth := rp.Depth()
	np := rp.Parent().ReplaceChild(rp.Index(depth), node.WithAttrs(s.Attrs))
	return commit(rebuild(rp, depth, np))
}

func (s AttrStep) Map() StepMap { return StepMap{} }

// SetTypeStep converts the block directly after Pos to Type, keeping its text.
type SetTypeStep struct {
	Pos  int
	Type doc.NodeType
}

func (s SetTypeStep) Apply(d *doc.Node) (*doc.Node, error) {
	if !doc.IsBlockType(s.Type) {
		return nil, fmt.Errorf("%w: %s is not a block type", ErrInvalidStep, s.Type)
	}
	rp, node, err := nodeAfter(d, s.Pos)
	if err != nil {
		return nil, err
	}
	if !node.IsTextblock() {
		return nil, fmt.Errorf("%w: %s at %d is not a block", ErrInvalidStep, node.Type, s.Pos)
	}
	depth := rp.Depth()
	np := rp.Parent().ReplaceChild(rp.Index(depth), node.WithType(s.Type))
	return commit(rebuild(rp, depth, np))
}

func (s SetTypeStep) Map() StepMap { return StepMap{} }

func nodeAfter(d *doc.Node, pos int) (*doc.ResolvedPos, *doc.Node, error) {
	rp, err := d.Resolve(pos)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}
	if rp.Parent().IsTextblock() {
		return nil, nil, fmt.Errorf("%w: %d is inside text, not before a node", ErrInvalidStep, pos)
	}
	node := rp.Parent().Child(rp.Index(rp.Depth()))
	if node == nil {
		return nil, nil, fmt.Errorf("%w: no node after %d", ErrInvalidStep, pos)
	}
	return rp, node, nil
}

// rebuild copies every ancestor above depth so that it points at the new child.
func rebuild(rp *doc.ResolvedPos, depth int, np *doc.Node) *doc.Node {
	for d := depth - 1; d >= 0; d-- {
		np = rp.Node(d).ReplaceChild(rp.Index(d), np)
	}
	return np
}

func commit(d *doc.Node) (*doc.Node, error) {
	if err := doc.Check(d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}
	return d, nil
}
