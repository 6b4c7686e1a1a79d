/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gocomicscript/internal/commands"
	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	"gocomicscript/internal/editor"
	"gocomicscript/internal/pagination"
)

// settleTimeout bounds how long a command waits for pagination to finish.
const settleTimeout = 30 * time.Second

// session runs one editor on a scheduler loop. Every editor call goes through do.
type session struct {
	loop   *editor.Loop
	ed     *editor.Editor
	cycles int
}

func (e *localEnv) newSession(d *doc.Node, key string) (*session, error) {
	m, capacity, _, err := e.measurer()
	if err != nil {
		return nil, err
	}
	s := &session{loop: editor.NewLoop(e.cfg.Editor.ReflowDelay())}
	err = s.loop.Do(func() {
		s.ed = editor.New(d, editor.Options{
			Measurer:  m,
			Capacity:  capacity,
			Scheduler: s.loop,
			Key:       key,
			OnCycle:   func(int, pagination.Outcome) { s.cycles++ },
		})
	})
	if err != nil {
		s.loop.Stop()
		return nil, err
	}
	return s, nil
}

// do runs fn on the loop. A panic in fn is raised again on the caller's
// goroutine so crash recovery sees it.
func (s *session) do(fn func(ed *editor.Editor) error) error {
	var (
		err error
		p   any
	)
	lerr := s.loop.Do(func() {
		defer func() { p = recover() }()
		err = fn(s.ed)
	})
	if p != nil {
		panic(p)
	}
	if lerr != nil {
		return lerr
	}
	return err
}

// settle waits for the deferred pagination cycles and returns the document.
func (s *session) settle(ctx context.Context) (*doc.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := s.loop.Settle(ctx); err != nil {
		return nil, fmt.Errorf("pagination did not settle: %w", err)
	}
	var d *doc.Node
	err := s.do(func(ed *editor.Editor) error { d = ed.Doc(); return nil })
	return d, err
}

func (s *session) close() {
	_ = s.loop.Do(s.ed.Destroy)
	s.loop.Stop()
}

// keyStep is one argument of the keys command.
type keyStep struct {
	kind string // "key", "text", "paste", "cursor"
	arg  string
	pos  int
}

// parseKeySteps reads key names, "text:..." and "paste:..." insertions, and
// "@N" or "@end" cursor moves.
func parseKeySteps(args []string) ([]keyStep, error) {
	steps := make([]keyStep, 0, len(args))
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "text:"):
			steps = append(steps, keyStep{kind: "text", arg: strings.TrimPrefix(a, "text:")})
		case strings.HasPrefix(a, "paste:"):
			steps = append(steps, keyStep{kind: "paste", arg: strings.ReplaceAll(strings.TrimPrefix(a, "paste:"), `\n`, "\n")})
		case a == "complete" || strings.HasPrefix(a, "complete:"):
			steps = append(steps, keyStep{kind: "complete", arg: strings.TrimPrefix(strings.TrimPrefix(a, "complete"), ":")})
		case a == "@end":
			steps = append(steps, keyStep{kind: "cursor", pos: -1})
		case strings.HasPrefix(a, "@"):
			n, err := strconv.Atoi(a[1:])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("bad cursor position %q", a)
			}
			steps = append(steps, keyStep{kind: "cursor", pos: n})
		case strings.TrimSpace(a) == "":
			return nil, fmt.Errorf("empty key")
		default:
			steps = append(steps, keyStep{kind: "key", arg: a})
		}
	}
	return steps, nil
}

// apply runs one step against the editor. Unhandled keys are an error so a
// typo does not pass silently.
func (k keyStep) apply(ed *editor.Editor) error {
	switch k.kind {
	case "text":
		return ed.InsertText(k.arg)
	case "paste":
		return ed.Paste(k.arg)
	case "cursor":
		pos := k.pos
		if pos < 0 {
			pos = ed.Doc().ContentSize() - 2
		}
		return ed.SetCursor(pos)
	case "complete":
		cmd := commands.AcceptCharacterSuggestion
		if k.arg != "" {
			cmd = func(st *edit.State) (*edit.Transaction, bool) { return commands.CompleteCharacter(st, k.arg) }
		}
		if err := ed.Run(cmd); err != nil {
			return fmt.Errorf("complete %q: %w", k.arg, err)
		}
		return nil
	default:
		ok, err := ed.HandleKey(k.arg)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q does not apply here", k.arg)
		}
		return nil
	}
}
