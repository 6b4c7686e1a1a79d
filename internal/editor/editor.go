/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is a headless host for script documents. It applies
// transactions, notifies the numbering and pagination passes, keeps undo
// history for user edits and runs deferred measurement through a Scheduler.
//
// An Editor is not safe for concurrent use. With the Loop scheduler every call
// must go through Loop.Do so edits and deferred cycles share one goroutine.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocomicscript/internal/commands"
	"gocomicscript/internal/doc"
	"gocomicscript/internal/edit"
	applog "gocomicscript/internal/log"
	"gocomicscript/internal/numbering"
	"gocomicscript/internal/pagination"
	"gocomicscript/internal/undo"
)

var (
	ErrDestroyed     = errors.New("editor destroyed")
	ErrDispatchLoop  = errors.New("nested dispatch limit reached")
	ErrNotApplicable = errors.New("command does not apply here")
)

// MaxDispatchDepth bounds transactions dispatched from inside plugin updates.
const MaxDispatchDepth = 8

// Options configures an Editor. Zero values select defaults.
type Options struct {
	// Measurer reports rendered page heights. Without one, pagination is off.
	Measurer pagination.Measurer
	Capacity float64
	// Scheduler runs deferred cycles; defaults to a ManualScheduler.
	Scheduler edit.Scheduler
	// History records user edits; defaults to a private manager.
	History *undo.Manager
	// Key identifies the script in History.
	Key    string
	Keymap commands.Keymap
	// Plugins run after the numbering and pagination passes.
	Plugins []edit.Plugin
	// OnCycle observes every completed pagination cycle.
	OnCycle func(start int, o pagination.Outcome)
}

// ChangeFunc observes document changes after all plugins ran.
type ChangeFunc func(st *edit.State, tr *edit.Transaction)

// Editor owns the current state of one script document.
type Editor struct {
	state     *edit.State
	plugins   []edit.Plugin
	sched     edit.Scheduler
	history   *undo.Manager
	key       string
	keymap    commands.Keymap
	listeners []ChangeFunc
	depth     int
	destroyed bool
	log       *slog.Logger
}

// New loads d, numbers its panels and arms the first pagination cycle. A nil
// document loads the default document.
func New(d *doc.Node, opts Options) *Editor {
	if d == nil {
		d = doc.DefaultDocument()
	}
	e := &Editor{
		state:   edit.NewState(doc.Normalize(d)),
		sched:   opts.Scheduler,
		history: opts.History,
		key:     opts.Key,
		keymap:  opts.Keymap,
		log:     applog.WithComponent("editor"),
	}
	if e.sched == nil {
		e.sched = NewManualScheduler()
	}
	if e.history == nil {
		e.history = undo.NewManager(undo.Config{MaxDepth: 200, MinInterval: 500 * time.Millisecond})
	}
	if e.keymap == nil {
		e.keymap = commands.DefaultKeymap()
	}
	e.plugins = append(e.plugins, numbering.NewPlugin())
	if opts.Measurer != nil {
		p := pagination.NewPaginator(pagination.NewEngine(opts.Measurer, opts.Capacity))
		p.OnCycle = opts.OnCycle
		e.plugins = append(e.plugins, p)
	}
	e.plugins = append(e.plugins, opts.Plugins...)
	for _, p := range e.plugins {
		if in, ok := p.(edit.Initializer); ok {
			in.Init(e)
		}
	}
	return e
}

// State returns the current state.
func (e *Editor) State() *edit.State { return e.state }

// Doc returns the current document.
func (e *Editor) Doc() *doc.Node { return e.state.Doc }

// IsDestroyed reports whether Destroy was called.
func (e *Editor) IsDestroyed() bool { return e.destroyed }

// Scheduler returns the scheduler deferred passes use.
func (e *Editor) Scheduler() edit.Scheduler { return e.sched }

// OnChange registers fn to run after every document change.
func (e *Editor) OnChange(fn ChangeFunc) { e.listeners = append(e.listeners, fn) }

// Dispatch applies tr, records it for undo when it is a tracked change and lets
// every plugin react. Plugins may dispatch further transactions.
func (e *Editor) Dispatch(tr *edit.Transaction) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if e.depth >= MaxDispatchDepth {
		e.log.Error("dispatch loop", slog.String("origin", string(tr.Origin())), slog.Int("depth", e.depth))
		return ErrDispatchLoop
	}
	prev := e.state
	next, err := prev.Apply(tr)
	if err != nil {
		return fmt.Errorf("apply %s transaction: %w", tr.Origin(), err)
	}
	if tr.DocChanged() && tr.AddToHistory() {
		// only typing coalesces; every command is its own undo step
		typing := tr.Origin() == edit.OriginInput
		if !typing {
			e.history.Break(e.key)
		}
		e.history.Record(e.key, undo.Snapshot{Doc: prev.Doc, Selection: prev.Selection, TS: tr.Time})
		if !typing {
			e.history.Break(e.key)
		}
	}
	e.state = next

	e.depth++
	defer func() { e.depth-- }()
	for _, p := range e.plugins {
		if e.destroyed {
			break
		}
		p.Update(e, prev, tr)
	}
	if tr.DocChanged() {
		for _, fn := range e.listeners {
			fn(e.state, tr)
		}
	}
	return nil
}

// Run applies a command to the current state.
func (e *Editor) Run(c commands.Command) error {
	if e.destroyed {
		return ErrDestroyed
	}
	tr, ok := c(e.state)
	if !ok {
		return ErrNotApplicable
	}
	return e.Dispatch(tr)
}

// HandleKey runs the binding for key. Enter and Backspace fall back to block
// splitting and deletion, Mod-z and Mod-Shift-z to history. It reports
// whether the key was handled.
func (e *Editor) HandleKey(key string) (bool, error) {
	if e.destroyed {
		return false, ErrDestroyed
	}
	key = commands.NormalizeKey(key)
	if tr, ok := e.keymap.Handle(key, e.state); ok {
		return true, e.Dispatch(tr)
	}
	var err error
	switch key {
	case commands.KeyEnter:
		err = e.SplitBlock()
	case commands.KeyBackspace:
		err = e.DeleteBackward()
	case "Mod-z":
		return e.Undo(), nil
	case "Mod-Shift-z", "Mod-y":
		return e.Redo(), nil
	default:
		return false, nil
	}
	if errors.Is(err, ErrNotApplicable) {
		return false, nil
	}
	return err == nil, err
}

// Undo restores the state before the newest tracked edit.
func (e *Editor) Undo() bool { return e.travel(e.history.Undo) }

// Redo reapplies the newest undone edit.
func (e *Editor) Redo() bool { return e.travel(e.history.Redo) }

func (e *Editor) travel(pop func(string, undo.Snapshot) (undo.Snapshot, bool)) bool {
	if e.destroyed {
		return false
	}
	cur := undo.Snapshot{Doc: e.state.Doc, Selection: e.state.Selection, TS: time.Now()}
	s, ok := pop(e.key, cur)
	if !ok {
		return false
	}
	tr := e.state.Tr().SetOrigin(edit.OriginHistory).SetAddToHistory(false)
	if err := tr.Replace(0, e.state.Doc.ContentSize(), s.Doc.Content...); err != nil {
		e.log.Error("history restore failed", slog.Any("err", err))
		return false
	}
	tr.SetSelection(s.Selection).ScrollIntoView()
	if err := e.Dispatch(tr); err != nil {
		e.log.Error("history dispatch failed", slog.Any("err", err))
		return false
	}
	return true
}

// CanUndo reports whether there is an edit to undo.
func (e *Editor) CanUndo() bool { return e.history.CanUndo(e.key) }

// CanRedo reports whether there is an edit to redo.
func (e *Editor) CanRedo() bool { return e.history.CanRedo(e.key) }

// Destroy tears the editor down. Pending deferred work is dropped and later
// dispatches fail with ErrDestroyed.
func (e *Editor) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.sched.Stop()
	e.history.Clear(e.key)
}
