/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package edit

// View is the live editor a pass runs against.
type View interface {
	State() *State
	Dispatch(tr *Transaction) error
	// IsDestroyed reports whether the editor was torn down. Deferred work must
	// check it before touching the state.
	IsDestroyed() bool
	Scheduler() Scheduler
}

// Plugin observes every applied transaction. Update runs synchronously after the
// new state is installed; prev is the state the transaction was applied to.
type Plugin interface {
	Update(v View, prev *State, tr *Transaction)
}

// Initializer is implemented by plugins that need to run once when attached.
type Initializer interface {
	Init(v View)
}

// Scheduler runs work after the host has rendered the current state.
type Scheduler interface {
	// Defer schedules fn. Work pending under the same key is replaced.
	Defer(key string, fn func())
	// Cancel drops pending work under key.
	Cancel(key string)
	// Stop drops all pending work; later Defer calls are ignored.
	Stop()
}
