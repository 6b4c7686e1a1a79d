/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	applog "gocomicscript/internal/log"
	"gocomicscript/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Go Comic Script Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInStorageBackups(t *testing.T) {
	root := t.TempDir()
	path, err := writeReport(&Session{Dir: root, ScriptID: "s1"}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("Script: s1")) {
		t.Fatalf("report does not name the script: %s", b)
	}
}

// silence swaps stderr and the logger for the duration of a test.
func silence(t *testing.T) {
	t.Helper()
	applog.Discard()
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	})
}

// TestRecoverWritesReportAndAutosaves ensures Recover handles a panic, writes a report,
// runs the autosave and does not terminate the test process due to injected exitFn.
func TestRecoverWritesReportAndAutosaves(t *testing.T) {
	silence(t)
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	saved := false
	func() {
		defer Recover(&Session{Dir: root, ScriptID: "s1", Autosave: func() error { saved = true; return nil }})
		panic("boom")
	}()

	if !saved {
		t.Fatalf("autosave did not run")
	}
	files, _ := filepath.Glob(filepath.Join(root, storage.BackupsDirName, "crash-*.log"))
	if len(files) != 1 {
		t.Fatalf("crash reports = %v", files)
	}
	b, err := os.ReadFile(files[0])
	if err != nil || !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s, %v", b, err)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverSurvivesFailingAutosave(t *testing.T) {
	silence(t)
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	for _, fn := range []func() error{
		func() error { return errors.New("disk full") },
		func() error { panic("again") },
	} {
		called = 0
		func() {
			defer Recover(&Session{Dir: t.TempDir(), Autosave: fn})
			panic("boom")
		}()
		if called != 2 {
			t.Fatalf("expected exit code 2, got %d", called)
		}
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	oldExit := exitFn
	exitFn = func(int) { t.Fatalf("exit called without a panic") }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
}
