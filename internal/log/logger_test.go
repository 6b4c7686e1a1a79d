/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitAndStructuredLoggingToFile verifies that Init with a file handler writes JSON logs
// and that static and contextual attributes are present.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "gcs_log.json")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &console})
	t.Cleanup(func() { Init(Options{Level: "info", Writer: &bytes.Buffer{}}) })

	l := WithOperation(WithComponent("testcomp"), "op1")
	ctx := ContextWith(context.Background(), slog.String("script", "s-1"))
	l.InfoContext(ctx, "hello world", slog.String("k", "v"))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != AppName {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "testcomp" || m["op"] != "op1" {
		t.Fatalf("component/op mismatch: %v %v", m["component"], m["op"])
	}
	if m["script"] != "s-1" {
		t.Fatalf("context attr missing: %v", m["script"])
	}
	if m["msg"] != "hello world" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	if !strings.Contains(console.String(), "hello world") {
		t.Fatalf("console handler did not receive the record")
	}
}

func TestPrettyConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "console", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "info", Writer: &bytes.Buffer{}}) })

	WithComponent("pagination").Info("relocated", slog.Int("page", 3), slog.String("dest", "new page"))
	WithComponent("pagination").Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, " INF [pagination] relocated page=3 dest=\"new page\"") {
		t.Fatalf("unexpected console line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record printed at info level: %q", out)
	}

	SetLevel("debug")
	WithComponent("pagination").Debug("now visible")
	if !strings.Contains(buf.String(), "DBG [pagination] now visible") {
		t.Fatalf("SetLevel did not take effect: %q", buf.String())
	}
}

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("GCS_LOG_LEVEL", "warn")
	t.Setenv("GCS_LOG_FORMAT", "json")
	t.Setenv("GCS_LOG_SOURCE", "true")
	t.Setenv("GCS_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("GCS_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
