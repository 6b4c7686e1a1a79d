/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScriptJSONAcceptsLegacyChapterNumbers(t *testing.T) {
	for in, want := range map[string]Chapter{
		`{"id":"a","title":"T","content":{},"lastModified":1,"chapterNumber":3}`:      "3",
		`{"id":"a","title":"T","content":{},"lastModified":1,"chapterNumber":" 12 "}`: "12",
		`{"id":"a","title":"T","content":{},"lastModified":1,"chapterNumber":null}`:   "",
		`{"id":"a","title":"T","content":{},"lastModified":1}`:                        "",
	} {
		var s Script
		if err := json.Unmarshal([]byte(in), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if s.ChapterNumber != want {
			t.Fatalf("chapter = %q, want %q", s.ChapterNumber, want)
		}
	}
	if n, ok := Chapter("7").Int(); !ok || n != 7 {
		t.Fatalf("Int = %d, %v", n, ok)
	}
	if _, ok := Chapter("7b").Int(); ok {
		t.Fatalf("7b is not a number")
	}
}

func TestScriptHelpers(t *testing.T) {
	var s Script
	if s.Valid() || s.HasContent() {
		t.Fatalf("empty record must not be valid")
	}
	s.ID, s.Content = "x", json.RawMessage(`null`)
	if s.Valid() {
		t.Fatalf("null content must not be valid")
	}
	s.Content = json.RawMessage(`{"type":"doc"}`)
	if !s.Valid() {
		t.Fatalf("expected valid record")
	}
	if s.DisplayTitle() != "Untitled" {
		t.Fatalf("DisplayTitle = %q", s.DisplayTitle())
	}
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Touch(ts)
	if !s.Modified().Equal(ts) {
		t.Fatalf("Modified = %v", s.Modified())
	}
}
