/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gocomicscript/internal/domain"
)

func TestBackupRoundTripMerges(t *testing.T) {
	stepClock(t)
	ctx := context.Background()
	src := newStore(t)
	for _, id := range []string{"a", "b"} {
		if _, err := SaveDocument(ctx, src, id, scriptDoc(id), Meta{Title: strings.ToUpper(id)}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	var buf bytes.Buffer
	n, err := ExportBackup(ctx, src, &buf)
	if err != nil || n != 2 {
		t.Fatalf("export = %d, %v", n, err)
	}

	dst := newStore(t)
	if _, err := SaveDocument(ctx, dst, "a", scriptDoc("old"), Meta{Title: "old"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := SaveDocument(ctx, dst, "keep", scriptDoc("keep"), Meta{Title: "keep"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := ImportBackup(ctx, dst, &buf)
	if err != nil || got != 2 {
		t.Fatalf("import = %d, %v", got, err)
	}
	all, _ := dst.List(ctx)
	if len(all) != 3 {
		t.Fatalf("after merge %d scripts, want 3", len(all))
	}
	a, _ := dst.Load(ctx, "a")
	if a.Title != "A" {
		t.Fatalf("imported record did not replace the local one: %q", a.Title)
	}
}

func TestImportBackupSkipsIncompleteRecords(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)
	in := `[
		{"id": "ok", "title": "T", "content": {"type": "doc", "content": [{"type": "page", "content": [{"type": "paragraph"}]}]}, "lastModified": 1, "chapterNumber": 7},
		{"id": "", "title": "no id", "content": {"type": "doc"}},
		{"id": "nocontent", "title": "x"},
		{"id": "../evil", "title": "x", "content": {"type": "doc"}}
	]`
	n, err := ImportBackup(ctx, dst, strings.NewReader(in))
	if err != nil || n != 1 {
		t.Fatalf("import = %d, %v", n, err)
	}
	s, err := dst.Load(ctx, "ok")
	if err != nil || s.ChapterNumber != "7" {
		t.Fatalf("load = %+v, %v", s, err)
	}
	if _, err := ImportBackup(ctx, dst, strings.NewReader(`{"id": "x"}`)); !errors.Is(err, ErrInvalidBackup) {
		t.Fatalf("object backup err = %v", err)
	}
	if _, err := ImportBackup(ctx, dst, strings.NewReader(`garbage`)); !errors.Is(err, ErrInvalidBackup) {
		t.Fatalf("garbage backup err = %v", err)
	}
}

func TestSeriesChaptersNaturalOrder(t *testing.T) {
	in := []domain.Script{
		{ID: "1", Title: "Ten", SeriesTitle: "Night City", ChapterNumber: "10"},
		{ID: "2", Title: "Loose"},
		{ID: "3", Title: "Two", SeriesTitle: "night city", ChapterNumber: "2"},
		{ID: "4", Title: "Pilot", SeriesTitle: "Apex 9"},
		{ID: "5", Title: "One", SeriesTitle: "Apex 10", ChapterNumber: "1"},
	}
	out := SeriesChapters(in)
	var got []string
	for _, s := range out {
		ids := ""
		for _, sc := range s.Scripts {
			ids += sc.ID
		}
		got = append(got, s.Title+":"+ids)
	}
	want := "Apex 9:4|Apex 10:5|Night City:31|:2"
	if strings.Join(got, "|") != want {
		t.Fatalf("SeriesChapters = %q, want %q", strings.Join(got, "|"), want)
	}
}
