/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"gocomicscript/internal/domain"
	applog "gocomicscript/internal/log"
)

// ErrInvalidBackup is returned when a backup is not a JSON array of scripts.
var ErrInvalidBackup = errors.New("invalid backup format")

// ExportBackup writes every stored script to w as one JSON array and returns
// the number written.
func ExportBackup(ctx context.Context, st Store, w io.Writer) (int, error) {
	all, err := st.List(ctx)
	if err != nil {
		return 0, err
	}
	if all == nil {
		all = []domain.Script{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal backup: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return 0, fmt.Errorf("write backup: %w", err)
	}
	return len(all), nil
}

// ImportBackup merges the scripts of a backup into st: records are added or
// replaced by id, nothing is deleted. Records without id or content are
// skipped. It returns the number of scripts saved.
func ImportBackup(ctx context.Context, st Store, r io.Reader) (int, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	var items []domain.Script
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "backup_import")
	count := 0
	for _, s := range items {
		if !s.Valid() {
			continue
		}
		if err := validID(s.ID); err != nil {
			l.Warn("skip backup record", slog.Any("err", err))
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := st.Save(ctx, s); err != nil {
			return count, fmt.Errorf("restore %s: %w", s.ID, err)
		}
		count++
	}
	l.Info("backup imported", slog.Int("scripts", count), slog.Int("records", len(items)))
	return count, nil
}

// Series groups the scripts of one series.
type Series struct {
	Title   string
	Scripts []domain.Script
}

// SeriesChapters groups scripts by series title. Series and chapters are in
// natural order ("Chapter 2" before "Chapter 10"); scripts without a series
// come last under an empty title.
func SeriesChapters(scripts []domain.Script) []Series {
	idx := map[string]int{}
	var out []Series
	for _, s := range scripts {
		title := strings.TrimSpace(s.SeriesTitle)
		key := strings.ToLower(title)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, Series{Title: title})
		}
		out[i].Scripts = append(out[i].Scripts, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Title, out[j].Title
		if (a == "") != (b == "") {
			return b == ""
		}
		return natural.Less(strings.ToLower(a), strings.ToLower(b))
	})
	for _, se := range out {
		sc := se.Scripts
		sort.SliceStable(sc, func(i, j int) bool {
			a, b := string(sc[i].ChapterNumber), string(sc[j].ChapterNumber)
			if a != b {
				if (a == "") != (b == "") {
					return b == ""
				}
				return natural.Less(a, b)
			}
			return natural.Less(strings.ToLower(sc[i].DisplayTitle()), strings.ToLower(sc[j].DisplayTitle()))
		})
	}
	return out
}
