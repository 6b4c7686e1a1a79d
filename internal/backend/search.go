/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"strings"

	"gocomicscript/internal/storage"
)

// Search runs q over the block table with tsvector matching and the same
// filters as the SQLite index, so both return comparable results.
func (s *Store) Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		t := place(q.Text)
		b.WriteString("SELECT d.script_id, COALESCE(s.title,''), d.block_type, d.page, d.logical, d.panel, d.pos, d.raw_text, ")
		b.WriteString("COALESCE(ts_headline('simple', d.raw_text, plainto_tsquery('simple', " + t + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM script_blocks d LEFT JOIN scripts s ON s.id = d.script_id ")
		b.WriteString("WHERE d.search_vector @@ plainto_tsquery('simple', " + t + ") ")
	} else {
		b.WriteString("SELECT d.script_id, COALESCE(s.title,''), d.block_type, d.page, d.logical, d.panel, d.pos, d.raw_text, '' ")
		b.WriteString("FROM script_blocks d LEFT JOIN scripts s ON s.id = d.script_id WHERE true ")
	}
	if id := strings.TrimSpace(q.ScriptID); id != "" {
		b.WriteString(" AND d.script_id = " + place(id) + " ")
	}
	if len(q.Types) > 0 {
		types := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			types = append(types, strings.ToLower(strings.TrimSpace(t)))
		}
		b.WriteString(" AND d.block_type = ANY (" + place(types) + ") ")
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		b.WriteString(" AND d.logical BETWEEN " + place(q.PageFrom) + " AND " + place(q.PageTo) + " ")
	} else if q.PageFrom > 0 {
		b.WriteString(" AND d.logical >= " + place(q.PageFrom) + " ")
	} else if q.PageTo > 0 {
		b.WriteString(" AND d.logical <= " + place(q.PageTo) + " ")
	}
	if sp := strings.ToLower(strings.TrimSpace(q.Speaker)); sp != "" {
		p := place(sp)
		b.WriteString(" AND ( lower(d.speaker) = " + p + " OR (d.block_type = 'character' AND lower(d.raw_text) = " + p + ") ) ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.script_id, d.pos ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	ctx, cancel := s.bound(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ScriptID, &r.Title, &r.Type, &r.Page, &r.Logical, &r.Panel, &r.Pos, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
