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
	"database/sql"
	"fmt"
	"strings"
)

// SearchQuery describes a search over indexed blocks.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Types restricts block types (panel, paragraph, character, dialogue, sfx).
// Speaker matches character cues and the dialogue that follows them.
// PageFrom/To select logical pages, inclusive; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	ScriptID string
	Types    []string
	Speaker  string
	PageFrom int
	PageTo   int
	Limit    int
	Offset   int
}

// SearchResult is one matching block.
// Snippet marks the matched terms with [ ] when Text was given.
type SearchResult struct {
	ScriptID string
	Title    string
	Type     string
	// Page is the 1-based physical sheet, Logical the printed page number.
	Page    int
	Logical int
	// Panel is the panel the block belongs to, 0 before the first panel.
	Panel   int
	Pos     int
	Text    string
	Snippet string
}

// Search runs q against the index. Without Text it lists blocks matching the
// filters in document order.
func (ix *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT b.script_id, COALESCE(s.title,''), b.type, b.page, b.logical, b.panel, b.pos, b.text, snippet(fts_blocks, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_blocks JOIN blocks b ON fts_blocks.rowid = b.block_id\n")
		sb.WriteString("LEFT JOIN scripts s ON s.id = b.script_id\n")
		sb.WriteString("WHERE fts_blocks MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT b.script_id, COALESCE(s.title,''), b.type, b.page, b.logical, b.panel, b.pos, b.text, ''\n")
		sb.WriteString("FROM blocks b LEFT JOIN scripts s ON s.id = b.script_id\nWHERE 1=1\n")
	}
	if id := strings.TrimSpace(q.ScriptID); id != "" {
		sb.WriteString(" AND b.script_id = ?\n")
		args = append(args, id)
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND b.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, strings.ToLower(strings.TrimSpace(t)))
		}
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		sb.WriteString(" AND b.logical BETWEEN ? AND ?\n")
		args = append(args, q.PageFrom, q.PageTo)
	} else if q.PageFrom > 0 {
		sb.WriteString(" AND b.logical >= ?\n")
		args = append(args, q.PageFrom)
	} else if q.PageTo > 0 {
		sb.WriteString(" AND b.logical <= ?\n")
		args = append(args, q.PageTo)
	}
	if s := strings.ToLower(strings.TrimSpace(q.Speaker)); s != "" {
		sb.WriteString(" AND ( lower(b.speaker) = ? OR (b.type = 'character' AND lower(b.text) = ?) )\n")
		args = append(args, s, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if useFTS {
		sb.WriteString("ORDER BY rank, b.script_id, b.pos\n")
	} else {
		sb.WriteString("ORDER BY b.script_id, b.pos\n")
	}
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.ScriptID, &r.Title, &r.Type, &r.Page, &r.Logical, &r.Panel, &r.Pos, &r.Text, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
