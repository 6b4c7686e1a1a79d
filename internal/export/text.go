/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/script"
)

// WriteText writes d in the plain-text script syntax, preceded by the metadata
// as note lines. The output imports back into the same document.
func WriteText(w io.Writer, d *doc.Node, meta Meta) error {
	var b strings.Builder
	if t := strings.TrimSpace(meta.Title); t != "" {
		fmt.Fprintf(&b, "; title: %s\n", t)
	}
	if s := strings.TrimSpace(meta.SeriesTitle); s != "" {
		fmt.Fprintf(&b, "; series: %s\n", s)
	}
	if c := strings.TrimSpace(meta.ChapterNumber); c != "" {
		fmt.Fprintf(&b, "; chapter: %s\n", c)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(script.Format(d))
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// ReadMeta collects the metadata note lines WriteText puts before the script.
// Reading stops at the first line that is neither blank nor a note.
func ReadMeta(text string) Meta {
	var m Meta
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";") {
			break
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line[1:]), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			m.Title = value
		case "series":
			m.SeriesTitle = value
		case "chapter":
			m.ChapterNumber = value
		}
	}
	return m
}

// FileName builds the default export file name: series, zero-padded chapter
// and title, e.g. "night-city-03-the-docks-dark.pdf".
func FileName(meta Meta, theme Theme, ext string) string {
	var parts []string
	if s := slug.Make(meta.SeriesTitle); s != "" {
		parts = append(parts, s)
	}
	if c := strings.TrimSpace(meta.ChapterNumber); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			c = fmt.Sprintf("%02d", n)
		}
		if c = slug.Make(c); c != "" {
			parts = append(parts, c)
		}
	}
	title := slug.Make(meta.Title)
	if title == "" {
		title = "untitled"
	}
	parts = append(parts, title)
	if theme == ThemeDark {
		parts = append(parts, "dark")
	}
	return strings.Join(parts, "-") + "." + strings.TrimPrefix(ext, ".")
}

// BackupFileName is the default name of a backup archive written on day t.
func BackupFileName(t time.Time) string {
	return "backup-gocomicscript-" + t.Format("2006-01-02") + ".json"
}
