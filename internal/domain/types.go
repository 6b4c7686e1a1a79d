/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Script is one saved comic script: metadata plus the serialized document.
// It serializes to the record layout used by saved files and backups.
type Script struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
	// LastModified is milliseconds since the Unix epoch.
	LastModified  int64   `json:"lastModified"`
	SeriesTitle   string  `json:"seriesTitle,omitempty"`
	ChapterNumber Chapter `json:"chapterNumber,omitempty"`
}

// Chapter is a chapter label. Older records store it as a number.
type Chapter string

// UnmarshalJSON accepts a string, a number or null.
func (c *Chapter) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Chapter(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Chapter(n.String())
	return nil
}

// Int returns the chapter as a number, if it is one.
func (c Chapter) Int() (int, bool) {
	n, err := strconv.Atoi(string(c))
	return n, err == nil
}

// Modified returns LastModified as a time.
func (s Script) Modified() time.Time { return time.UnixMilli(s.LastModified) }

// Touch sets LastModified to t.
func (s *Script) Touch(t time.Time) { s.LastModified = t.UnixMilli() }

// DisplayTitle returns the title, or a placeholder for untitled scripts.
func (s Script) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "Untitled"
}

// HasContent reports whether the record carries a document.
func (s Script) HasContent() bool {
	c := bytes.TrimSpace(s.Content)
	return len(c) > 0 && !bytes.Equal(c, []byte("null"))
}

// Valid reports whether a record is complete enough to be restored from a backup.
func (s Script) Valid() bool { return s.ID != "" && s.HasContent() }
