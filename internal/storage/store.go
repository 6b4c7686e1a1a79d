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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/domain"
)

// ErrNotFound is returned when no script is stored under an id.
var ErrNotFound = errors.New("script not found")

// Store keeps script records. Save stamps LastModified; List returns the
// newest first.
type Store interface {
	Save(ctx context.Context, s domain.Script) (domain.Script, error)
	Load(ctx context.Context, id string) (domain.Script, error)
	List(ctx context.Context) ([]domain.Script, error)
	Delete(ctx context.Context, id string) error
}

// Meta is the metadata saved next to a document.
type Meta struct {
	Title         string
	SeriesTitle   string
	ChapterNumber string
}

// NewID returns a fresh script id. Ids are time ordered.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate script id: %w", err)
	}
	return id.String(), nil
}

// SaveDocument serializes d and saves it under id with the given metadata.
func SaveDocument(ctx context.Context, st Store, id string, d *doc.Node, meta Meta) (domain.Script, error) {
	if d == nil {
		return domain.Script{}, errors.New("nil document")
	}
	data, err := doc.Encode(d)
	if err != nil {
		return domain.Script{}, fmt.Errorf("encode document: %w", err)
	}
	return st.Save(ctx, domain.Script{
		ID:            id,
		Title:         strings.TrimSpace(meta.Title),
		Content:       data,
		SeriesTitle:   strings.TrimSpace(meta.SeriesTitle),
		ChapterNumber: domain.Chapter(strings.TrimSpace(meta.ChapterNumber)),
	})
}

// LoadDocument loads and decodes the script stored under id. A script that was
// never saved, or that carries no content, yields the default document.
func LoadDocument(ctx context.Context, st Store, id string) (*doc.Node, domain.Script, error) {
	s, err := st.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return doc.DefaultDocument(), domain.Script{ID: id}, nil
	}
	if err != nil {
		return nil, domain.Script{}, err
	}
	d, err := doc.Decode(s.Content)
	if err != nil {
		return nil, s, fmt.Errorf("script %s: %w", id, err)
	}
	return d, s, nil
}

// MetaOf returns the metadata of a stored record.
func MetaOf(s domain.Script) Meta {
	return Meta{Title: s.Title, SeriesTitle: s.SeriesTitle, ChapterNumber: string(s.ChapterNumber)}
}

func validID(id string) error {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return errors.New("script id is required")
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`):
		return fmt.Errorf("invalid script id %q", id)
	}
	return nil
}

// clock is replaced in tests.
var clock = time.Now
