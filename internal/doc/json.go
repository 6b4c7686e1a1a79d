/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed script.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// ValidationError lists the JSON Schema violations of a serialized document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid script document: " + strings.Join(e.Problems, "; ")
}

// Decode parses a serialized document. Empty input and JSON null decode to the
// default document. The result is validated against the embedded JSON Schema,
// normalized and checked for structural rules.
func Decode(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultDocument(), nil
	}
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if !res.Valid() {
		ve := &ValidationError{}
		for _, e := range res.Errors() {
			ve.Problems = append(ve.Problems, e.String())
		}
		return nil, ve
	}
	var n Node
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d := Normalize(&n)
	if err := Check(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Encode serializes a document in its compact interchange form.
func Encode(d *Node) ([]byte, error) { return json.Marshal(d) }

// EncodeIndent serializes a document for files meant to be read by people.
func EncodeIndent(d *Node) ([]byte, error) { return json.MarshalIndent(d, "", "  ") }
