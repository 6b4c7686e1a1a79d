/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// ScriptFamily is the family name every script block style asks for.
const ScriptFamily = "script"

// FontLibrary stores parsed OpenType fonts by family, weight and slant, and
// caches the faces built from them. Measuring runs after every edit, so faces
// are created once per size.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	weight int
	italic bool
}

type faceKey struct {
	font *opentype.Font
	size float32
	dpi  float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*opentype.Font), faces: make(map[faceKey]font.Face)}
}

// LoadTTF loads a font file under the given family, weight and slant.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, weight, italic, data)
}

// Add parses font data and registers it.
func (fl *FontLibrary) Add(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

// Len reports how many fonts are registered.
func (fl *FontLibrary) Len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return len(fl.fonts)
}

// find prefers an exact match, then the same slant at the closest weight,
// then any font of the family.
func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	var best *opentype.Font
	bestDist := -1
	for k, f := range fl.fonts {
		if k.family != spec.Family {
			continue
		}
		dist := abs(k.weight - spec.Weight)
		if k.italic != spec.Italic {
			dist += 1000
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = f, dist
		}
	}
	return best
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) (font.Face, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	f := fl.find(spec)
	if f == nil {
		return nil, false
	}
	key := faceKey{font: f, size: spec.SizePt, dpi: dpi}
	if face, ok := fl.faces[key]; ok {
		return face, true
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, false
	}
	if fl.faces == nil {
		fl.faces = make(map[faceKey]font.Face)
	}
	fl.faces[key] = face
	return face, true
}

// Close releases cached faces.
func (fl *FontLibrary) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	for k, f := range fl.faces {
		_ = f.Close()
		delete(fl.faces, k)
	}
	return nil
}

// OTProvider resolves FontSpec through a FontLibrary and falls back to another
// Provider when no font of the family is loaded.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 96 if zero, matching CSS pixels
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 96
	}
	if face, ok := p.Lib.face(spec, dpi); ok {
		return face, faceMetrics(face)
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
