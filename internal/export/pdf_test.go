/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocomicscript/internal/doc"
	"gocomicscript/internal/script"
)

func block(t doc.NodeType, s string) *doc.Node { return doc.NewBlock(t, s) }

func sampleDoc() *doc.Node {
	return doc.NewDoc(
		doc.NewPage(
			block(doc.TypeHeader, "PAGE 1"),
			doc.NewPanel(1, "Rooftop"),
			block(doc.TypeParagraph, "Rain."),
			block(doc.TypeParagraph, "  "),
			block(doc.TypeCharacter, "bob"),
			block(doc.TypeDialogue, "Hi"),
			block(doc.TypeSfx, "krak"),
		),
		doc.NewPage(doc.NewPanel(2, "Alley")),
		doc.NewPage(block(doc.TypeHeader, ""), doc.NewPanel(0, "")),
	)
}

var meta = Meta{Title: "The Docks!", SeriesTitle: "Night City", ChapterNumber: "3"}

func TestSheets(t *testing.T) {
	sh := Sheets(sampleDoc(), meta)
	if len(sh) != 3 {
		t.Fatalf("sheets = %d, want 3", len(sh))
	}
	if sh[0].Heading != "NIGHT CITY #3 PAGE 1 - PANELS: 1" {
		t.Fatalf("heading 0 = %q", sh[0].Heading)
	}
	var got []string
	for _, it := range sh[0].Items {
		got = append(got, it.Text)
	}
	if strings.Join(got, "|") != "PANEL 1 - ROOFTOP|Rain.|BOB|Hi|KRAK" {
		t.Fatalf("items = %q", got)
	}
	if sh[1].Heading != "NIGHT CITY #3 PAGE 1 (CONT.) - PANELS: 1" || sh[1].Items[0].Text != "PANEL 2 - ALLEY" {
		t.Fatalf("continuation sheet = %+v", sh[1])
	}
	if sh[2].Heading != "NIGHT CITY #3 PAGE 2 - PANELS: 1" || sh[2].Items[0].Text != "PANEL 1" {
		t.Fatalf("sheet 2 = %+v", sh[2])
	}
	if h := Sheets(sampleDoc(), Meta{})[1].Heading; h != "PAGE 1 (CONT.) - PANELS: 1" {
		t.Fatalf("heading without metadata = %q", h)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleDoc(), PDFOptions{Meta: meta}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	// a long sheet runs over several PDF pages
	blocks := []*doc.Node{block(doc.TypeHeader, "")}
	for i := 0; i < 60; i++ {
		blocks = append(blocks, block(doc.TypeParagraph, fmt.Sprintf("Beat %d of a very long sequence that wraps.", i)))
	}
	out := filepath.Join(t.TempDir(), "exports", FileName(meta, ThemeDark, "pdf"))
	if err := ExportPDF(doc.NewDoc(doc.NewPage(blocks...)), out, PDFOptions{Meta: meta, Theme: ThemeDark}); err != nil {
		t.Fatalf("export: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() <= 0 {
		t.Fatalf("pdf file empty")
	}
	if err := ExportPDF(nil, out, PDFOptions{}); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestFileNames(t *testing.T) {
	if got := FileName(meta, ThemeDark, "pdf"); got != "night-city-03-the-docks-dark.pdf" {
		t.Fatalf("FileName = %q", got)
	}
	if got := FileName(Meta{}, ThemeStandard, ".txt"); got != "untitled.txt" {
		t.Fatalf("FileName = %q", got)
	}
	if got := BackupFileName(time.Date(2025, 11, 29, 8, 0, 0, 0, time.UTC)); got != "backup-gocomicscript-2025-11-29.json" {
		t.Fatalf("BackupFileName = %q", got)
	}
}

func TestWriteTextImportsBack(t *testing.T) {
	d, _ := script.Parse("PAGE 1\nPANEL 1 Rooftop\nBOB: Hi\nSFX: KRAK\n")
	var buf bytes.Buffer
	if err := WriteText(&buf, d, meta); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "; title: The Docks!\n; series: Night City\n; chapter: 3\n\n") {
		t.Fatalf("missing metadata header:\n%s", buf.String())
	}
	again, errs := script.Parse(buf.String())
	if len(errs) != 0 || !again.Equal(d) {
		t.Fatalf("text export does not import back:\n%s", buf.String())
	}
	if got := ReadMeta(buf.String()); got != meta {
		t.Fatalf("ReadMeta = %+v, want %+v", got, meta)
	}
	if got := ReadMeta("PAGE 1\n; title: late\n"); got != (Meta{}) {
		t.Fatalf("notes after the script started were read: %+v", got)
	}
}
