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
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gocomicscript/internal/doc"
)

// Theme selects the PDF colour scheme.
type Theme string

const (
	ThemeStandard Theme = "standard"
	ThemeDark     Theme = "dark"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt). Text uses the built-in Courier family so nothing has
// to be embedded.
type PDFOptions struct {
	Meta
	Theme  Theme
	Author string
}

type rgb struct{ R, G, B int }

type palette struct {
	Background *rgb
	Text       rgb
	Accent     rgb
	Muted      rgb
}

func paletteFor(t Theme) palette {
	if t == ThemeDark {
		return palette{
			Background: &rgb{9, 9, 11},
			Text:       rgb{228, 228, 231},
			Accent:     rgb{249, 115, 22},
			Muted:      rgb{161, 161, 170},
		}
	}
	return palette{Text: rgb{0, 0, 0}, Accent: rgb{0, 0, 0}, Muted: rgb{102, 102, 102}}
}

// Sheet box model, in points.
const (
	marginX     = 72.0
	marginY     = 40.0
	fontSize    = 12.0
	lineHeight  = fontSize * 1.7
	panelTop    = 35.0
	panelBottom = 15.0
	descBottom  = 18.0
	charTop     = 20.0
	charIndent  = 180.0
	dlgIndent   = 110.0
	sfxGap      = 10.0
	headingGap  = 25.0
)

// WritePDF renders d as an A4 PDF: a title page, then one sheet per physical
// page. Sheets that run long continue on further PDF pages.
func WritePDF(w io.Writer, d *doc.Node, opt PDFOptions) error {
	pdf := newPDF(opt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pal := paletteFor(opt.Theme)
	pageW, pageH := pdf.GetPageSize()
	bodyW := pageW - 2*marginX

	titlePage(pdf, tr, opt, pal, pageW, pageH)

	for _, sh := range Sheets(d, opt.Meta) {
		pdf.AddPage()
		if sh.Continuation {
			pdf.SetFont("Courier", "I", 10)
			setText(pdf, pal.Muted)
			pdf.MultiCell(bodyW, 14, tr(sh.Heading), "", "C", false)
			pdf.Ln(headingGap - 5)
		} else {
			pdf.SetFont("Courier", "BU", 14)
			setText(pdf, pal.Accent)
			pdf.MultiCell(bodyW, 18, tr(sh.Heading), "", "C", false)
			pdf.Ln(headingGap)
		}
		for i, it := range sh.Items {
			switch it.Kind {
			case ItemPanel:
				pdf.Ln(panelTop)
				pdf.SetFont("Courier", "BU", fontSize)
				setText(pdf, pal.Accent)
				pdf.MultiCell(bodyW, lineHeight, tr(it.Text), "", "L", false)
				pdf.Ln(panelBottom)
			case ItemCharacter:
				pdf.Ln(charTop)
				// keep the cue with the first line of its speech
				need := lineHeight
				if i+1 < len(sh.Items) && sh.Items[i+1].Kind == ItemDialogue {
					need *= 2
				}
				if pdf.GetY()+need > pageH-marginY {
					pdf.AddPage()
				}
				pdf.SetFont("Courier", "B", fontSize)
				setText(pdf, pal.Text)
				pdf.SetX(marginX + charIndent)
				pdf.MultiCell(bodyW-charIndent, lineHeight, tr(it.Text), "", "L", false)
			case ItemDialogue:
				pdf.SetFont("Courier", "", fontSize)
				setText(pdf, pal.Text)
				pdf.SetX(marginX + dlgIndent)
				pdf.MultiCell(bodyW-2*dlgIndent, lineHeight, tr(it.Text), "", "L", false)
				pdf.Ln(descBottom)
			case ItemSfx:
				pdf.Ln(sfxGap)
				pdf.SetFont("Courier", "B", fontSize)
				setText(pdf, pal.Accent)
				label := "SFX: "
				lw := pdf.GetStringWidth(label)
				pdf.CellFormat(lw, lineHeight, label, "", 0, "L", false, 0, "")
				pdf.SetFont("Courier", "I", fontSize)
				setText(pdf, pal.Text)
				pdf.MultiCell(bodyW-lw, lineHeight, tr(it.Text), "", "L", false)
				pdf.Ln(sfxGap)
			default:
				pdf.SetFont("Courier", "", fontSize)
				setText(pdf, pal.Text)
				pdf.MultiCell(bodyW, lineHeight, tr(it.Text), "", "L", false)
				pdf.Ln(descBottom)
			}
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the PDF to outPath, creating its directory.
func ExportPDF(d *doc.Node, outPath string, opt PDFOptions) error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(f, d, opt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	return nil
}

func newPDF(opt PDFOptions) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = "Untitled"
	}
	pdf.SetTitle(title, true)
	author := opt.Author
	if author == "" {
		author = "gocomicscript"
	}
	pdf.SetAuthor(author, true)
	pdf.SetCreator("gocomicscript", true)
	if pal := paletteFor(opt.Theme); pal.Background != nil {
		bg := *pal.Background
		// runs for every page, including automatic breaks
		pdf.SetHeaderFunc(func() {
			w, h := pdf.GetPageSize()
			pdf.SetFillColor(bg.R, bg.G, bg.B)
			pdf.Rect(0, 0, w, h, "F")
			pdf.SetXY(marginX, marginY)
		})
	}
	return pdf
}

func titlePage(pdf *gofpdf.Fpdf, tr func(string) string, opt PDFOptions, pal palette, pageW, pageH float64) {
	pdf.AddPage()
	bodyW := pageW - 2*marginX
	pdf.SetY(pageH/2 - 80)
	if s := strings.TrimSpace(opt.SeriesTitle); s != "" {
		pdf.SetFont("Courier", "", 16)
		setText(pdf, pal.Muted)
		pdf.MultiCell(bodyW, 20, tr(strings.ToUpper(s)), "", "C", false)
		pdf.Ln(5)
	}
	if c := strings.TrimSpace(opt.ChapterNumber); c != "" {
		pdf.SetFont("Courier", "B", 14)
		setText(pdf, pal.Accent)
		pdf.MultiCell(bodyW, 18, tr("#"+c), "", "C", false)
		pdf.Ln(10)
	}
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = "Untitled"
	}
	pdf.SetFont("Courier", "BU", 28)
	setText(pdf, pal.Accent)
	pdf.MultiCell(bodyW, 34, tr(strings.ToUpper(title)), "", "C", false)

	pdf.SetY(pageH - 50 - marginY)
	pdf.SetFont("Courier", "", 10)
	setText(pdf, pal.Muted)
	pdf.MultiCell(bodyW, 12, "Written with gocomicscript", "", "C", false)
}

func setText(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.R, c.G, c.B) }
