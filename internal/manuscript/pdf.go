/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package manuscript

import (
	"fmt"
	"io"

	"makinilya/internal/story"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in inches.
const (
	pageHeight  = 11.0
	margin      = 1.0
	indent      = 0.5
	fontSize    = 12.0
	singleLine  = fontSize / 72
	doubleLine  = 2 * singleLine
	thirdOfBody = (pageHeight - 2*margin) / 3
	fontFamily  = "Times"
)

// WritePDF renders root as a Letter-size PDF using the core Times font.
func WritePDF(w io.Writer, root story.Node, l Layout) error {
	l = l.withDefaults()
	pdf := gofpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(l.Title, true)
	pdf.SetAuthor(l.PenName, true)
	pdf.SetCreator("makinilya", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", fontSize)

	// title page: author top-left, title block centred, agent bottom-right
	for _, s := range l.Author.Lines() {
		pdf.CellFormat(0, singleLine, tr(s), "", 1, "L", false, 0, "")
	}
	pdf.SetY(margin + thirdOfBody + thirdOfBody/2 - doubleLine)
	for _, s := range []string{l.Title, l.PenName, WordLine(root)} {
		pdf.CellFormat(0, doubleLine, tr(s), "", 1, "C", false, 0, "")
	}
	if agent := l.Agent.Lines(); len(agent) > 0 {
		pdf.SetY(pageHeight - margin - float64(len(agent))*singleLine)
		for _, s := range agent {
			pdf.CellFormat(0, singleLine, tr(s), "", 1, "R", false, 0, "")
		}
	}

	for _, b := range plan(root) {
		switch b.kind {
		case blockChapter:
			pdf.AddPage()
			pdf.SetY(margin + thirdOfBody)
			pdf.CellFormat(0, doubleLine, tr(b.text), "", 1, "C", false, 0, "")
			pdf.Ln(doubleLine)
		case blockSeparator:
			pdf.CellFormat(0, doubleLine, b.text, "", 1, "C", false, 0, "")
		case blockParagraph:
			pdf.SetX(margin + indent)
			pdf.Write(doubleLine, tr(b.text))
			pdf.Ln(doubleLine)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
