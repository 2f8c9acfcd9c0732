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

	"github.com/fumiama/go-docx"
)

// 12pt in the half-points Word uses for run sizes.
const docxSize = "24"

// titleSpacer is the number of blank lines that push a chapter title a
// third of the way down the page.
const titleSpacer = 8

// WriteDOCX renders root as a Word document. Paragraphs start with a tab,
// which Word places at the default half-inch stop.
func WriteDOCX(w io.Writer, root story.Node, l Layout) error {
	l = l.withDefaults()
	doc := docx.New().WithDefaultTheme()

	line := func(text, align string) {
		p := doc.AddParagraph()
		p.AddText(text).Size(docxSize)
		if align != "" {
			p.Justification(align)
		}
	}

	for _, s := range l.Author.Lines() {
		line(s, "")
	}
	for i := 0; i < titleSpacer; i++ {
		line("", "")
	}
	for _, s := range []string{l.Title, l.PenName, WordLine(root)} {
		line(s, "center")
	}
	if agent := l.Agent.Lines(); len(agent) > 0 {
		for i := 0; i < titleSpacer; i++ {
			line("", "")
		}
		for _, s := range agent {
			line(s, "right")
		}
	}

	for _, b := range plan(root) {
		switch b.kind {
		case blockChapter:
			doc.AddParagraph().AddPageBreaks()
			for i := 0; i < titleSpacer; i++ {
				line("", "")
			}
			line(b.text, "center")
			line("", "")
		case blockSeparator:
			line(b.text, "center")
		case blockParagraph:
			p := doc.AddParagraph()
			p.AddText("").Size(docxSize).AddTab()
			p.AddText(b.text).Size(docxSize)
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
