/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package manuscript

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"makinilya/internal/domain"
	"makinilya/internal/story"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
)

func sampleStory() *story.Part {
	return story.NewPart("draft",
		story.NewPart("Chapter 1",
			story.NewContent("Scene 1", "Hi, my name is Core.\n\nShe waved."),
			story.NewContent("Scene 2", "The end of the chapter."),
		),
		story.NewPart("Part Two",
			story.NewPart("Chapter 2", story.NewContent("Scene 1", "Later that day.")),
		),
	)
}

func sampleLayout() Layout {
	return LayoutFrom(domain.Config{
		Story:  domain.StoryConfig{Title: "Dawn", PenName: "B. Ellis"},
		Author: &domain.ContactInformation{Name: "Brutus Ellis", EmailAddress: "brutus@example.com"},
		Agent:  &domain.ContactInformation{Name: "Cymone Sabina"},
	})
}

func TestPlan(t *testing.T) {
	var got []string
	for _, b := range plan(sampleStory()) {
		switch b.kind {
		case blockChapter:
			got = append(got, "== "+b.text)
		default:
			got = append(got, b.text)
		}
	}
	want := []string{
		"== Chapter 1",
		"Hi, my name is Core.",
		"She waved.",
		"#",
		"The end of the chapter.",
		"== Chapter 2",
		"Later that day.",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("plan = %q\nwant %q", got, want)
	}
}

func TestLayoutDefaults(t *testing.T) {
	l := LayoutFrom(domain.Config{})
	if l.Title != "Untitled" || l.PenName != "Unknown Author" {
		t.Fatalf("defaults = %+v", l)
	}
}

func TestWordLine(t *testing.T) {
	root := story.NewPart("d", story.NewContent("s", strings.Repeat("word ", 1204)))
	if got := WordLine(root); got != "1,204 words" {
		t.Fatalf("WordLine = %q", got)
	}
}

func TestFormatFor(t *testing.T) {
	if f, err := FormatFor("out/Manuscript.PDF"); err != nil || f != PDF {
		t.Fatalf("pdf: %v %v", f, err)
	}
	if f, err := FormatFor("out/manuscript.docx"); err != nil || f != DOCX {
		t.Fatalf("docx: %v %v", f, err)
	}
	if _, err := FormatFor("out/manuscript.txt"); err == nil {
		t.Fatal("expected error for .txt")
	}
}

func TestWritePDFPages(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, PDF, sampleStory(), sampleLayout()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("missing PDF header")
	}
	path := filepath.Join(t.TempDir(), "m.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	f, r, err := pdflib.Open(path)
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	defer f.Close()
	// title page + two chapters
	if n := r.NumPage(); n != 3 {
		t.Fatalf("NumPage = %d, want 3", n)
	}
}

func TestWriteDOCXText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, DOCX, sampleStory(), sampleLayout()); err != nil {
		t.Fatalf("WriteDOCX: %v", err)
	}
	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	var paras []string
	for _, item := range doc.Document.Body.Items {
		p, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var b strings.Builder
		for _, child := range p.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					b.WriteString(t.Text)
				}
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			paras = append(paras, s)
		}
	}
	want := []string{
		"Brutus Ellis", "brutus@example.com",
		"Dawn", "B. Ellis", "15 words",
		"Cymone Sabina",
		"Chapter 1", "Hi, my name is Core.", "She waved.", "#", "The end of the chapter.",
		"Chapter 2", "Later that day.",
	}
	if strings.Join(paras, "|") != strings.Join(want, "|") {
		t.Fatalf("paragraphs = %q\nwant %q", paras, want)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("odt"), sampleStory(), Layout{}); err == nil {
		t.Fatal("expected error")
	}
}
