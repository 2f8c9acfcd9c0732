/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package manuscript renders a resolved story tree in standard manuscript
// format: a title page followed by one page per chapter, Times 12pt, double
// spaced, with indented paragraphs and "#" between scenes.
package manuscript

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"makinilya/internal/domain"
	"makinilya/internal/story"

	"github.com/dustin/go-humanize"
)

// Layout carries the title page metadata.
type Layout struct {
	Title   string
	PenName string
	Author  *domain.ContactInformation
	Agent   *domain.ContactInformation
}

// LayoutFrom builds a Layout from a project configuration.
func LayoutFrom(cfg domain.Config) Layout {
	return Layout{
		Title:   cfg.Story.Title,
		PenName: cfg.Story.PenName,
		Author:  cfg.Author,
		Agent:   cfg.Agent,
	}.withDefaults()
}

func (l Layout) withDefaults() Layout {
	if strings.TrimSpace(l.Title) == "" {
		l.Title = "Untitled"
	}
	if strings.TrimSpace(l.PenName) == "" {
		l.PenName = "Unknown Author"
	}
	return l
}

// Format is an output document type.
type Format string

const (
	DOCX Format = "docx"
	PDF  Format = "pdf"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return DOCX, nil
	case ".pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("unsupported manuscript format %q", filepath.Ext(path))
}

// Write renders root to w in format f.
func Write(w io.Writer, f Format, root story.Node, l Layout) error {
	switch f {
	case DOCX:
		return WriteDOCX(w, root, l)
	case PDF:
		return WritePDF(w, root, l)
	}
	return fmt.Errorf("unsupported manuscript format %q", f)
}

// WordLine is the title page word count, e.g. "1,204 words".
func WordLine(root story.Node) string {
	return humanize.Comma(int64(story.WordCount(root))) + " words"
}

type blockKind int

const (
	blockChapter   blockKind = iota // new page, title a third down
	blockParagraph                  // indented body text
	blockSeparator                  // "#" between scenes
)

type block struct {
	kind blockKind
	text string
}

// plan flattens the tree into the blocks both writers lay out. A part that
// directly holds scenes becomes a chapter; nested parts follow it in order.
func plan(n story.Node) []block {
	var out []block
	var visit func(p *story.Part)
	visit = func(p *story.Part) {
		var scenes []*story.Content
		for _, c := range p.Children {
			if sc, ok := c.(*story.Content); ok {
				scenes = append(scenes, sc)
			}
		}
		if len(scenes) > 0 {
			out = append(out, block{kind: blockChapter, text: p.Title})
			for i, sc := range scenes {
				if i > 0 {
					out = append(out, block{kind: blockSeparator, text: "#"})
				}
				for _, para := range paragraphs(sc.Source) {
					out = append(out, block{kind: blockParagraph, text: para})
				}
			}
		}
		for _, c := range p.Children {
			if sub, ok := c.(*story.Part); ok {
				visit(sub)
			}
		}
	}
	switch v := n.(type) {
	case *story.Part:
		visit(v)
	case *story.Content:
		visit(story.NewPart(v.Title, v))
	}
	return out
}

// paragraphs splits a scene on newlines, dropping blank lines.
func paragraphs(src string) []string {
	var out []string
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
