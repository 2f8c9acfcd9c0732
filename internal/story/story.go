/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package story models a manuscript as a tree of titled parts and scenes.
package story

import "strings"

// Node is either a *Part or a *Content.
type Node interface {
	node()
}

// Part is a titled, ordered group of nodes (a chapter, an act, the draft root).
type Part struct {
	Title    string
	Children []Node
}

// Content is a titled leaf holding the raw text of one scene.
type Content struct {
	Title  string
	Source string
}

func (*Part) node()    {}
func (*Content) node() {}

// NewPart returns a part holding children in order.
func NewPart(title string, children ...Node) *Part {
	return &Part{Title: title, Children: children}
}

// NewContent returns a scene.
func NewContent(title, source string) *Content {
	return &Content{Title: title, Source: source}
}

// Push appends n as the last child.
func (p *Part) Push(n Node) { p.Children = append(p.Children, n) }

// Title returns the node's title, or "" for nil.
func Title(n Node) string {
	switch v := n.(type) {
	case *Part:
		return v.Title
	case *Content:
		return v.Title
	}
	return ""
}

// Walk visits n and its descendants depth-first in document order. The
// trail holds the titles from the root down to the visited node. Returning
// false from fn skips a part's children.
func Walk(n Node, fn func(n Node, trail []string) bool) {
	walk(n, nil, fn)
}

func walk(n Node, trail []string, fn func(Node, []string) bool) {
	trail = append(trail[:len(trail):len(trail)], Title(n))
	if !fn(n, trail) {
		return
	}
	if p, ok := n.(*Part); ok {
		for _, c := range p.Children {
			walk(c, trail, fn)
		}
	}
}

// Scenes returns every Content under n in document order.
func Scenes(n Node) []*Content {
	var out []*Content
	Walk(n, func(n Node, _ []string) bool {
		if c, ok := n.(*Content); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// WordCount counts whitespace-separated words across all scenes.
func WordCount(n Node) int {
	total := 0
	for _, c := range Scenes(n) {
		total += len(strings.Fields(c.Source))
	}
	return total
}
