/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package text

import (
	"fmt"
	"strings"
)

// Position is a 1-based line/column location within a text unit.
type Position struct {
	Line   int
	Column int
}

// Segment is one piece of a parsed text unit: either a Literal or a Placeholder.
type Segment interface {
	Position() Position
	// Source returns the exact input spelling of the segment.
	Source() string
	segment()
}

// Literal is a span of text copied verbatim into the output.
type Literal struct {
	Text string
	Pos  Position
}

// Placeholder is a {{ dotted.path }} reference to context data.
type Placeholder struct {
	Path Path
	Raw  string
	Pos  Position
}

func (l Literal) Position() Position     { return l.Pos }
func (l Literal) Source() string         { return l.Text }
func (Literal) segment()                 {}
func (p Placeholder) Position() Position { return p.Pos }
func (p Placeholder) Source() string     { return p.Raw }
func (Placeholder) segment()             {}

// Path is a dotted identifier path with at least one component.
type Path []string

func (p Path) String() string { return strings.Join(p, ".") }

// ParseError reports malformed placeholder syntax.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[line %d:%d] %s", e.Line, e.Column, e.Message)
}

// Placeholders returns only the placeholder segments, in order.
func Placeholders(segs []Segment) []Placeholder {
	var out []Placeholder
	for _, s := range segs {
		if p, ok := s.(Placeholder); ok {
			out = append(out, p)
		}
	}
	return out
}
