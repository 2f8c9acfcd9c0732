/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package text parses manuscript text units into literal and placeholder segments.
//
// A placeholder is written {{ ident(.ident)* }} where ident matches
// [A-Za-z_][A-Za-z0-9_]*. Whitespace is allowed around identifiers and dots but
// not inside an identifier. Text without a {{ opener is literal.
package text

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var textLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Open", Pattern: `\{\{`, Action: lexer.Push("Placeholder")},
		{Name: "Text", Pattern: `(?:[^{]|\{[^{])+|\{`, Action: nil},
	},
	"Placeholder": {
		{Name: "Close", Pattern: `\}\}`, Action: lexer.Pop()},
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Dot", Pattern: `\.`, Action: nil},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`, Action: nil},
		{Name: "Number", Pattern: `[0-9][A-Za-z0-9_]*`, Action: nil},
		{Name: "Invalid", Pattern: `(?s).`, Action: nil},
	},
})

var (
	tokOpen       = textLexer.Symbols()["Open"]
	tokText       = textLexer.Symbols()["Text"]
	tokClose      = textLexer.Symbols()["Close"]
	tokWhitespace = textLexer.Symbols()["Whitespace"]
	tokDot        = textLexer.Symbols()["Dot"]
	tokIdent      = textLexer.Symbols()["Ident"]
)

// Parse splits src into segments. Concatenating every segment's Source
// reproduces src exactly. Errors are *ParseError located at the {{ opener of
// the malformed placeholder.
func Parse(src string) ([]Segment, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parse()
}

func tokenize(src string) ([]lexer.Token, error) {
	lex, err := textLexer.LexString("", src)
	if err != nil {
		return nil, &ParseError{Line: 1, Column: 1, Message: err.Error()}
	}
	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			var perr interface{ Position() lexer.Position }
			if errors.As(err, &perr) {
				pos := perr.Position()
				return nil, &ParseError{Line: pos.Line, Column: pos.Column, Message: err.Error()}
			}
			return nil, &ParseError{Line: 1, Column: 1, Message: err.Error()}
		}
		if tok.EOF() {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

type parser struct {
	toks []lexer.Token
	i    int
	out  []Segment
}

func (p *parser) parse() ([]Segment, error) {
	for p.i < len(p.toks) {
		tok := p.toks[p.i]
		switch tok.Type {
		case tokText:
			p.literal(tok)
			p.i++
		case tokOpen:
			ph, err := p.placeholder()
			if err != nil {
				return nil, err
			}
			p.out = append(p.out, ph)
		default:
			return nil, errorAt(tok.Pos, fmt.Sprintf("unexpected %s", describe(tok)))
		}
	}
	return p.out, nil
}

// literal appends tok to the trailing literal or starts a new one.
func (p *parser) literal(tok lexer.Token) {
	if n := len(p.out); n > 0 {
		if lit, ok := p.out[n-1].(Literal); ok {
			lit.Text += tok.Value
			p.out[n-1] = lit
			return
		}
	}
	p.out = append(p.out, Literal{Text: tok.Value, Pos: position(tok.Pos)})
}

// placeholder consumes Open ws* Ident (ws* Dot ws* Ident)* ws* Close.
func (p *parser) placeholder() (Placeholder, error) {
	open := p.toks[p.i]
	var raw strings.Builder
	raw.WriteString(open.Value)
	p.i++

	fail := func(expected string) (Placeholder, error) {
		found := "end of input"
		if p.i < len(p.toks) {
			found = describe(p.toks[p.i])
		}
		return Placeholder{}, errorAt(open.Pos, fmt.Sprintf("expected %s, found %s", expected, found))
	}
	// next skips whitespace and returns the following token, if any.
	next := func() (lexer.Token, bool) {
		for p.i < len(p.toks) && p.toks[p.i].Type == tokWhitespace {
			raw.WriteString(p.toks[p.i].Value)
			p.i++
		}
		if p.i >= len(p.toks) {
			return lexer.Token{}, false
		}
		return p.toks[p.i], true
	}
	take := func(tok lexer.Token) {
		raw.WriteString(tok.Value)
		p.i++
	}

	var path Path
	for {
		tok, ok := next()
		if !ok || tok.Type != tokIdent {
			return fail("identifier")
		}
		take(tok)
		path = append(path, tok.Value)

		tok, ok = next()
		if !ok {
			return fail(`"." or "}}"`)
		}
		switch tok.Type {
		case tokDot:
			take(tok)
		case tokClose:
			take(tok)
			return Placeholder{Path: path, Raw: raw.String(), Pos: position(open.Pos)}, nil
		default:
			return fail(`"." or "}}"`)
		}
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == tokClose {
		return `"}}"`
	}
	return fmt.Sprintf("%q", tok.Value)
}

func position(pos lexer.Position) Position {
	return Position{Line: pos.Line, Column: pos.Column}
}

func errorAt(pos lexer.Position, msg string) *ParseError {
	return &ParseError{Line: pos.Line, Column: pos.Column, Message: msg}
}
