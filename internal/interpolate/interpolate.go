/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interpolate resolves placeholders in a story tree against a
// narrative context, or lists the placeholders a tree references.
//
// Both walks are all-or-nothing: the first malformed scene aborts the call
// and no partial tree is returned. Unresolved placeholders are not errors;
// in build mode they become the empty string.
package interpolate

import (
	"fmt"
	"strings"

	"makinilya/internal/narrative"
	"makinilya/internal/story"
	"makinilya/internal/text"

	"golang.org/x/sync/errgroup"
)

// SourceError attaches the slash-joined title path of a scene to the
// *text.ParseError raised while parsing it.
type SourceError struct {
	Scene string
	Err   error
}

func (e *SourceError) Error() string { return fmt.Sprintf("%s: %v", e.Scene, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// Reference is one placeholder occurrence in a scene.
type Reference struct {
	Scene  string
	Path   text.Path
	Line   int
	Column int
}

// Interpolator walks story trees. With Workers > 1 the root's children are
// processed concurrently; results and errors match the sequential walk.
type Interpolator struct {
	Workers int
}

// Interpolate resolves every scene under n against c with a sequential walk.
func Interpolate(n story.Node, c *narrative.Context) (story.Node, error) {
	return Interpolator{}.Interpolate(n, c)
}

// Check returns the dotted path of every placeholder under n in document order.
func Check(n story.Node) ([]string, error) {
	return Interpolator{}.Check(n)
}

// References returns every placeholder under n with its scene and location.
func References(n story.Node) ([]Reference, error) {
	return Interpolator{}.References(n)
}

// Interpolate returns a new tree of the same shape as n with every scene's
// placeholders replaced by their stringified context values. n is not modified.
func (ip Interpolator) Interpolate(n story.Node, c *narrative.Context) (story.Node, error) {
	if c == nil {
		c = narrative.Empty()
	}
	return fold(ip, n,
		func(sc *story.Content, scene string) (story.Node, error) {
			segs, err := parseScene(sc, scene)
			if err != nil {
				return nil, err
			}
			return story.NewContent(sc.Title, resolve(segs, c)), nil
		},
		func(p *story.Part, children []story.Node) story.Node {
			return story.NewPart(p.Title, children...)
		},
	)
}

// Check is References reduced to dotted paths.
func (ip Interpolator) Check(n story.Node) ([]string, error) {
	refs, err := ip.References(n)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path.String()
	}
	return out, nil
}

// References lists placeholders depth-first, left to right, duplicates kept.
func (ip Interpolator) References(n story.Node) ([]Reference, error) {
	return fold(ip, n,
		func(sc *story.Content, scene string) ([]Reference, error) {
			segs, err := parseScene(sc, scene)
			if err != nil {
				return nil, err
			}
			var refs []Reference
			for _, ph := range text.Placeholders(segs) {
				refs = append(refs, Reference{Scene: scene, Path: ph.Path, Line: ph.Pos.Line, Column: ph.Pos.Column})
			}
			return refs, nil
		},
		func(_ *story.Part, children [][]Reference) []Reference {
			var all []Reference
			for _, c := range children {
				all = append(all, c...)
			}
			return all
		},
	)
}

// Resolve interpolates a single text unit.
func Resolve(src string, c *narrative.Context) (string, error) {
	segs, err := text.Parse(src)
	if err != nil {
		return "", err
	}
	return resolve(segs, c), nil
}

func resolve(segs []text.Segment, c *narrative.Context) string {
	var b strings.Builder
	for _, s := range segs {
		switch v := s.(type) {
		case text.Literal:
			b.WriteString(v.Text)
		case text.Placeholder:
			if d, ok := c.Get(v.Path...); ok {
				b.WriteString(narrative.Stringify(d))
			}
		}
	}
	return b.String()
}

func parseScene(sc *story.Content, scene string) ([]text.Segment, error) {
	segs, err := text.Parse(sc.Source)
	if err != nil {
		return nil, &SourceError{Scene: scene, Err: err}
	}
	return segs, nil
}

// fold maps scenes with leaf and combines each part's results with join.
func fold[T any](ip Interpolator, n story.Node,
	leaf func(*story.Content, string) (T, error),
	join func(*story.Part, []T) T,
) (T, error) {
	var walk func(n story.Node, trail []string, workers int) (T, error)
	walk = func(n story.Node, trail []string, workers int) (T, error) {
		var zero T
		trail = append(trail[:len(trail):len(trail)], story.Title(n))
		switch v := n.(type) {
		case *story.Content:
			return leaf(v, strings.Join(trail, "/"))
		case *story.Part:
			results := make([]T, len(v.Children))
			if workers > 1 && len(v.Children) > 1 {
				errs := make([]error, len(v.Children))
				var g errgroup.Group
				g.SetLimit(workers)
				for i, child := range v.Children {
					g.Go(func() error {
						results[i], errs[i] = walk(child, trail, 1)
						return nil
					})
				}
				_ = g.Wait()
				for _, err := range errs {
					if err != nil {
						return zero, err
					}
				}
			} else {
				for i, child := range v.Children {
					r, err := walk(child, trail, 1)
					if err != nil {
						return zero, err
					}
					results[i] = r
				}
			}
			return join(v, results), nil
		default:
			return zero, fmt.Errorf("interpolate: unsupported node %T", n)
		}
	}
	return walk(n, nil, ip.Workers)
}
