/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interpolate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"makinilya/internal/narrative"
	"makinilya/internal/story"
	"makinilya/internal/text"
)

func ctx() *narrative.Context {
	return narrative.New(narrative.Object{
		"names": narrative.Object{"mc": narrative.String("Core")},
		"age":   narrative.Number(32),
		"ratio": narrative.Number(2.5),
		"alive": narrative.Boolean(true),
	})
}

func tree() *story.Part {
	return story.NewPart("draft",
		story.NewPart("Chapter 1",
			story.NewContent("Scene 1", "Hi, my name is {{ names.mc }}."),
			story.NewContent("Scene 2", "{{age}} years, {{ ratio }}x, alive={{ alive }}."),
		),
		story.NewPart("Chapter 2",
			story.NewContent("Scene 1", "{{ missing.value }}|{{ names.mc.deeper }}|{{ names.mc }}"),
		),
	)
}

func flatten(n story.Node) []string {
	var out []string
	story.Walk(n, func(n story.Node, trail []string) bool {
		if c, ok := n.(*story.Content); ok {
			out = append(out, strings.Join(trail, "/")+"="+c.Source)
		} else {
			out = append(out, strings.Join(trail, "/"))
		}
		return true
	})
	return out
}

func TestInterpolate(t *testing.T) {
	in := tree()
	before := flatten(in)
	out, err := Interpolate(in, ctx())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"draft",
		"draft/Chapter 1",
		"draft/Chapter 1/Scene 1=Hi, my name is Core.",
		"draft/Chapter 1/Scene 2=32 years, 2.5x, alive=true.",
		"draft/Chapter 2",
		"draft/Chapter 2/Scene 1=||Core",
	}
	if got := flatten(out); !reflect.DeepEqual(got, want) {
		t.Fatalf("interpolated tree:\n%v\nwant\n%v", got, want)
	}
	if !reflect.DeepEqual(flatten(in), before) {
		t.Fatal("input tree was modified")
	}
}

func TestInterpolateSingleContentAndEmptyPart(t *testing.T) {
	out, err := Interpolate(story.NewContent("s", "{{ names.mc }}"), ctx())
	if err != nil {
		t.Fatal(err)
	}
	if c := out.(*story.Content); c.Title != "s" || c.Source != "Core" {
		t.Fatalf("got %+v", c)
	}
	out, err = Interpolate(story.NewPart("empty"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if p := out.(*story.Part); p.Title != "empty" || len(p.Children) != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestLiteralTextUnchanged(t *testing.T) {
	sources := []string{
		"",
		"plain prose",
		"a { brace } and }} closers",
		"line one\nline two\n\n",
		"{ {not a placeholder} }",
		"tab\tand trailing {",
	}
	for _, c := range []*narrative.Context{narrative.Empty(), ctx()} {
		for _, src := range sources {
			out, err := Interpolate(story.NewPart("p", story.NewContent("s", src)), c)
			if err != nil {
				t.Fatalf("Interpolate(%q): %v", src, err)
			}
			if got := out.(*story.Part).Children[0].(*story.Content).Source; got != src {
				t.Errorf("Interpolate(%q) = %q", src, got)
			}
		}
	}
}

func TestEmptyContextDropsPlaceholders(t *testing.T) {
	cases := []struct {
		src, want string
	}{
		{"{{ a.b.c }}", ""},
		{"Hi, {{ names.mc }}.", "Hi, ."},
		{"{{a}}{{b}} x {{ c.d }}\n{ y }", " x \n{ y }"},
	}
	for _, tc := range cases {
		out, err := Interpolate(story.NewContent("s", tc.src), narrative.Empty())
		if err != nil {
			t.Fatalf("Interpolate(%q): %v", tc.src, err)
		}
		if got := out.(*story.Content).Source; got != tc.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestMissingPathBuildAndCheck(t *testing.T) {
	n := story.NewPart("p", story.NewContent("s", "{{ a.b.c }}"))
	out, err := Interpolate(n, narrative.New(narrative.Object{}))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.(*story.Part).Children[0].(*story.Content).Source; got != "" {
		t.Fatalf("build = %q, want empty", got)
	}
	ids, err := Check(n)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"a.b.c"}) {
		t.Fatalf("check = %v", ids)
	}
}

func TestCheck(t *testing.T) {
	ids, err := Check(tree())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"names.mc", "age", "ratio", "alive", "missing.value", "names.mc.deeper", "names.mc"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("Check = %v, want %v", ids, want)
	}
}

func TestReferencesLocated(t *testing.T) {
	refs, err := References(story.NewPart("draft",
		story.NewContent("Scene", "line one\n  {{ a.b }} and {{c}}"),
	))
	if err != nil {
		t.Fatal(err)
	}
	want := []Reference{
		{Scene: "draft/Scene", Path: text.Path{"a", "b"}, Line: 2, Column: 3},
		{Scene: "draft/Scene", Path: text.Path{"c"}, Line: 2, Column: 17},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("References = %+v\nwant %+v", refs, want)
	}
}

func TestAbortOnNestedError(t *testing.T) {
	bad := tree()
	deep := story.NewPart("Deep", story.NewPart("Deeper", story.NewContent("Broken", "ok\n{{ 32 }}")))
	bad.Children[1].(*story.Part).Push(deep)

	check := func(err error) {
		t.Helper()
		var se *SourceError
		if !errors.As(err, &se) {
			t.Fatalf("expected SourceError, got %v", err)
		}
		if se.Scene != "draft/Chapter 2/Deep/Deeper/Broken" {
			t.Fatalf("scene = %q", se.Scene)
		}
		var pe *text.ParseError
		if !errors.As(err, &pe) || pe.Line != 2 || pe.Column != 1 {
			t.Fatalf("parse error = %v", err)
		}
	}

	out, err := Interpolate(bad, ctx())
	if out != nil {
		t.Fatal("partial tree returned")
	}
	check(err)
	ids, err := Check(bad)
	if ids != nil {
		t.Fatal("partial identifiers returned")
	}
	check(err)
}

func TestWorkersMatchSequential(t *testing.T) {
	root := story.NewPart("draft")
	for i := 0; i < 20; i++ {
		root.Push(story.NewPart("Chapter", story.NewContent("Scene", "{{ names.mc }} {{ age }}")))
	}
	seq, err := Interpolate(root, ctx())
	if err != nil {
		t.Fatal(err)
	}
	par, err := Interpolator{Workers: 4}.Interpolate(root, ctx())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(flatten(seq), flatten(par)) {
		t.Fatal("parallel result differs from sequential")
	}

	// the lowest-index failure wins
	root.Children[3] = story.NewContent("First", "{{ }}")
	root.Children[15] = story.NewContent("Second", "{{ . }}")
	for i := 0; i < 5; i++ {
		_, err := Interpolator{Workers: 8}.Interpolate(root, ctx())
		var se *SourceError
		if !errors.As(err, &se) || se.Scene != "draft/First" {
			t.Fatalf("run %d: err = %v", i, err)
		}
	}
}

func TestResolve(t *testing.T) {
	got, err := Resolve("{{ names.mc }}!", ctx())
	if err != nil || got != "Core!" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
	if _, err := Resolve("{{ x..y }}", ctx()); err == nil {
		t.Fatal("expected parse error")
	}
}
