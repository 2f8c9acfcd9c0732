/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleTree() *Part {
	return NewPart("draft",
		NewPart("Chapter 1",
			NewContent("Scene 1", "Hi, my name is {{ names.mc }}."),
			NewContent("Scene 2", "two words"),
		),
		NewPart("Empty"),
		NewContent("Epilogue", "  the   end\n"),
	)
}

func TestWalkOrderAndTrail(t *testing.T) {
	var got []string
	Walk(sampleTree(), func(n Node, trail []string) bool {
		got = append(got, strings.Join(trail, "/"))
		return true
	})
	want := []string{
		"draft",
		"draft/Chapter 1",
		"draft/Chapter 1/Scene 1",
		"draft/Chapter 1/Scene 2",
		"draft/Empty",
		"draft/Epilogue",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("walk = %v\nwant %v", got, want)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	n := 0
	Walk(sampleTree(), func(node Node, trail []string) bool {
		n++
		return len(trail) < 2
	})
	if n != 4 {
		t.Fatalf("visited %d nodes, want 4", n)
	}
}

func TestWordCountAndTitle(t *testing.T) {
	if got := WordCount(sampleTree()); got != 11 {
		t.Fatalf("WordCount = %d, want 11", got)
	}
	if Title(NewContent("x", "")) != "x" || Title(nil) != "" {
		t.Fatal("Title mismatch")
	}
	p := NewPart("p")
	p.Push(NewContent("a", ""))
	if len(p.Children) != 1 {
		t.Fatal("Push did not append")
	}
}

func TestRead(t *testing.T) {
	root := filepath.Join(t.TempDir(), "draft")
	write := func(rel, body string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("Chapter 2/Scene 1.mt", "later")
	write("Chapter 1/Scene 2.mt", "second")
	write("Chapter 1/Scene 1.mt", "first")
	write("Chapter 1/notes.txt", "ignored")
	write(".hidden/Scene.mt", "ignored")
	write("Prologue.mt", "open")

	tree, err := Read(root)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	Walk(tree, func(n Node, trail []string) bool {
		s := strings.Join(trail, "/")
		if c, ok := n.(*Content); ok {
			s += "=" + c.Source
		}
		got = append(got, s)
		return true
	})
	want := []string{
		"draft",
		"draft/Chapter 1",
		"draft/Chapter 1/Scene 1=first",
		"draft/Chapter 1/Scene 2=second",
		"draft/Chapter 2",
		"draft/Chapter 2/Scene 1=later",
		"draft/Prologue=open",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tree = %v\nwant %v", got, want)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Read(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
	file := filepath.Join(dir, "scene.mt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(file); err == nil {
		t.Error("expected error for non-directory")
	}
}
