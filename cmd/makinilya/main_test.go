/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"makinilya/internal/config"
	"makinilya/internal/version"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	for _, k := range []string{config.EnvWorkers, config.EnvFormat, config.EnvIndex, config.EnvPreviewAddr, config.EnvLogFormat, config.EnvLogSource, config.EnvLogFile} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestVersionAndUsage(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "version")
	if code != 0 || strings.TrimSpace(out) != version.String() {
		t.Fatalf("version = %d %q", code, out)
	}
	if code, _, errOut := runCLI(t); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Fatalf("no args = %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "frobnicate"); code != 2 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Fatalf("unknown = %d %q", code, errOut)
	}
}

func TestNewBuildAndQuery(t *testing.T) {
	root := filepath.Join(isolate(t), "novel")

	if code, out, errOut := runCLI(t, "new", root); code != 0 || !strings.Contains(out, "Created project") {
		t.Fatalf("new = %d %q %q", code, out, errOut)
	}
	if code, _, errOut := runCLI(t, "new", root); code != 1 || !strings.Contains(errOut, "Error:") {
		t.Fatalf("second new = %d %q", code, errOut)
	}

	code, out, errOut := runCLI(t, "build", "-format", "pdf", root)
	if code != 0 {
		t.Fatalf("build = %d %q", code, errOut)
	}
	if !strings.Contains(out, "manuscript.pdf") || !strings.Contains(out, "5 words in 1 scenes") {
		t.Fatalf("build output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, "out", "manuscript.pdf")); err != nil {
		t.Fatal(err)
	}

	if code, out, _ := runCLI(t, "search", "name", root); code != 0 || !strings.Contains(out, "Chapter 1/Scene 1") {
		t.Fatalf("search = %d %q", code, out)
	}
	if code, out, _ := runCLI(t, "refs", "names", root); code != 0 || !strings.Contains(out, "names.mc") {
		t.Fatalf("refs = %d %q", code, out)
	}
	if code, out, _ := runCLI(t, "history", root); code != 0 || !strings.Contains(out, "pdf") {
		t.Fatalf("history = %d %q", code, out)
	}
	if code, out, _ := runCLI(t, "index", root); code != 0 || !strings.Contains(out, "Indexed 1 scenes") {
		t.Fatalf("index = %d %q", code, out)
	}
}

func TestBuildUsageErrors(t *testing.T) {
	root := filepath.Join(isolate(t), "novel")
	if code, _, _ := runCLI(t, "new", root); code != 0 {
		t.Fatal("new failed")
	}
	if code, _, _ := runCLI(t, "build", "-format", "odt", root); code != 2 {
		t.Fatalf("bad format exit = %d", code)
	}
	if code, _, _ := runCLI(t, "build", root, "extra"); code != 2 {
		t.Fatalf("extra args exit = %d", code)
	}
	if code, _, _ := runCLI(t, "search"); code != 2 {
		t.Fatalf("search without query exit = %d", code)
	}
}

func TestBuildMalformedScene(t *testing.T) {
	root := filepath.Join(isolate(t), "novel")
	if code, _, _ := runCLI(t, "new", root); code != 0 {
		t.Fatal("new failed")
	}
	scene := filepath.Join(root, "draft", "Chapter 1", "Scene 1.mt")
	if err := os.WriteFile(scene, []byte("Broken {{ names. }}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "build", root)
	if code != 1 || !strings.Contains(errOut, "Error:") || !strings.Contains(errOut, "[line 1:8]") {
		t.Fatalf("build = %d %q", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(root, "out", "manuscript.docx")); !os.IsNotExist(err) {
		t.Fatalf("manuscript written despite error: %v", err)
	}
}

func TestCheckStrict(t *testing.T) {
	root := filepath.Join(isolate(t), "novel")
	if code, _, _ := runCLI(t, "new", root); code != 0 {
		t.Fatal("new failed")
	}
	scene := filepath.Join(root, "draft", "Chapter 1", "Scene 1.mt")
	if err := os.WriteFile(scene, []byte("{{ names.mc }} met {{ names.rival }}.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, "check", root)
	if code != 0 || !strings.Contains(out, "names.rival") || !strings.Contains(out, "Unresolved") {
		t.Fatalf("check = %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "check", "-strict", root); code != 1 {
		t.Fatalf("strict check exit = %d", code)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	if code, out, _ := runCLI(t, "config", "init"); code != 0 || !strings.Contains(out, "Wrote") {
		t.Fatalf("config init = %d %q", code, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "config", "init"); code != 1 {
		t.Fatalf("second init exit = %d", code)
	}
	t.Setenv(config.EnvPreviewAddr, "127.0.0.1:9999")
	code, out, _ := runCLI(t, "config", "show")
	if code != 0 || !strings.Contains(out, "addr: 127.0.0.1:9999") || !strings.Contains(out, "overridden by MKN_PREVIEW_ADDR") {
		t.Fatalf("config show = %d %q", code, out)
	}
}
