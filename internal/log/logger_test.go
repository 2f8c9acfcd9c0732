/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "yes")
	t.Setenv(EnvFile, "")
	o := FromEnv()
	if o.Level != "debug" || o.Format != "json" || !o.AddSource || o.File != "" {
		t.Fatalf("unexpected options: %+v", o)
	}

	t.Setenv(EnvLevel, "")
	t.Setenv(EnvFormat, "")
	t.Setenv(EnvSource, "0")
	o = FromEnv()
	if o.Level != "info" || o.Format != "console" || o.AddSource {
		t.Fatalf("defaults not applied: %+v", o)
	}
}

func TestPrettyHandlerLine(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{level: slog.LevelDebug, w: &buf}
	l := slog.New(h).With(slog.String("component", "build")).WithGroup("grp")

	l.Error("boom", slog.Int("n", 42), slog.String("scene", "Chapter 1/Scene 1"), slog.Float64("f", 1.50))

	out := buf.String()
	for _, want := range []string{" ERR boom", "component=build", "grp.n=42", `grp.scene="Chapter 1/Scene 1"`, "grp.f=1.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "grp.component") {
		t.Errorf("attrs added before the group must not be prefixed: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("expected newline-terminated line")
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{level: slog.LevelWarn, w: &buf}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	slog.New(h).Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestAttrValueString(t *testing.T) {
	if got := attrValueString(slog.DurationValue(1500 * time.Millisecond)); got != "1.5s" {
		t.Errorf("duration: %q", got)
	}
	if got := attrValueString(slog.BoolValue(true)); got != "true" {
		t.Errorf("bool: %q", got)
	}
	if got := attrValueString(slog.StringValue("plain")); got != "plain" {
		t.Errorf("string: %q", got)
	}
}

func TestInitAddsAppAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	WithOperation(WithComponent("test"), "run").Info("hello")
	out := buf.String()
	for _, want := range []string{`"app":"makinilya"`, `"component":"test"`, `"op":"run"`, `"msg":"hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output %q missing %s", out, want)
		}
	}
}

func TestFanoutWritesToAll(t *testing.T) {
	var a, b bytes.Buffer
	f := fanout{
		&prettyTextHandler{level: slog.LevelInfo, w: &a},
		&prettyTextHandler{level: slog.LevelError, w: &b},
	}
	l := slog.New(f)
	l.Info("one")
	l.Error("two")
	if !strings.Contains(a.String(), "one") || !strings.Contains(a.String(), "two") {
		t.Errorf("first handler got %q", a.String())
	}
	if strings.Contains(b.String(), "one") || !strings.Contains(b.String(), "two") {
		t.Errorf("second handler got %q", b.String())
	}
}
