/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestWithDefaults(t *testing.T) {
	c := Config{Project: ProjectConfig{OutputPath: "out/book.pdf"}}.WithDefaults()
	if c.Project.DraftDirectory != "draft" || c.Project.ContextPath != "Context.toml" || c.Project.OutputPath != "out/book.pdf" {
		t.Fatalf("unexpected defaults: %+v", c.Project)
	}
}

func TestContactLines(t *testing.T) {
	var none *ContactInformation
	if none.Lines() != nil {
		t.Fatal("nil contact should have no lines")
	}
	c := &ContactInformation{Name: "Jane", Address2: "Springfield", EmailAddress: "jane@example.com"}
	want := []string{"Jane", "Springfield", "jane@example.com"}
	if got := c.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v", got)
	}
}

func TestConfigJSONKeys(t *testing.T) {
	b, err := json.Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["project"]["draft_directory"] != "draft" || m["story"]["pen_name"] != "Unknown Author" {
		t.Fatalf("unexpected json: %s", b)
	}
	if _, ok := m["author"]; ok {
		t.Fatal("nil author should be omitted")
	}
}
