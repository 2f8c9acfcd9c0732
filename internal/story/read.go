/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SceneExt is the file extension of scene files in a draft directory.
const SceneExt = ".mt"

// Read builds a tree from a draft directory. Directories become parts and
// .mt files become scenes, both titled by their base name. Other files and
// entries starting with "." are ignored. Entries are taken in lexical order.
func Read(dir string) (*Part, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read draft: %s is not a directory", dir)
	}
	return readDir(dir)
}

func readDir(dir string) (*Part, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	part := NewPart(filepath.Base(dir))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if e.IsDir() {
			child, err := readDir(path)
			if err != nil {
				return nil, err
			}
			part.Push(child)
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), SceneExt) {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", path, err)
		}
		part.Push(NewContent(strings.TrimSuffix(name, filepath.Ext(name)), string(b)))
	}
	return part, nil
}
