/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package narrative

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// UnsupportedValueError reports a context value that has no Data form,
// such as an array or a date.
type UnsupportedValueError struct {
	Key  string
	Kind string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("context value %q: unsupported type %s", e.Key, e.Kind)
}

// ParseTOML decodes a TOML document into a Context.
func ParseTOML(src []byte) (*Context, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(src), &raw); err != nil {
		return nil, fmt.Errorf("parse toml context: %w", err)
	}
	obj, err := convertMap("", raw)
	if err != nil {
		return nil, err
	}
	return New(obj), nil
}

// ParseYAML decodes a YAML mapping into a Context.
func ParseYAML(src []byte) (*Context, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml context: %w", err)
	}
	obj, err := convertMap("", raw)
	if err != nil {
		return nil, err
	}
	return New(obj), nil
}

// Read loads a context file, choosing the decoder by extension.
// Files other than .yaml/.yml are read as TOML.
func Read(path string) (*Context, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return ParseTOML(b)
	}
}

func convertMap(prefix string, m map[string]any) (Object, error) {
	obj := make(Object, len(m))
	// sorted so the first unsupported value reported is stable
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		d, err := convert(key, v)
		if err != nil {
			return nil, err
		}
		obj[k] = d
	}
	return obj, nil
}

func convert(key string, v any) (Data, error) {
	switch x := v.(type) {
	case string:
		return String(x), nil
	case bool:
		return Boolean(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case float64:
		return Number(x), nil
	case map[string]any:
		return convertMap(key, x)
	case nil:
		return nil, &UnsupportedValueError{Key: key, Kind: "null"}
	case []any, []map[string]any:
		return nil, &UnsupportedValueError{Key: key, Kind: "array"}
	default:
		return nil, &UnsupportedValueError{Key: key, Kind: fmt.Sprintf("%T", v)}
	}
}
