/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package narrative holds the variable data that placeholders resolve against.
package narrative

import (
	"sort"
	"strconv"
	"strings"
)

// Data is a context value: String, Number, Boolean or Object.
type Data interface {
	data()
}

type (
	String  string
	Number  float64
	Boolean bool
	Object  map[string]Data
)

func (String) data()  {}
func (Number) data()  {}
func (Boolean) data() {}
func (Object) data()  {}

// Context is the root mapping of a story's variables. It is not modified
// after construction and is safe for concurrent reads.
type Context struct {
	root Object
}

// New wraps root as a Context. A nil root behaves like an empty one.
func New(root Object) *Context {
	if root == nil {
		root = Object{}
	}
	return &Context{root: root}
}

// Empty returns a context with no variables.
func Empty() *Context { return New(nil) }

// Root returns the top-level object.
func (c *Context) Root() Object { return c.root }

// Get resolves a dotted path one component at a time. A missing key or a
// non-object intermediate value is a miss, reported as ok == false.
func (c *Context) Get(path ...string) (Data, bool) {
	if c == nil || len(path) == 0 {
		return nil, false
	}
	var cur Data = c.root
	for _, key := range path {
		obj, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Stringify renders d as it appears in the manuscript.
func Stringify(d Data) string {
	switch v := d.(type) {
	case String:
		return string(v)
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Boolean:
		return strconv.FormatBool(bool(v))
	case Object:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(Stringify(v[k]))
		}
		b.WriteByte('}')
		return b.String()
	default:
		return ""
	}
}

// Identifiers lists the dotted path of every leaf value, sorted.
func (c *Context) Identifiers() []string {
	var out []string
	var walk func(prefix string, obj Object)
	walk = func(prefix string, obj Object) {
		for k, v := range obj {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if o, ok := v.(Object); ok {
				walk(p, o)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", c.root)
	sort.Strings(out)
	return out
}
