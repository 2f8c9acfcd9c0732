/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package build

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"makinilya/internal/interpolate"
	applog "makinilya/internal/log"
)

// Report is the outcome of checking a project.
type Report struct {
	// Identifiers lists every placeholder path in document order, with duplicates.
	Identifiers []string
	References  []interpolate.Reference
	// Unresolved lists, once each in order of first use, the identifiers the
	// context has no value for. They render as empty text in a build.
	Unresolved []string
	// Unused lists context values that no placeholder references.
	Unused []string
}

// Check parses every scene of the project at root and reports the
// placeholders it uses. Only malformed scenes are errors.
func Check(ctx context.Context, root string, workers int) (Report, error) {
	_, tree, nctx, err := load(root)
	if err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	refs, err := interpolate.Interpolator{Workers: workers}.References(tree)
	if err != nil {
		return Report{}, err
	}

	rep := Report{References: refs}
	seen := map[string]bool{}
	used := map[string]bool{}
	for _, r := range refs {
		id := r.Path.String()
		rep.Identifiers = append(rep.Identifiers, id)
		used[id] = true
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := nctx.Get(r.Path...); !ok {
			rep.Unresolved = append(rep.Unresolved, id)
		}
	}
	for _, leaf := range nctx.Identifiers() {
		if !coveredBy(leaf, used) {
			rep.Unused = append(rep.Unused, leaf)
		}
	}
	sort.Strings(rep.Unused)

	applog.WithOperation(applog.WithComponent("build"), "check").Info("checked",
		slog.Int("placeholders", len(rep.Identifiers)),
		slog.Int("unresolved", len(rep.Unresolved)),
	)
	return rep, nil
}

// coveredBy reports whether leaf or one of its ancestors is referenced.
func coveredBy(leaf string, used map[string]bool) bool {
	for p := leaf; ; {
		if used[p] {
			return true
		}
		i := strings.LastIndexByte(p, '.')
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}
