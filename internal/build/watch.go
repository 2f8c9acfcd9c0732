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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "makinilya/internal/log"
	"makinilya/internal/project"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for edits to settle.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Build    Options
	Debounce time.Duration
}

// Watch builds once, then rebuilds whenever a scene, the context file or
// Config.toml changes, until ctx is cancelled. Every attempt is reported to
// onResult; failed builds do not stop the watch.
func Watch(ctx context.Context, root string, opts WatchOptions, onResult func(Result, error)) error {
	l := applog.WithOperation(applog.WithComponent("build"), "watch")
	p, err := project.Open(root)
	if err != nil {
		return err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	t := &targets{
		draft:   p.DraftDir(),
		config:  p.ConfigPath,
		context: p.ContextPath(),
	}
	for _, dir := range []string{p.Root, filepath.Dir(t.context)} {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if err := addTree(w, t.draft); err != nil {
		return err
	}

	rebuild := func() {
		res, err := Build(ctx, root, opts.Build)
		if err != nil {
			l.Warn("rebuild failed", slog.Any("err", err))
		}
		if onResult != nil {
			onResult(res, err)
		}
	}
	rebuild()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && t.inDraft(ev.Name) {
					if err := addTree(w, ev.Name); err != nil {
						l.Warn("watch new directory", slog.Any("err", err))
					}
				}
			}
			if !t.relevant(ev.Name) {
				continue
			}
			l.Debug("change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watcher error", slog.Any("err", err))
		case <-timer.C:
			rebuild()
		}
	}
}

type targets struct {
	draft, config, context string
}

func (t *targets) inDraft(path string) bool {
	rel, err := filepath.Rel(t.draft, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// relevant filters out the manuscript output, the index and editor temp files.
func (t *targets) relevant(path string) bool {
	path = filepath.Clean(path)
	if path == filepath.Clean(t.config) || path == filepath.Clean(t.context) {
		return true
	}
	if !t.inDraft(path) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(path), ".")
}

func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
