/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package build runs the manuscript pipeline for a project: load the draft
// and context, resolve placeholders, render, write and index.
package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"makinilya/internal/interpolate"
	applog "makinilya/internal/log"
	"makinilya/internal/manuscript"
	"makinilya/internal/narrative"
	"makinilya/internal/project"
	"makinilya/internal/storage"
	"makinilya/internal/story"
)

// Options adjusts a build. Zero values use the project configuration.
type Options struct {
	// Output replaces the configured output path; relative paths are
	// resolved against the project root.
	Output string
	// Format replaces the output file's extension when set.
	Format manuscript.Format
	// Workers bounds the concurrent interpolation of top-level parts.
	Workers int
	// Index refreshes the search index and records the build.
	Index bool
}

// Result describes a finished build.
type Result struct {
	ID       string
	Output   string
	Format   manuscript.Format
	Words    int
	Scenes   int
	Duration time.Duration
}

// Build produces the manuscript of the project at root. Any malformed scene
// aborts the build before anything is written.
func Build(ctx context.Context, root string, opts Options) (Result, error) {
	start := time.Now()
	l := applog.WithOperation(applog.WithComponent("build"), "build")

	p, tree, nctx, err := load(root)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	resolved, err := interpolate.Interpolator{Workers: opts.Workers}.Interpolate(tree, nctx)
	if err != nil {
		return Result{}, err
	}

	out := outputPath(p, opts)
	format, err := manuscript.FormatFor(out)
	if err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := manuscript.Write(&buf, format, resolved, manuscript.LayoutFrom(p.Config)); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := project.WriteFileAtomic(out, buf.Bytes(), true); err != nil {
		return Result{}, fmt.Errorf("write manuscript: %w", err)
	}

	res := Result{
		Output: out,
		Format: format,
		Words:  story.WordCount(resolved),
		Scenes: len(story.Scenes(resolved)),
	}
	if opts.Index {
		// The manuscript is already on disk; index problems only warn.
		id, err := index(ctx, p, tree, res)
		if err != nil {
			l.Warn("index update failed", slog.Any("err", err))
		}
		res.ID = id
	}
	res.Duration = time.Since(start)
	l.Info("manuscript built",
		slog.String("output", res.Output),
		slog.Int("words", res.Words),
		slog.Int("scenes", res.Scenes),
		slog.Duration("took", res.Duration),
	)
	return res, nil
}

func load(root string) (*project.Project, *story.Part, *narrative.Context, error) {
	p, err := project.Open(root)
	if err != nil {
		return nil, nil, nil, err
	}
	tree, err := p.LoadStory()
	if err != nil {
		return nil, nil, nil, err
	}
	nctx, err := p.LoadContext()
	if err != nil {
		return nil, nil, nil, err
	}
	return p, tree, nctx, nil
}

func outputPath(p *project.Project, opts Options) string {
	out := p.OutputPath()
	if opts.Output != "" {
		out = opts.Output
		if !filepath.IsAbs(out) {
			out = filepath.Join(p.Root, out)
		}
	}
	if opts.Format != "" {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + "." + string(opts.Format)
	}
	return out
}

func index(ctx context.Context, p *project.Project, tree story.Node, res Result) (string, error) {
	refs, err := interpolate.References(tree)
	if err != nil {
		return "", err
	}
	if err := storage.Rebuild(ctx, p.Root, tree, refs); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(p.Root, res.Output)
	if err != nil {
		rel = res.Output
	}
	rec, err := storage.RecordBuild(ctx, p.Root, storage.BuildRecord{
		Output: filepath.ToSlash(rel),
		Format: string(res.Format),
		Words:  res.Words,
		Scenes: res.Scenes,
	})
	return rec.ID, err
}

// Index refreshes the project's search index from its draft without
// building a manuscript.
func Index(ctx context.Context, root string) (int, error) {
	p, err := project.Open(root)
	if err != nil {
		return 0, err
	}
	tree, err := p.LoadStory()
	if err != nil {
		return 0, err
	}
	refs, err := interpolate.References(tree)
	if err != nil {
		return 0, err
	}
	if err := storage.Rebuild(ctx, p.Root, tree, refs); err != nil {
		return 0, err
	}
	return len(story.Scenes(tree)), nil
}
