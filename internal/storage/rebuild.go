/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"makinilya/internal/interpolate"
	applog "makinilya/internal/log"
	"makinilya/internal/story"
)

// Rebuild replaces the indexed scenes and references with the given draft
// tree and its placeholder references. Scene paths are the slash-joined
// title paths used by interpolate.Reference.Scene.
func Rebuild(ctx context.Context, projectRoot string, tree story.Node, refs []interpolate.Reference) error {
	db, err := OpenIndex(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildDB(ctx, db, tree, refs)
}

func rebuildDB(ctx context.Context, db *sql.DB, tree story.Node, refs []interpolate.Reference) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_rebuild")

	type row struct {
		path, title, text string
		words             int
	}
	var rows []row
	story.Walk(tree, func(n story.Node, trail []string) bool {
		if c, ok := n.(*story.Content); ok {
			rows = append(rows, row{
				path:  strings.Join(trail, "/"),
				title: c.Title,
				text:  c.Source,
				words: len(strings.Fields(c.Source)),
			})
		}
		return true
	})

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{"DELETE FROM refs;", "DELETE FROM scenes;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO scenes(path, title, text, words) VALUES(?,?,?,?);")
	if err != nil {
		return fmt.Errorf("prepare scene insert: %w", err)
	}
	defer ins.Close()
	ids := make(map[string]int64, len(rows))
	for _, r := range rows {
		res, err := ins.ExecContext(ctx, r.path, r.title, r.text, r.words)
		if err != nil {
			return fmt.Errorf("insert scene %s: %w", r.path, err)
		}
		if ids[r.path], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("scene id: %w", err)
		}
	}

	refIns, err := tx.PrepareContext(ctx, "INSERT INTO refs(scene_id, identifier, line, col) VALUES(?,?,?,?);")
	if err != nil {
		return fmt.Errorf("prepare ref insert: %w", err)
	}
	defer refIns.Close()
	for _, r := range refs {
		id, ok := ids[r.Scene]
		if !ok {
			return fmt.Errorf("reference to unknown scene %q", r.Scene)
		}
		if _, err := refIns.ExecContext(ctx, id, r.Path.String(), r.Line, r.Column); err != nil {
			return fmt.Errorf("insert ref: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	// best effort
	_, _ = db.ExecContext(ctx, `INSERT INTO fts_scenes(fts_scenes) VALUES('optimize')`)
	l.Info("index rebuilt", slog.Int("scenes", len(rows)), slog.Int("refs", len(refs)))
	return nil
}
