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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBadQuery is returned when search text cannot be used as an FTS5 query.
var ErrBadQuery = errors.New("invalid search query")

// SearchQuery describes a scene search.
// Text uses SQLite FTS5 syntax (terms, "phrases", AND/OR/NOT); text that is not
// valid FTS5 is searched as one literal phrase. Empty text lists every scene. PathPrefix restricts results to a part such as "draft/Chapter 1".
type SearchQuery struct {
	Text       string
	PathPrefix string
	Limit      int
	Offset     int
}

// SearchResult is one matching scene. Snippet marks hits with [ ].
type SearchResult struct {
	SceneID int64
	Path    string
	Title   string
	Words   int
	Snippet string
}

// Search runs q against the project's index.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	db, err := OpenIndex(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT s.scene_id, s.path, s.title, s.words, snippet(fts_scenes, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_scenes JOIN scenes s ON fts_scenes.rowid = s.scene_id\n")
		sb.WriteString("WHERE fts_scenes MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT s.scene_id, s.path, s.title, s.words, ''\nFROM scenes s\nWHERE 1=1\n")
	}
	if p := strings.TrimSpace(q.PathPrefix); p != "" {
		sb.WriteString(" AND (s.path = ? OR s.path LIKE ? ESCAPE '\\')\n")
		args = append(args, p, escapeLike(strings.TrimSuffix(p, "/"))+"/%")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY s.scene_id\nLIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	out, err := querySearch(ctx, db, sb.String(), args)
	if err == nil || strings.TrimSpace(q.Text) == "" || ctx.Err() != nil {
		return out, err
	}
	args[0] = phrase(q.Text)
	if out, perr := querySearch(ctx, db, sb.String(), args); perr == nil {
		return out, nil
	}
	return nil, fmt.Errorf("%w %q: %v", ErrBadQuery, q.Text, err)
}

// phrase quotes s as a single FTS5 string.
func phrase(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func querySearch(ctx context.Context, db *sql.DB, query string, args []any) ([]SearchResult, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.SceneID, &r.Path, &r.Title, &r.Words, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Usage is one placeholder occurrence found by WhereUsed.
type Usage struct {
	Identifier string
	Scene      string
	Line       int
	Column     int
}

// WhereUsed lists the placeholders that reference identifier or anything
// below it, so "names" also finds "names.mc".
func WhereUsed(ctx context.Context, projectRoot, identifier string) ([]Usage, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.New("identifier is required")
	}
	db, err := OpenIndex(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT r.identifier, s.path, r.line, r.col
		FROM refs r JOIN scenes s ON s.scene_id = r.scene_id
		WHERE r.identifier = ? OR r.identifier LIKE ? ESCAPE '\'
		ORDER BY s.scene_id, r.line, r.col`, identifier, escapeLike(identifier)+".%")
	if err != nil {
		return nil, fmt.Errorf("where-used query: %w", err)
	}
	defer rows.Close()
	var out []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.Identifier, &u.Scene, &u.Line, &u.Column); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// tsLayout sorts lexically in time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BuildRecord is one manuscript build kept in the index.
type BuildRecord struct {
	ID     string
	Time   time.Time
	Output string
	Format string
	Words  int
	Scenes int
}

// RecordBuild stores b with a fresh ID and the current time unless set.
func RecordBuild(ctx context.Context, projectRoot string, b BuildRecord) (BuildRecord, error) {
	db, err := OpenIndex(ctx, projectRoot)
	if err != nil {
		return b, err
	}
	defer db.Close()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Time.IsZero() {
		b.Time = time.Now()
	}
	_, err = db.ExecContext(ctx, `INSERT INTO builds(id, ts, output, format, words, scenes) VALUES(?,?,?,?,?,?)`,
		b.ID, b.Time.UTC().Format(tsLayout), b.Output, b.Format, b.Words, b.Scenes)
	if err != nil {
		return b, fmt.Errorf("record build: %w", err)
	}
	return b, nil
}

// Builds returns the most recent builds first.
func Builds(ctx context.Context, projectRoot string, limit int) ([]BuildRecord, error) {
	db, err := OpenIndex(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT id, ts, output, format, words, scenes FROM builds ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("builds query: %w", err)
	}
	defer rows.Close()
	var out []BuildRecord
	for rows.Next() {
		var b BuildRecord
		var ts string
		if err := rows.Scan(&b.ID, &ts, &b.Output, &b.Format, &b.Words, &b.Scenes); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if b.Time, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parse build time: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
