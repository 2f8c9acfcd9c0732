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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "makinilya/internal/log"
	"makinilya/internal/project"
	"makinilya/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump it together with a
	// new step in runMigrations.
	schemaVersion = 2
)

// IndexPath returns the project's index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, project.StateDirName, IndexFileName)
}

// OpenIndex opens (creating if needed) the per-project index and brings its
// schema up to date. An index that cannot be initialised is backed up,
// removed and created afresh; it only holds data derived from the draft
// and the build history.
func OpenIndex(ctx context.Context, projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("root", projectRoot))
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := openIndex(ctx, projectRoot)
	if err == nil {
		return db, nil
	}
	l.Warn("index unusable, recreating", slog.Any("err", err))
	path := IndexPath(projectRoot)
	backupIndexFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	db, err2 := openIndex(ctx, projectRoot)
	if err2 != nil {
		return nil, fmt.Errorf("recreate index: %w (open err: %v)", err2, err)
	}
	return db, nil
}

func openIndex(ctx context.Context, projectRoot string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Join(projectRoot, project.StateDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", project.StateDirName, err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(IndexPath(projectRoot)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	steps := []func(context.Context, *sql.DB) error{
		func(ctx context.Context, db *sql.DB) error {
			var chk string
			if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
				return fmt.Errorf("quick_check: %w", err)
			}
			if !strings.EqualFold(chk, "ok") {
				return fmt.Errorf("quick_check: %s", chk)
			}
			return nil
		},
		func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
			return err
		},
		ensureVersion,
		ensureSchema,
		runMigrations,
	}
	for _, step := range steps {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func ensureVersion(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id          INTEGER PRIMARY KEY CHECK(id=1),
		schema      INTEGER NOT NULL,
		app         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`,
			schemaVersion, version.String(), now, now)
	case err == nil:
		_, err = db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now)
	}
	if err != nil {
		return fmt.Errorf("version row: %w", err)
	}
	return nil
}

// SchemaVersion reports the schema recorded in the index.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scenes (
			scene_id INTEGER PRIMARY KEY,
			path     TEXT    NOT NULL UNIQUE,
			title    TEXT    NOT NULL,
			text     TEXT    NOT NULL,
			words    INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_scenes USING fts5(
			text,
			content='scenes',
			content_rowid='scene_id',
			tokenize = 'unicode61'
		);`,
		`CREATE TRIGGER IF NOT EXISTS scenes_ai AFTER INSERT ON scenes BEGIN
			INSERT INTO fts_scenes(rowid, text) VALUES (new.scene_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS scenes_ad AFTER DELETE ON scenes BEGIN
			INSERT INTO fts_scenes(fts_scenes, rowid, text) VALUES ('delete', old.scene_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS scenes_au AFTER UPDATE OF text ON scenes BEGIN
			INSERT INTO fts_scenes(fts_scenes, rowid, text) VALUES ('delete', old.scene_id, old.text);
			INSERT INTO fts_scenes(rowid, text) VALUES (new.scene_id, new.text);
		END;`,
		// placeholder occurrences, for where-used lookups
		`CREATE TABLE IF NOT EXISTS refs (
			scene_id   INTEGER NOT NULL REFERENCES scenes(scene_id) ON DELETE CASCADE,
			identifier TEXT    NOT NULL,
			line       INTEGER NOT NULL,
			col        INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			id     TEXT    PRIMARY KEY,
			ts     TEXT    NOT NULL,
			output TEXT    NOT NULL,
			format TEXT    NOT NULL,
			words  INTEGER NOT NULL,
			scenes INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refs_identifier ON refs(identifier);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_ts ON builds(ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental steps up to schemaVersion. Newer
// schemas written by a later release are left alone.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_refs_identifier ON refs(identifier);`,
				`CREATE INDEX IF NOT EXISTS idx_builds_ts ON builds(ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// backupIndexFile copies the index into a timestamped file next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), project.BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
