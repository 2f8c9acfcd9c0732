/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project opens and scaffolds makinilya projects: a root directory
// holding Config.toml, a context file and a draft directory of scenes.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"makinilya/internal/domain"
	applog "makinilya/internal/log"
	"makinilya/internal/narrative"
	"makinilya/internal/story"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileName = "Config.toml"
	StateDirName   = ".makinilya"
	BackupsDirName = "backups"
)

// ErrExists is returned by Init when the target already holds a project.
var ErrExists = errors.New("project already exists")

// Project is an opened project. Paths in Config are relative to Root.
type Project struct {
	Root       string
	ConfigPath string
	Config     domain.Config
}

// Open reads and validates Config.toml in root.
func Open(root string) (*Project, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	cpath := filepath.Join(abs, ConfigFileName)
	b, err := os.ReadFile(cpath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg domain.Config
	if _, err := toml.Decode(string(b), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	cfg = cfg.WithDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applog.WithComponent("project").Debug("opened", slog.String("root", abs))
	return &Project{Root: abs, ConfigPath: cpath, Config: cfg}, nil
}

// Init scaffolds a new project in root with an example scene, context and
// configuration. It refuses to touch a directory that already has a Config.toml.
func Init(root string) (*Project, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	cpath := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(cpath); err == nil {
		return nil, fmt.Errorf("%s: %w", root, ErrExists)
	}
	chapter := filepath.Join(root, domain.DefaultDraftDirectory, "Chapter 1")
	if err := os.MkdirAll(chapter, 0o755); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	files := []struct {
		path string
		body string
	}{
		{filepath.Join(chapter, "Scene 1"+story.SceneExt), exampleScene},
		{filepath.Join(root, domain.DefaultContextPath), exampleContext},
		{cpath, exampleConfig},
	}
	for _, f := range files {
		if err := WriteFileAtomic(f.path, []byte(f.body), false); err != nil {
			return nil, fmt.Errorf("scaffold %s: %w", filepath.Base(f.path), err)
		}
	}
	applog.WithComponent("project").Info("project created", slog.String("root", root))
	return Open(root)
}

func (p *Project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

func (p *Project) DraftDir() string    { return p.path(p.Config.Project.DraftDirectory) }
func (p *Project) ContextPath() string { return p.path(p.Config.Project.ContextPath) }
func (p *Project) OutputPath() string  { return p.path(p.Config.Project.OutputPath) }

// StateDir holds the search index and crash reports.
func (p *Project) StateDir() string { return filepath.Join(p.Root, StateDirName) }

// BackupsDir holds copies of replaced manuscripts.
func (p *Project) BackupsDir() string {
	return filepath.Join(filepath.Dir(p.OutputPath()), BackupsDirName)
}

// LoadStory reads the draft directory.
func (p *Project) LoadStory() (*story.Part, error) {
	return story.Read(p.DraftDir())
}

// LoadContext reads the context file. A missing file yields an empty context.
func (p *Project) LoadContext() (*narrative.Context, error) {
	path := p.ContextPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		applog.WithComponent("project").Warn("context file missing, using empty context", slog.String("path", path))
		return narrative.Empty(), nil
	}
	return narrative.Read(path)
}

const exampleScene = "Hi, my name is {{ names.mc }}.\n"

const exampleContext = `[names]
mc = "Core"
`

const exampleConfig = `[project]
draft_directory = "draft"
output_path = "out/manuscript.docx"
context_path = "Context.toml"

[story]
title = "Untitled"
pen_name = "Unknown Author"

[author]
name = "Your Name"
address_1 = ""
address_2 = ""
mobile_number = ""
email_address = ""

# [agent]
# name = ""
# address_1 = ""
# address_2 = ""
# mobile_number = ""
# email_address = ""
`
