/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config holds the per-user application settings of makinilya.
// Settings come from defaults, then the user's YAML file, then MKN_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// BuildConfig tunes manuscript builds. Format, when set to "docx" or "pdf",
// replaces the extension of the project's configured output path.
type BuildConfig struct {
	Workers int    `yaml:"workers"`
	Format  string `yaml:"format"`
	Index   bool   `yaml:"index"`
}

type PreviewConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the user-editable configuration file.
// config_version is bumped on incompatible changes.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Logging       LoggingConfig `yaml:"logging"`
	Build         BuildConfig   `yaml:"build"`
	Preview       PreviewConfig `yaml:"preview"`
}

func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Build:         BuildConfig{Workers: runtime.NumCPU(), Index: true},
		Preview:       PreviewConfig{Addr: "127.0.0.1:8080"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath  = "MKN_CONFIG"
	EnvWorkers     = "MKN_WORKERS"
	EnvFormat      = "MKN_FORMAT"
	EnvIndex       = "MKN_INDEX"
	EnvPreviewAddr = "MKN_PREVIEW_ADDR"
	EnvLogLevel    = "MKN_LOG_LEVEL"
	EnvLogFormat   = "MKN_LOG_FORMAT"
	EnvLogSource   = "MKN_LOG_SOURCE"
	EnvLogFile     = "MKN_LOG_FILE"
)

// ConfigPath returns the per-user config file path. MKN_CONFIG replaces it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Makinilya")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Makinilya")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "makinilya")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file if present and applies env overrides.
// A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// keys absent from the file keep their defaults
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg to the user config file.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
	if src.Build.Workers > 0 {
		dst.Build.Workers = src.Build.Workers
	}
	if v := normalizeFormat(src.Build.Format); v != "" {
		dst.Build.Format = v
	}
	dst.Build.Index = src.Build.Index
	if v := strings.TrimSpace(src.Preview.Addr); v != "" {
		dst.Preview.Addr = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Build.Workers = n
		}
	}
	if v := normalizeFormat(os.Getenv(EnvFormat)); v != "" {
		cfg.Build.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndex)); v != "" {
		cfg.Build.Index = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewAddr)); v != "" {
		cfg.Preview.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// normalizeFormat maps "PDF", ".docx" and similar to "pdf"/"docx"; anything else to "".
func normalizeFormat(v string) string {
	v = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), "."))
	switch v {
	case "pdf", "docx":
		return v
	}
	return ""
}

// EnvOverrideFor returns the env var that currently overrides key, if any.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"build.workers":  EnvWorkers,
		"build.format":   EnvFormat,
		"build.index":    EnvIndex,
		"preview.addr":   EnvPreviewAddr,
		"logging.level":  EnvLogLevel,
		"logging.format": EnvLogFormat,
		"logging.source": EnvLogSource,
		"logging.file":   EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
