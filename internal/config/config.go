/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// EditorConfig selects how pages are measured and when the pagination pass runs.
type EditorConfig struct {
	Measure string `yaml:"measure"` // "cells" | "font"
	// PageCapacity is the usable page height: lines for "cells", px for "font".
	// Zero selects the measurer's default.
	PageCapacity float64 `yaml:"page_capacity"`
	// PageWidth is the column count of a page for "cells".
	PageWidth     int    `yaml:"page_width"`
	FontFile      string `yaml:"font_file"`
	ReflowDelayMs int    `yaml:"reflow_delay_ms"`
}

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	Backend      string `yaml:"backend"` // "file" | "postgres"
	Index        bool   `yaml:"index"`
	SnapshotKeep int    `yaml:"snapshot_keep"`
	KeepBackups  int    `yaml:"keep_backups"`
}

type BackendConfig struct {
	DSN       string `yaml:"dsn"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// The database password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

const (
	MeasureCells = "cells"
	MeasureFont  = "font"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor:        EditorConfig{Measure: MeasureCells, PageWidth: 60, ReflowDelayMs: 50},
		Storage:       StorageConfig{Dir: "~/GoComicScript", Backend: BackendFile, Index: true, SnapshotKeep: 20, KeepBackups: 10},
		Backend:       BackendConfig{TimeoutMs: 10000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvMeasure       = "GCS_MEASURE"
	EnvPageCapacity  = "GCS_PAGE_CAPACITY"
	EnvFontFile      = "GCS_FONT_FILE"
	EnvReflowDelayMs = "GCS_REFLOW_DELAY_MS"
	EnvStorageDir    = "GCS_STORAGE_DIR"
	EnvStorage       = "GCS_STORAGE_BACKEND"
	EnvIndex         = "GCS_INDEX"
	EnvPGDSN         = "GCS_PG_DSN"
	EnvPGTimeoutMs   = "GCS_PG_TIMEOUT_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GCS_LOG_LEVEL"
	EnvLogFormat = "GCS_LOG_FORMAT"
	EnvLogSource = "GCS_LOG_SOURCE"
	EnvLogFile   = "GCS_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	KeyringService    = "GoComicScript"
	KeyringPGPassword = "pg_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoComicScript")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoComicScript")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "gocomicscript")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gocomicscript")
		}
	}
	if base == "" || base == "gocomicscript" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also returns the database password from the keyring; the password is never part of the struct.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file yields the defaults;
// a malformed one is an error.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg, data)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}
	pw, _ := tokenStore.Get(KeyringService, KeyringPGPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, password)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(KeyringService, KeyringPGPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects values no component can work with.
func (c AppConfig) Validate() error {
	switch c.Editor.Measure {
	case MeasureCells, MeasureFont:
	default:
		return fmt.Errorf("editor.measure: unknown measurer %q", c.Editor.Measure)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendPostgres && strings.TrimSpace(c.Backend.DSN) == "" {
		return errors.New("backend.dsn is required for the postgres backend")
	}
	if c.Editor.PageCapacity < 0 {
		return errors.New("editor.page_capacity must not be negative")
	}
	return nil
}

// mergeInto copies the set fields of src over dst. raw is the file content; booleans
// are only taken over when the file mentions them, so an absent key keeps its default.
func mergeInto(dst *AppConfig, src *AppConfig, raw []byte) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor
	if v := strings.ToLower(strings.TrimSpace(src.Editor.Measure)); v != "" {
		dst.Editor.Measure = v
	}
	if src.Editor.PageCapacity > 0 {
		dst.Editor.PageCapacity = src.Editor.PageCapacity
	}
	if src.Editor.PageWidth > 0 {
		dst.Editor.PageWidth = src.Editor.PageWidth
	}
	if v := strings.TrimSpace(src.Editor.FontFile); v != "" {
		dst.Editor.FontFile = v
	}
	if src.Editor.ReflowDelayMs > 0 {
		dst.Editor.ReflowDelayMs = src.Editor.ReflowDelayMs
	}
	// storage
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if mentions(raw, "storage", "index") {
		dst.Storage.Index = src.Storage.Index
	}
	if src.Storage.SnapshotKeep > 0 {
		dst.Storage.SnapshotKeep = src.Storage.SnapshotKeep
	}
	if src.Storage.KeepBackups > 0 {
		dst.Storage.KeepBackups = src.Storage.KeepBackups
	}
	// backend
	if v := strings.TrimSpace(src.Backend.DSN); v != "" {
		dst.Backend.DSN = v
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

// mentions reports whether the YAML document sets section.key.
func mentions(raw []byte, section, key string) bool {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return false
	}
	sec, ok := m[section].(map[string]any)
	if !ok {
		return false
	}
	_, ok = sec[key]
	return ok
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMeasure)); v != "" {
		cfg.Editor.Measure = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageCapacity)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.PageCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontFile)); v != "" {
		cfg.Editor.FontFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvReflowDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.ReflowDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorage)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndex)); v != "" {
		cfg.Storage.Index = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	// logging overrides
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
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

var envKeys = map[string]string{
	"editor.measure":         EnvMeasure,
	"editor.page_capacity":   EnvPageCapacity,
	"editor.font_file":       EnvFontFile,
	"editor.reflow_delay_ms": EnvReflowDelayMs,
	"storage.dir":            EnvStorageDir,
	"storage.backend":        EnvStorage,
	"storage.index":          EnvIndex,
	"backend.dsn":            EnvPGDSN,
	"backend.timeout_ms":     EnvPGTimeoutMs,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// StorageDir returns the storage directory with a leading "~" expanded.
func (s StorageConfig) StorageDir() (string, error) {
	dir, err := homedir.Expand(strings.TrimSpace(s.Dir))
	if err != nil {
		return "", fmt.Errorf("expand storage dir: %w", err)
	}
	return dir, nil
}

// FontPath returns the font file with a leading "~" expanded, or "" when unset.
func (e EditorConfig) FontPath() (string, error) {
	if strings.TrimSpace(e.FontFile) == "" {
		return "", nil
	}
	return homedir.Expand(strings.TrimSpace(e.FontFile))
}

// ReflowDelay is the debounce of the deferred pagination pass.
func (e EditorConfig) ReflowDelay() time.Duration {
	if e.ReflowDelayMs <= 0 {
		return time.Duration(Defaults().Editor.ReflowDelayMs) * time.Millisecond
	}
	return time.Duration(e.ReflowDelayMs) * time.Millisecond
}

// EffectiveTimeout returns the database timeout.
func (b BackendConfig) EffectiveTimeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// DSNWithPassword returns the DSN with password set when the DSN carries none.
// Both URL and keyword/value DSNs are supported.
func (b BackendConfig) DSNWithPassword(password string) string {
	dsn := strings.TrimSpace(b.DSN)
	if password == "" || dsn == "" {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return dsn
		}
		if _, set := u.User.Password(); set {
			return dsn
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String()
	}
	for _, f := range strings.Fields(dsn) {
		if strings.HasPrefix(f, "password=") {
			return dsn
		}
	}
	return dsn + " password='" + strings.ReplaceAll(password, "'", `\'`) + "'"
}
