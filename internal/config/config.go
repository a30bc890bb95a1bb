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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	applog "pagebuilder/internal/log"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type CanvasConfig struct {
	Columns       int     `yaml:"columns"`
	Rows          int     `yaml:"rows"` // 0 = unbounded
	CellHeight    float64 `yaml:"cell_height"`
	SnapMode      string  `yaml:"snap_mode"` // "live" | "drop"
	PushOnOverlap bool    `yaml:"push_on_overlap"`
	Percentage    bool    `yaml:"percentage"`
}

type HistoryConfig struct {
	MaxDepth   int `yaml:"max_depth"`
	MaxBytes   int `yaml:"max_bytes"`
	CoalesceMs int `yaml:"coalesce_ms"` // 0 disables coalescing
}

type AutosaveConfig struct {
	Disabled   bool `yaml:"disabled"`
	DebounceMs int  `yaml:"debounce_ms"`
	MaxWaitMs  int  `yaml:"max_wait_ms"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | file | http | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Canvas        CanvasConfig   `yaml:"canvas"`
	History       HistoryConfig  `yaml:"history"`
	Autosave      AutosaveConfig `yaml:"autosave"`
	Storage       StorageConfig  `yaml:"storage"`
	Backend       BackendConfig  `yaml:"backend"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Canvas:        CanvasConfig{Columns: 12, Rows: 0, CellHeight: 40, SnapMode: "live"},
		History:       HistoryConfig{MaxDepth: 50, MaxBytes: 16 * 1024 * 1024},
		Autosave:      AutosaveConfig{DebounceMs: 1500, MaxWaitMs: 10000},
		Storage:       StorageConfig{Driver: "sqlite", Path: ""},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile       = "PB_CONFIG"
	EnvBackendURL       = "PB_BACKEND_URL"
	EnvBackendTimeoutMs = "PB_BACKEND_TIMEOUT_MS"
	EnvStorageDriver    = "PB_STORAGE_DRIVER"
	EnvStoragePath      = "PB_STORAGE_PATH"
	EnvStorageDSN       = "PB_STORAGE_DSN"
	EnvCanvasColumns    = "PB_CANVAS_COLUMNS"
	EnvCanvasSnapMode   = "PB_CANVAS_SNAP_MODE"
	EnvCanvasPush       = "PB_CANVAS_PUSH"
	EnvCanvasPercentage = "PB_CANVAS_PERCENTAGE"
	EnvAutosaveDisabled = "PB_AUTOSAVE_DISABLED"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PB_LOG_LEVEL"
	EnvLogFormat = "PB_LOG_FORMAT"
	EnvLogSource = "PB_LOG_SOURCE"
	EnvLogFile   = "PB_LOG_FILE"
)

// ConfigPath returns the per-user config file path, or the PB_CONFIG override.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the per-user directory for the default SQLite store.
func DataDir() (string, error) {
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "data"), nil
}

func userDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageBuilder")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageBuilder")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "pagebuilder")
	}
	return base, nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The backend token is loaded from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// canvas
	if src.Canvas.Columns > 0 {
		dst.Canvas.Columns = src.Canvas.Columns
	}
	if src.Canvas.Rows > 0 {
		dst.Canvas.Rows = src.Canvas.Rows
	}
	if src.Canvas.CellHeight > 0 {
		dst.Canvas.CellHeight = src.Canvas.CellHeight
	}
	if m := normalizeSnapMode(src.Canvas.SnapMode); m != "" {
		dst.Canvas.SnapMode = m
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Canvas.PushOnOverlap = src.Canvas.PushOnOverlap
	dst.Canvas.Percentage = src.Canvas.Percentage
	// history
	if src.History.MaxDepth > 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	if src.History.MaxBytes > 0 {
		dst.History.MaxBytes = src.History.MaxBytes
	}
	if src.History.CoalesceMs > 0 {
		dst.History.CoalesceMs = src.History.CoalesceMs
	}
	// autosave
	dst.Autosave.Disabled = src.Autosave.Disabled
	if src.Autosave.DebounceMs > 0 {
		dst.Autosave.DebounceMs = src.Autosave.DebounceMs
	}
	if src.Autosave.MaxWaitMs > 0 {
		dst.Autosave.MaxWaitMs = src.Autosave.MaxWaitMs
	}
	// storage
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); s != "" {
		dst.Storage.Driver = s
	}
	if s := strings.TrimSpace(src.Storage.Path); s != "" {
		dst.Storage.Path = s
	}
	if s := strings.TrimSpace(src.Storage.DSN); s != "" {
		dst.Storage.DSN = s
	}
	// backend
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
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

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasColumns)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Columns = n
		}
	}
	if m := normalizeSnapMode(os.Getenv(EnvCanvasSnapMode)); m != "" {
		cfg.Canvas.SnapMode = m
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasPush)); v != "" {
		cfg.Canvas.PushOnOverlap = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasPercentage)); v != "" {
		cfg.Canvas.Percentage = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosaveDisabled)); v != "" {
		cfg.Autosave.Disabled = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func normalizeSnapMode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live":
		return "live"
	case "drop", "on-drop", "ondrop":
		return "drop"
	default:
		return ""
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"backend.base_url":       EnvBackendURL,
		"backend.timeout_ms":     EnvBackendTimeoutMs,
		"storage.driver":         EnvStorageDriver,
		"storage.path":           EnvStoragePath,
		"storage.dsn":            EnvStorageDSN,
		"canvas.columns":         EnvCanvasColumns,
		"canvas.snap_mode":       EnvCanvasSnapMode,
		"canvas.push_on_overlap": EnvCanvasPush,
		"canvas.percentage":      EnvCanvasPercentage,
		"autosave.disabled":      EnvAutosaveDisabled,
		"logging.level":          EnvLogLevel,
		"logging.format":         EnvLogFormat,
		"logging.source":         EnvLogSource,
		"logging.file":           EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend request timeout, falling back to the default when unset.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Debounce is the quiet period before a pending autosave is written.
func (a AutosaveConfig) Debounce() time.Duration {
	return time.Duration(a.DebounceMs) * time.Millisecond
}

// MaxWait bounds how long continuous edits may postpone a save.
func (a AutosaveConfig) MaxWait() time.Duration {
	return time.Duration(a.MaxWaitMs) * time.Millisecond
}

// Coalesce is the history coalescing window; zero disables it.
func (h HistoryConfig) Coalesce() time.Duration {
	return time.Duration(h.CoalesceMs) * time.Millisecond
}

// LogOptions converts the logging section into logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
