/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
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

	"gopkg.in/yaml.v3"
)

// AppConfig is the device configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied after the file.
// Secrets (app password, member refresh token) are kept in the OS keyring, never here.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	ContentAPI    ContentAPIConfig `yaml:"content_api"`
	Storage       StorageConfig    `yaml:"storage"`
	Logging       LoggingConfig    `yaml:"logging"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
}

type GeneralConfig struct {
	ViewportWidth        int    `yaml:"viewport_width"`
	ViewportHeight       int    `yaml:"viewport_height"`
	InactivityTimeoutSec int    `yaml:"inactivity_timeout_sec"`
	Mode                 string `yaml:"mode"` // "configurator" | "visitor"
}

type ContentAPIConfig struct {
	BaseURL       string `yaml:"base_url"`
	UploadURL     string `yaml:"upload_url"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	Username      string `yaml:"username"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelayMs  int    `yaml:"retry_delay_ms"`
}

type StorageConfig struct {
	Dir         string `yaml:"dir"`
	Backend     string `yaml:"backend"` // "file" | "sqlite"
	HistoryKeep int    `yaml:"history_keep"`
	BackupKeep  int    `yaml:"backup_keep"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Kiosk modes.
const (
	ModeConfigurator = "configurator"
	ModeVisitor      = "visitor"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General: GeneralConfig{
			ViewportWidth:        1280,
			ViewportHeight:       800,
			InactivityTimeoutSec: 90,
			Mode:                 ModeConfigurator,
		},
		ContentAPI: ContentAPIConfig{
			BaseURL:       "http://localhost:8000",
			UploadURL:     "http://localhost:8000/uploads/media/",
			TimeoutMs:     10000,
			RetryAttempts: 2,
			RetryDelayMs:  250,
		},
		Storage:   StorageConfig{Backend: BackendFile, HistoryKeep: 20, BackupKeep: 10},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Telemetry: TelemetryConfig{},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "MK_CONFIG"
	EnvAPIURL          = "MK_API_URL"
	EnvUploadURL       = "MK_UPLOAD_URL"
	EnvAPITimeoutMs    = "MK_API_TIMEOUT_MS"
	EnvAPIUsername     = "MK_API_USERNAME"
	EnvStorageDir      = "MK_STORAGE_DIR"
	EnvStorageBackend  = "MK_STORAGE_BACKEND"
	EnvMode            = "MK_MODE"
	EnvInactivitySec   = "MK_INACTIVITY_SEC"
	EnvTelemetryOptIn  = "MK_TELEMETRY_OPT_IN"
	EnvTelemetryTarget = "MK_TELEMETRY_ENDPOINT"
	EnvLogLevel        = "MK_LOG_LEVEL"
	EnvLogFormat       = "MK_LOG_FORMAT"
	EnvLogSource       = "MK_LOG_SOURCE"
	EnvLogFile         = "MK_LOG_FILE"
)

// envKeys maps dotted config keys to their override variables.
var envKeys = map[string]string{
	"content_api.base_url":           EnvAPIURL,
	"content_api.upload_url":         EnvUploadURL,
	"content_api.timeout_ms":         EnvAPITimeoutMs,
	"content_api.username":           EnvAPIUsername,
	"storage.dir":                    EnvStorageDir,
	"storage.backend":                EnvStorageBackend,
	"general.mode":                   EnvMode,
	"general.inactivity_timeout_sec": EnvInactivitySec,
	"telemetry.enabled":              EnvTelemetryOptIn,
	"telemetry.endpoint":             EnvTelemetryTarget,
	"logging.level":                  EnvLogLevel,
	"logging.format":                 EnvLogFormat,
	"logging.source":                 EnvLogSource,
	"logging.file":                   EnvLogFile,
}

// ConfigPath returns the per-user config file path.
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
		base = filepath.Join(base, "MuseumKiosk")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MuseumKiosk")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "museumkiosk")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "museumkiosk")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file (if present), applies defaults and merges
// environment overrides. It returns the resolved config path alongside.
// A malformed file is reported as an error together with the usable defaults.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = err
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(filepath.Dir(path), "data")
	}
	return cfg, path, parseErr
}

// Save writes the config YAML with owner-only permissions.
func Save(cfg AppConfig) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// general
	if src.General.ViewportWidth > 0 {
		dst.General.ViewportWidth = src.General.ViewportWidth
	}
	if src.General.ViewportHeight > 0 {
		dst.General.ViewportHeight = src.General.ViewportHeight
	}
	if src.General.InactivityTimeoutSec > 0 {
		dst.General.InactivityTimeoutSec = src.General.InactivityTimeoutSec
	}
	if m := strings.ToLower(strings.TrimSpace(src.General.Mode)); m != "" {
		dst.General.Mode = m
	}
	// content api
	if s := strings.TrimSpace(src.ContentAPI.BaseURL); s != "" {
		dst.ContentAPI.BaseURL = s
	}
	if s := strings.TrimSpace(src.ContentAPI.UploadURL); s != "" {
		dst.ContentAPI.UploadURL = s
	}
	if src.ContentAPI.TimeoutMs > 0 {
		dst.ContentAPI.TimeoutMs = src.ContentAPI.TimeoutMs
	}
	if s := strings.TrimSpace(src.ContentAPI.Username); s != "" {
		dst.ContentAPI.Username = s
	}
	if src.ContentAPI.RetryAttempts > 0 {
		dst.ContentAPI.RetryAttempts = src.ContentAPI.RetryAttempts
	}
	if src.ContentAPI.RetryDelayMs > 0 {
		dst.ContentAPI.RetryDelayMs = src.ContentAPI.RetryDelayMs
	}
	// storage
	if s := strings.TrimSpace(src.Storage.Dir); s != "" {
		dst.Storage.Dir = s
	}
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); s != "" {
		dst.Storage.Backend = s
	}
	if src.Storage.HistoryKeep > 0 {
		dst.Storage.HistoryKeep = src.Storage.HistoryKeep
	}
	if src.Storage.BackupKeep > 0 {
		dst.Storage.BackupKeep = src.Storage.BackupKeep
	}
	// logging
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
	// telemetry: booleans copied straight from the file so opt-out persists
	dst.Telemetry.Enabled = src.Telemetry.Enabled
	if s := strings.TrimSpace(src.Telemetry.Endpoint); s != "" {
		dst.Telemetry.Endpoint = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(key string, dst *string, lower bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if lower {
				v = strings.ToLower(v)
			}
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = parseBool(v)
		}
	}
	str(EnvAPIURL, &cfg.ContentAPI.BaseURL, false)
	str(EnvUploadURL, &cfg.ContentAPI.UploadURL, false)
	num(EnvAPITimeoutMs, &cfg.ContentAPI.TimeoutMs)
	str(EnvAPIUsername, &cfg.ContentAPI.Username, false)
	str(EnvStorageDir, &cfg.Storage.Dir, false)
	str(EnvStorageBackend, &cfg.Storage.Backend, true)
	str(EnvMode, &cfg.General.Mode, true)
	num(EnvInactivitySec, &cfg.General.InactivityTimeoutSec)
	flag(EnvTelemetryOptIn, &cfg.Telemetry.Enabled)
	str(EnvTelemetryTarget, &cfg.Telemetry.Endpoint, false)
	str(EnvLogLevel, &cfg.Logging.Level, true)
	str(EnvLogFormat, &cfg.Logging.Format, true)
	flag(EnvLogSource, &cfg.Logging.Source)
	str(EnvLogFile, &cfg.Logging.File, false)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the dotted key is currently overridden.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the HTTP timeout for the content API.
func (c ContentAPIConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return time.Duration(Defaults().ContentAPI.TimeoutMs) * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryDelay returns the initial backoff delay for transient content API failures.
func (c ContentAPIConfig) RetryDelay() time.Duration {
	if c.RetryDelayMs <= 0 {
		return time.Duration(Defaults().ContentAPI.RetryDelayMs) * time.Millisecond
	}
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// InactivityTimeout returns the visitor idle reset interval.
func (g GeneralConfig) InactivityTimeout() time.Duration {
	if g.InactivityTimeoutSec <= 0 {
		return 90 * time.Second
	}
	return time.Duration(g.InactivityTimeoutSec) * time.Second
}
