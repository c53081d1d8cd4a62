/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// layout being edited, then exits non-zero.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"museumkiosk/internal/domain"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/storage"
	"museumkiosk/internal/telemetry"
	"museumkiosk/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Target describes what to save when the process panics. All fields are
// optional.
type Target struct {
	// Dir receives crash-<stamp>.log under its backups folder; empty means the temp dir.
	Dir string
	// Slot receives the autosave under storage.CrashKey.
	Slot storage.Slot
	// Snapshot returns the in-memory configuration at the time of the panic.
	Snapshot func() *domain.TabletConfiguration
}

// Recover captures a panic, logs it with the stack, writes a report file and
// autosaves the current layout.
//
// Usage: defer crash.Recover(target)
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(t, r, stack)
		autosave(l, t)

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func autosave(l *slog.Logger, t *Target) {
	if t == nil || t.Slot == nil || t.Snapshot == nil {
		return
	}
	// The snapshot func may itself be what panicked.
	defer func() {
		if r := recover(); r != nil {
			l.Error("autosave snapshot panicked", slog.Any("panic", r))
		}
	}()
	cfg := t.Snapshot()
	if cfg == nil {
		return
	}
	if err := storage.AutosaveCrashSnapshot(t.Slot, cfg); err != nil {
		l.Error("autosave crash snapshot failed", slog.Any("err", err))
		return
	}
	l.Info("autosave crash snapshot written", slog.String("key", storage.CrashKey), slog.Int("elements", len(cfg.Elements)))
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if t != nil && t.Dir != "" {
		dir = filepath.Join(t.Dir, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Museum Kiosk Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil && t.Dir != "" {
		_, _ = fmt.Fprintf(&buf, "StorageDir: %s\n", t.Dir)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
