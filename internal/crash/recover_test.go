/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"museumkiosk/internal/domain"
	"museumkiosk/internal/geometry"
	"museumkiosk/internal/storage"
)

// TestRecoverWritesReportAndAutosave checks the report, the crash autosave
// and the intercepted exit code.
func TestRecoverWritesReportAndAutosave(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	slot, err := storage.NewFileSlot(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	live := &domain.TabletConfiguration{
		ThemeID: "4",
		Elements: domain.Layout{{ID: "card-1-1", Type: domain.TypeCard, Data: json.RawMessage(`1`),
			Position: geometry.Pt(1, 2), Size: geometry.Sz(150, 100), ZIndex: 1}},
	}
	target := &Target{Dir: root, Slot: slot, Snapshot: func() *domain.TabletConfiguration { return live }}

	func() {
		defer Recover(target)
		panic("boom")
	}()

	var found string
	bdir := filepath.Join(root, storage.BackupsDirName)
	files, _ := os.ReadDir(bdir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(bdir, f.Name())
			break
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	doc, err := slot.Get(storage.CrashKey)
	if err != nil {
		t.Fatalf("crash autosave missing: %v", err)
	}
	var saved domain.TabletConfiguration
	if err := json.Unmarshal(doc, &saved); err != nil || len(saved.Elements) != 1 || saved.ThemeID != "4" {
		t.Fatalf("crash autosave content: %s", doc)
	}
	if _, err := slot.Get(storage.LayoutKey); err == nil {
		t.Fatalf("crash autosave must not touch the main layout key")
	}

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverSurvivesPanickingSnapshot(t *testing.T) {
	oldStderr := os.Stderr
	_, w, _ := os.Pipe()
	os.Stderr = w
	defer func() { _ = w.Close(); os.Stderr = oldStderr }()

	oldExit := exitFn
	exitFn = func(int) {}
	defer func() { exitFn = oldExit }()

	target := &Target{Dir: t.TempDir(), Slot: storage.NewMemorySlot(), Snapshot: func() *domain.TabletConfiguration { panic("again") }}
	func() {
		defer Recover(target)
		panic("first")
	}()
}
