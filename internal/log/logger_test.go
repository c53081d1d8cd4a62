/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// lastJSONLine returns the last non-empty line of b decoded as a JSON object.
func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitAndStructuredLoggingToFile(t *testing.T) {
	// Keep the file outside t.TempDir: lumberjack holds the handle open.
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("mk_log_%d.json", time.Now().UnixNano()))
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &console})

	l := WithOperation(WithComponent("storage"), "save")
	l.Info("layout saved", slog.Int("elements", 3))

	time.Sleep(50 * time.Millisecond)
	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != AppName {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "storage" || m["op"] != "save" {
		t.Fatalf("component/op mismatch: %v", m)
	}
	if m["msg"] != "layout saved" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	// The console copy received the same record.
	if cm := lastJSONLine(t, console.Bytes()); cm["msg"] != "layout saved" {
		t.Fatalf("console msg mismatch: %v", cm["msg"])
	}
}

func TestScopeFromContextIsAttached(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Writer: &buf})

	ctx := ContextWithScope(context.Background(), "modal:42")
	WithComponent("layout").InfoContext(ctx, "element added")

	m := lastJSONLine(t, buf.Bytes())
	if m["scope"] != "modal:42" {
		t.Fatalf("scope attr mismatch: %v", m["scope"])
	}

	buf.Reset()
	WithComponent("layout").Info("no scope")
	if _, ok := lastJSONLine(t, buf.Bytes())["scope"]; ok {
		t.Fatalf("scope must be absent without context value")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Writer: &buf})
	L().Info("hidden")
	L().Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "WRN shown") {
		t.Fatalf("warn record missing: %q", out)
	}
}
