/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in, anonymous event sender for kiosk usage
// events and crash uploads. Nothing is sent unless the device owner enabled
// it and configured an endpoint.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"museumkiosk/internal/config"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/version"

	"github.com/google/uuid"
)

// Kiosk events.
const (
	EventLayoutSaved   = "layout_saved"
	EventModalSaved    = "modal_saved"
	EventVisitorLoaded = "visitor_loaded"
	EventEnrichFailed  = "enrich_failed"
	EventIdleReset     = "idle_reset"
)

// Sink receives events. *Client implements it; Nop discards.
type Sink interface {
	Event(name string, props map[string]any)
}

// Nop is a Sink that drops everything.
type Nop struct{}

func (Nop) Event(string, map[string]any) {}

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
//   - MK_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
//   - MK_TELEMETRY_ENDPOINT: base URL; events go to <base>/events, crashes to <base>/crash
//   - MK_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
//   - MK_TELEMETRY_DEBUG: if set, logs send attempts
type Config struct {
	OptIn        bool
	Endpoint     string
	Timeout      time.Duration
	DebugLogging bool
}

func (c Config) eventsURL() string {
	if c.Endpoint == "" {
		return ""
	}
	return strings.TrimRight(c.Endpoint, "/") + "/events"
}

func (c Config) crashURL() string {
	if c.Endpoint == "" {
		return ""
	}
	return strings.TrimRight(c.Endpoint, "/") + "/crash"
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(config.EnvTelemetryOptIn)),
		Endpoint:     strings.TrimSpace(os.Getenv(config.EnvTelemetryTarget)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("MK_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("MK_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// FromConfig maps the telemetry section of the app config.
func FromConfig(tc config.TelemetryConfig) Config {
	return Config{OptIn: tc.Enabled, Endpoint: strings.TrimSpace(tc.Endpoint), Timeout: 1500 * time.Millisecond}
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// It never blocks the caller; the queue is bounded.
type Client struct {
	cfg     Config
	session string
	log     *slog.Logger
	cli     *http.Client
	q       chan any
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault initializes the package-level default client from env when first used.
func InitDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
}

// NewDefault creates and installs the default client with cfg.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// Default returns the package-level client.
func Default() *Client {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// New constructs a client with a fresh anonymous session id.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		session: uuid.NewString(),
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		q:       make(chan any, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether telemetry is opted in and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.Endpoint != "" }

// Session is the anonymous id attached to every event.
func (c *Client) Session() string { return c.session }

// Enabled reports whether the default client is enabled.
func Enabled() bool { return Default().Enabled() }

// Event queues a small JSON event if enabled. Props must not carry PII.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"session": c.session,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
		// queue full
	}
}

// Event using default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
		}
	}
}

func (c *Client) send(item any) {
	buf, _ := json.Marshal(item)
	req, err := http.NewRequest(http.MethodPost, c.cfg.eventsURL(), bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent")
	}
}

// UploadCrash posts an already-serialized crash report if opted in.
func (c *Client) UploadCrash(report []byte) {
	if !c.Enabled() {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, c.cfg.crashURL(), bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		req.Header.Set("X-Session", c.session)
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
	}(append([]byte(nil), report...))
}

// UploadCrash using default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
