/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in usage events and crash reports.
// Nothing leaves the machine unless PB_TELEMETRY_OPT_IN is set and a URL is configured.
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

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "PB_TELEMETRY_OPT_IN"
	EnvEventsURL = "PB_TELEMETRY_URL"
	EnvCrashURL  = "PB_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "PB_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "PB_TELEMETRY_DEBUG"
)

const queueSize = 64

// Config holds telemetry settings. The zero value is disabled.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv reads Config from PB_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client posts events from a bounded queue on a background goroutine.
// Events are dropped when the queue is full or a request fails.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}
	sent   sync.WaitGroup
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, building it from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package client and returns the previous one.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, queueSize),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. Props must not carry layout content or user data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.sent.Add(1)
	select {
	case c.q <- payload:
	default:
		c.sent.Done()
	}
}

// Flush waits until queued events are sent or ctx ends.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.sent.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			for {
				select {
				case <-c.q:
					c.sent.Done()
				default:
					return
				}
			}
		case item := <-c.q:
			buf, err := json.Marshal(item)
			if err == nil {
				c.post(context.Background(), c.cfg.EventsURL, "application/json", buf)
			}
			c.sent.Done()
		}
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return false
	}
	_ = resp.Body.Close()
	ok := resp.StatusCode/100 == 2
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
	return ok
}

// UploadCrash posts a crash report and waits for the answer, since the
// caller is about to exit. It reports whether the server accepted it.
func (c *Client) UploadCrash(ctx context.Context, report []byte) bool {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return false
	}
	return c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

// Event queues an event on the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// UploadCrash uploads a report with the default client.
func UploadCrash(ctx context.Context, report []byte) bool { return Default().UploadCrash(ctx, report) }
