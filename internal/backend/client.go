/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

// maxBodyBytes bounds layout bodies on both ends of the wire.
const maxBodyBytes = 8 << 20

// Client is an HTTP LayoutStore talking to a pagebuilder backend.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
	log     *slog.Logger
}

var _ domain.LayoutStore = (*Client)(nil)

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
// A zero timeout selects 15s.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("backend"),
	}
}

func (c *Client) layoutURL(key string) (string, error) {
	u, err := url.Parse(c.BaseURL + "/api/layouts/" + url.PathEscape(key))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.client.Do(req)
}

// Load fetches the layout stored under key. A 404 maps to domain.ErrNotFound.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	u, err := c.layoutURL(key)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("load %q: %w", key, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server GET %s: %s", key, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return b, nil
}

// Save stores data under key with PUT.
func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	u, err := c.layoutURL(key)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	resp, err := c.do(ctx, http.MethodPut, u, data)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server PUT %s: %s: %s", key, resp.Status, strings.TrimSpace(string(msg)))
	}
	c.log.Debug("layout saved", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// Delete removes the layout stored under key. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	u, err := c.layoutURL(key)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server DELETE %s: %s", key, resp.Status)
	}
	return nil
}

// Keys lists the stored layout keys.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.BaseURL+"/api/layouts", nil)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server GET /api/layouts: %s", resp.Status)
	}
	var env struct {
		Keys []string `json:"keys"`
	}
	if err := decodeJSON(resp.Body, &env); err != nil {
		return nil, err
	}
	return env.Keys, nil
}
