/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pagebuilder/internal/domain"
)

// ErrInvalidKey is returned for empty keys or keys that are not safe file names.
var ErrInvalidKey = errors.New("storage: invalid layout key")

// CheckKey reports whether key is usable as a layout key on every backend.
func CheckKey(key string) error {
	k := strings.TrimSpace(key)
	if k == "" || k != key || k == "." || k == ".." || strings.ContainsAny(k, `/\:*?"<>|`) {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return nil
}

// language=SQL
// dialect=SQLite
const upsertLayoutSQL = `INSERT INTO layouts(key, body, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`

// Load returns the stored layout for key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM layouts WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return body, nil
}

// Save replaces the layout stored under key.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, upsertLayoutSQL, key, data, now); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes the layout, its snapshots and its previews.
func (s *Store) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM layouts WHERE key = ?`,
		`DELETE FROM snapshots WHERE design_key = ?`,
		`DELETE FROM previews WHERE key = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Keys lists the stored layout keys in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM layouts ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
