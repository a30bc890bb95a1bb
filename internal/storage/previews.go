/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// PreviewKind is a type discriminator for previews table rows.
// - thumb: raster thumbnail image (PNG) of a whole layout
// - geom: geometry cache blob (implementation-defined; JSON or binary)
const (
	PreviewKindThumb = "thumb"
	PreviewKindGeom  = "geom"
)

// EnvPreviewsMaxBytes caps the preview cache size.
const EnvPreviewsMaxBytes = "PB_PREVIEWS_MAX_BYTES"

// ErrBadDataURL is returned by SavePreview for input that is not a base64 image data URL.
var ErrBadDataURL = errors.New("storage: malformed image data url")

// GetPreview returns the blob of a preview variant and marks it as recently
// used. A missing preview yields nil, nil.
func (s *Store) GetPreview(ctx context.Context, key, kind string, w, h int) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM previews WHERE key=? AND kind=? AND w=? AND h=?`, key, kind, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	// touch
	now := time.Now().UTC().Format(tsLayout)
	_, _ = s.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE key=? AND kind=? AND w=? AND h=?`, now, key, kind, w, h)
	return blob, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
// For kind==thumb, blob bytes should be PNG or JPEG; for kind==geom, arbitrary.
func (s *Store) PutPreview(ctx context.Context, key, kind string, w, h int, blob []byte) error {
	if kind != PreviewKindThumb && kind != PreviewKindGeom {
		return fmt.Errorf("invalid kind: %s", kind)
	}
	if err := CheckKey(key); err != nil {
		return err
	}
	now := time.Now().UTC().Format(tsLayout)
	_, err := s.db.ExecContext(ctx, `INSERT INTO previews(key,kind,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(key,kind,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		key, kind, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if s.previewCap > 0 {
		if err := s.EvictPreviewsToFit(ctx, s.previewCap); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using the provided generator.
func (s *Store) GetOrCreatePreview(ctx context.Context, key, kind string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := s.GetPreview(ctx, key, kind, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := s.PutPreview(ctx, key, kind, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// SavePreview stores a "data:image/...;base64," thumbnail as the thumb
// preview of key, sized by the decoded image header.
func (s *Store) SavePreview(ctx context.Context, key, dataURL string) error {
	blob, err := DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	if err := s.PutPreview(ctx, key, PreviewKindThumb, cfg.Width, cfg.Height, blob); err != nil {
		return err
	}
	s.log.Debug("preview stored", slog.String("key", key), slog.Int("w", cfg.Width), slog.Int("h", cfg.Height))
	return nil
}

// LatestPreview returns the most recently updated thumbnail of key.
func (s *Store) LatestPreview(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM previews WHERE key=? AND kind=? ORDER BY updated_at DESC LIMIT 1`, key, PreviewKindThumb).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return blob, err
}

// DecodeDataURL extracts the payload of a base64 image data URL.
func DecodeDataURL(dataURL string) ([]byte, error) {
	head, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(head, "data:image/") || !strings.HasSuffix(head, ";base64") {
		return nil, ErrBadDataURL
	}
	blob, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return blob, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func (s *Store) EvictPreviewsToFit(ctx context.Context, capBytes int64) error {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Select victim ids ordered by last_access asc (oldest first), NULLs first
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]any, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (?` + strings.Repeat(",?", len(toDelete)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, toDelete...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	s.log.Debug("previews evicted", slog.Int("rows", len(toDelete)), slog.Int64("cap", capBytes))
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size
func (s *Store) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// SetPreviewCap overrides the cache cap read from the environment at Open.
func (s *Store) SetPreviewCap(capBytes int64) { s.previewCap = capBytes }

// MaxPreviewsBytesFromEnv reads PB_PREVIEWS_MAX_BYTES, defaulting to 64MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	const def = 64 * 1024 * 1024
	v := os.Getenv(EnvPreviewsMaxBytes)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
