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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

const (
	// LayoutExt is the file extension of layouts written by FileStore.
	LayoutExt      = ".json"
	BackupsDirName = "backups"

	stampLayout = "20060102-150405.000000000"
)

// FileStore keeps one <key>.json file per layout in Dir. Writes are
// transactional (temp file + rename) and the previous version is copied to
// a timestamped backup first. When the current file is missing or not valid
// JSON, Load falls back to the latest backup.
type FileStore struct {
	Dir string
	// KeepBackups limits the backups kept per key; 0 keeps all.
	KeepBackups int
	log         *slog.Logger
}

// NewFileStore creates dir and its backups folder if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("layout directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create layout dir: %w", err)
	}
	return &FileStore{Dir: dir, KeepBackups: 20, log: applog.WithComponent("storage").With(slog.String("dir", dir))}, nil
}

func (f *FileStore) path(key string) string { return filepath.Join(f.Dir, key+LayoutExt) }

// Load returns the layout for key, falling back to the latest backup.
func (f *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path(key))
	if err == nil && json.Valid(b) {
		return b, nil
	}
	reason := err
	if reason == nil {
		reason = errors.New("invalid JSON")
	}
	bak, berr := f.latestBackup(key)
	if berr != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load %s: %v; backup attempt: %w", key, reason, berr)
	}
	f.log.Warn("layout restored from backup", slog.String("key", key), slog.Any("reason", reason))
	return bak, nil
}

// Save writes data for key with a backup of the previous version.
func (f *FileStore) Save(_ context.Context, key string, data []byte) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	target := f.path(key)
	bdir := filepath.Join(f.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current file exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(target); statErr == nil {
		bname := fmt.Sprintf("%s%s.%s.bak", key, LayoutExt, time.Now().Format(stampLayout))
		if cerr := copyFile(target, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current layout: %w", cerr)
		}
		f.pruneBackups(key)
	}

	// Transactional write: to temp file in same directory, then rename over target
	temp := filepath.Join(f.Dir, fmt.Sprintf(".%s.tmp-%d-%d", key, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp layout: %w", werr)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		// On Windows, replace by removing destination first if needed
		_ = os.Remove(target)
		if rerr = os.Rename(temp, target); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace layout: %w", rerr)
		}
	}
	return nil
}

// Delete removes the current file of key. Backups are kept.
func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys lists the layouts present in Dir.
func (f *FileStore) Keys(context.Context) ([]string, error) {
	ents, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, LayoutExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, LayoutExt))
	}
	sort.Strings(out)
	return out, nil
}

// Backups returns the backup files of key, oldest first.
func (f *FileStore) Backups(key string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(f.Dir, BackupsDirName))
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := key + LayoutExt + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(f.Dir, BackupsDirName, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (f *FileStore) pruneBackups(key string) {
	if f.KeepBackups <= 0 {
		return
	}
	all, err := f.Backups(key)
	if err != nil || len(all) <= f.KeepBackups {
		return
	}
	for _, p := range all[:len(all)-f.KeepBackups] {
		_ = os.Remove(p)
	}
}

// latestBackup returns the newest backup of key that holds valid JSON.
func (f *FileStore) latestBackup(key string) ([]byte, error) {
	all, err := f.Backups(key)
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, errors.New("no usable backups found")
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
