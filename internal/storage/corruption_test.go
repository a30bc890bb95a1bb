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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagebuilder/internal/domain"
)

func TestOpenMovesCorruptDatabaseAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DBFileName)
	if err := os.WriteFile(path, []byte(strings.Repeat("THIS IS NOT SQLITE ", 64)), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on corrupt file: %v", err)
	}
	defer s.Close()
	if _, err := s.Load(context.Background(), "any"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("fresh store Load = %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if len(entries) != 1 {
		t.Fatalf("expected the corrupt file kept in backups, got %d entries", len(entries))
	}
}
