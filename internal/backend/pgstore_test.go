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
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pagebuilder/internal/domain"
)

// openPGForTest connects to PB_PG_DSN and skips when no server is reachable.
func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("PB_PG_DSN")
	if dsn == "" {
		t.Skip("PB_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPGStore_RoundTrip(t *testing.T) {
	s := openPGForTest(t)
	ctx := context.Background()
	key := "pg-test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	if _, err := s.Load(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load missing err = %v", err)
	}
	if err := s.Save(ctx, key, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, key, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err := s.Load(ctx, key)
	if err != nil || string(got) != `{"a":2}` {
		t.Fatalf("Load = %s, %v", got, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, k := range keys {
		found = found || k == key
	}
	if !found {
		t.Fatalf("Keys missing %q", key)
	}
	// second open must not re-apply migrations
	if err := applyMigrations(ctx, s.db, s.log); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
}
