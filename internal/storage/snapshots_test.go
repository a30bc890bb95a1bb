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
	"testing"
	"time"
)

func TestSnapshotsCRUD(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if blob, _, err := s.LatestSnapshot(ctx, "d1"); err != nil || blob != nil {
		t.Fatalf("LatestSnapshot on empty = %q, %v", blob, err)
	}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveSnapshot(ctx, "d1", []byte("hello"), base); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	blob, ts, err := s.LatestSnapshot(ctx, "d1")
	if err != nil || string(blob) != "hello" || !ts.Equal(base) {
		t.Fatalf("LatestSnapshot got %q %v err %v", blob, ts, err)
	}
	// sub-second steps must still order correctly
	for i := 0; i < 5; i++ {
		b := []byte{byte('a' + i)}
		if err := s.SaveSnapshot(ctx, "d1", b, base.Add(time.Duration(i+1)*100*time.Millisecond)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	if err := s.SaveSnapshot(ctx, "d2", []byte("other"), base); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListSnapshots(ctx, "d1", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	if string(list[0].Blob) != "e" || string(list[5].Blob) != "hello" {
		t.Fatalf("order = %q ... %q", list[0].Blob, list[5].Blob)
	}
	n, err := s.PruneSnapshots(ctx, "d1", 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneSnapshots = %d, %v", n, err)
	}
	list, err = s.ListSnapshots(ctx, "d1", 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSnapshots after prune got %d err %v", len(list), err)
	}
	if other, _ := s.ListSnapshots(ctx, "d2", 10); len(other) != 1 {
		t.Fatalf("prune touched another design")
	}
}
