/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package sqlite3

import (
	"fmt"
	"testing"
)

func openTestStorage(t *testing.T) *SQLite3Storage {
	t.Helper()
	s, err := NewSQLite3Storage(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite3Storage: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestProcessedMarkAndContains(t *testing.T) {
	s := openTestStorage(t)

	if ok, err := s.ProcessedContains("42:7"); err != nil || ok {
		t.Fatalf("fresh store contains 42:7 (ok=%v, err=%v)", ok, err)
	}
	if err := s.ProcessedMark("42:7"); err != nil {
		t.Fatalf("ProcessedMark: %v", err)
	}
	if ok, err := s.ProcessedContains("42:7"); err != nil || !ok {
		t.Fatalf("marked ID not found (ok=%v, err=%v)", ok, err)
	}

	// Marking twice must not fail or create a second row.
	if err := s.ProcessedMark("42:7"); err != nil {
		t.Fatalf("ProcessedMark twice: %v", err)
	}
	if count, err := s.ProcessedCount(); err != nil || count != 1 {
		t.Fatalf("count after double mark = %d (err=%v)", count, err)
	}
}

func TestProcessedPruneKeepsNewest(t *testing.T) {
	s := openTestStorage(t)

	for i := 0; i < 120; i++ {
		if err := s.ProcessedMark(fmt.Sprintf("1:%d", i)); err != nil {
			t.Fatalf("ProcessedMark: %v", err)
		}
	}

	removed, err := s.ProcessedPrune(50)
	if err != nil {
		t.Fatalf("ProcessedPrune: %v", err)
	}
	if removed != 70 {
		t.Fatalf("removed %d rows, want 70", removed)
	}
	if count, _ := s.ProcessedCount(); count != 50 {
		t.Fatalf("kept %d rows, want 50", count)
	}

	// The survivors must be the most recently inserted IDs.
	if ok, _ := s.ProcessedContains("1:119"); !ok {
		t.Fatalf("newest ID pruned")
	}
	if ok, _ := s.ProcessedContains("1:0"); ok {
		t.Fatalf("oldest ID survived prune")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := openTestStorage(t)

	if value, err := s.ConfigGet(ConfigKeyLastPoll); err != nil || value != "" {
		t.Fatalf("unset key = %q (err=%v)", value, err)
	}
	if err := s.ConfigSet(ConfigKeyLastPoll, "2026-08-28T10:00:00Z"); err != nil {
		t.Fatalf("ConfigSet: %v", err)
	}
	if err := s.ConfigSet(ConfigKeyLastPoll, "2026-08-28T10:00:10Z"); err != nil {
		t.Fatalf("ConfigSet overwrite: %v", err)
	}
	value, err := s.ConfigGet(ConfigKeyLastPoll)
	if err != nil {
		t.Fatalf("ConfigGet: %v", err)
	}
	if value != "2026-08-28T10:00:10Z" {
		t.Fatalf("ConfigGet = %q", value)
	}
}
