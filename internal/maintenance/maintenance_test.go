/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package maintenance

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	gologme "github.com/gologme/log"
)

type fakeStore struct {
	count       int
	prunedTo    int
	pruneCalled bool
}

func (f *fakeStore) ProcessedCount() (int, error) {
	return f.count, nil
}

func (f *fakeStore) ProcessedPrune(keep int) (int64, error) {
	f.pruneCalled = true
	f.prunedTo = keep
	removed := int64(f.count - keep)
	f.count = keep
	return removed, nil
}

func testRunner(cfg Config, store Store) *Runner {
	return NewRunner(cfg, store, gologme.New(io.Discard, "", 0))
}

func TestPruneProcessed(t *testing.T) {
	store := &fakeStore{count: 120}
	r := testRunner(Config{MaxProcessed: 100, KeepProcessed: 50}, store)

	removed, err := r.PruneProcessed()
	if err != nil {
		t.Fatalf("PruneProcessed: %v", err)
	}
	if removed != 70 || store.prunedTo != 50 {
		t.Fatalf("removed=%d prunedTo=%d", removed, store.prunedTo)
	}
}

func TestPruneProcessedBelowCeiling(t *testing.T) {
	store := &fakeStore{count: 100}
	r := testRunner(Config{MaxProcessed: 100, KeepProcessed: 50}, store)

	removed, err := r.PruneProcessed()
	if err != nil {
		t.Fatalf("PruneProcessed: %v", err)
	}
	if removed != 0 || store.pruneCalled {
		t.Fatalf("prune ran below ceiling (removed=%d)", removed)
	}
}

func TestCleanupLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	names := []string{"bot.log.4", "bot.log.3", "bot.log.2", "bot.log.1", "bot.log"}
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		// Oldest rotation first, bot.log newest.
		mtime := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}
	// A file not matching the pattern must survive.
	keep := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := testRunner(Config{LogDir: dir, KeepLogs: 3}, &fakeStore{})
	removed, err := r.CleanupLogs()
	if err != nil {
		t.Fatalf("CleanupLogs: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d files, want 2", removed)
	}

	for _, name := range []string{"bot.log", "bot.log.1", "bot.log.2", "other.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s should survive: %v", name, err)
		}
	}
	for _, name := range []string{"bot.log.3", "bot.log.4"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should be removed", name)
		}
	}
}

func TestCleanupLogsNothingToDo(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bot.log"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := testRunner(Config{LogDir: dir, KeepLogs: 3}, &fakeStore{})
	removed, err := r.CleanupLogs()
	if err != nil || removed != 0 {
		t.Fatalf("removed=%d err=%v", removed, err)
	}
}

func TestDiskStats(t *testing.T) {
	r := testRunner(Config{DataDir: t.TempDir()}, &fakeStore{})

	usage, err := r.DiskStats()
	if err != nil {
		t.Fatalf("DiskStats: %v", err)
	}
	if usage.TotalBytes == 0 {
		t.Fatal("total bytes is zero")
	}
	if usage.UsedPercent < 0 || usage.UsedPercent > 100 {
		t.Fatalf("used percent %.1f out of range", usage.UsedPercent)
	}
}
