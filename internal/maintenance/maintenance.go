/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package maintenance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gologme "github.com/gologme/log"
	"golang.org/x/sys/unix"
)

// Store is the slice of the storage layer the cleaner needs.
type Store interface {
	ProcessedCount() (int, error)
	ProcessedPrune(keep int) (int64, error)
}

type Config struct {
	DataDir string
	LogDir  string
	// Prune the processed table down to KeepProcessed entries once it
	// grows past MaxProcessed.
	MaxProcessed  int
	KeepProcessed int
	// Number of bot.log* files to keep, newest first.
	KeepLogs        int
	DiskWarnPercent float64
	DiskCritPercent float64
}

// Runner performs the periodic housekeeping the bot would otherwise leak:
// the processed-ID table, rotated log files and disk headroom.
type Runner struct {
	cfg   Config
	store Store
	log   *gologme.Logger
}

func NewRunner(cfg Config, store Store, log *gologme.Logger) *Runner {
	return &Runner{
		cfg:   cfg,
		store: store,
		log:   log,
	}
}

// Run performs one full housekeeping pass. Failures are logged but never
// abort the pass, a half-done cleanup is still better than none.
func (r *Runner) Run() {
	if removed, err := r.PruneProcessed(); err != nil {
		r.log.Errorf("Failed to prune processed IDs: %v", err)
	} else if removed > 0 {
		r.log.Infof("Pruned %d processed message IDs", removed)
	}

	if removed, err := r.CleanupLogs(); err != nil {
		r.log.Errorf("Failed to clean up log files: %v", err)
	} else if removed > 0 {
		r.log.Infof("Removed %d old log files", removed)
	}

	r.CheckDisk()
}

// PruneProcessed trims the processed table once it exceeds the configured
// ceiling. Below the ceiling nothing is touched.
func (r *Runner) PruneProcessed() (int64, error) {
	count, err := r.store.ProcessedCount()
	if err != nil {
		return 0, fmt.Errorf("store.ProcessedCount: %w", err)
	}
	if count <= r.cfg.MaxProcessed {
		return 0, nil
	}
	removed, err := r.store.ProcessedPrune(r.cfg.KeepProcessed)
	if err != nil {
		return 0, fmt.Errorf("store.ProcessedPrune: %w", err)
	}
	return removed, nil
}

// CleanupLogs deletes all but the newest KeepLogs rotated log files.
func (r *Runner) CleanupLogs() (int, error) {
	files, err := filepath.Glob(filepath.Join(r.cfg.LogDir, "bot.log*"))
	if err != nil {
		return 0, fmt.Errorf("filepath.Glob: %w", err)
	}
	if len(files) <= r.cfg.KeepLogs {
		return 0, nil
	}

	type logFile struct {
		path  string
		mtime int64
	}
	candidates := make([]logFile, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		candidates = append(candidates, logFile{path, info.ModTime().UnixNano()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].mtime < candidates[j].mtime
	})

	removed := 0
	for _, old := range candidates[:len(candidates)-r.cfg.KeepLogs] {
		if err := os.Remove(old.path); err != nil {
			r.log.Warnf("Failed to remove %s: %v", old.path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// DiskUsage describes the filesystem holding the data directory.
type DiskUsage struct {
	TotalBytes  uint64
	FreeBytes   uint64
	UsedPercent float64
}

// DiskStats reports usage of the filesystem backing the data directory.
func (r *Runner) DiskStats() (DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(r.cfg.DataDir, &stat); err != nil {
		return DiskUsage{}, fmt.Errorf("unix.Statfs: %w", err)
	}

	usage := DiskUsage{
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bfree * uint64(stat.Bsize),
	}
	if usage.TotalBytes > 0 {
		used := usage.TotalBytes - usage.FreeBytes
		usage.UsedPercent = float64(used) / float64(usage.TotalBytes) * 100
	}
	return usage, nil
}

// CheckDisk logs a warning when the disk fills up past the configured
// thresholds.
func (r *Runner) CheckDisk() {
	usage, err := r.DiskStats()
	if err != nil {
		r.log.Errorf("Failed to check disk space: %v", err)
		return
	}

	switch {
	case usage.UsedPercent > r.cfg.DiskCritPercent:
		r.log.Errorf("Disk almost full: %.1f%% used, %.1f MB free",
			usage.UsedPercent, float64(usage.FreeBytes)/(1024*1024))
	case usage.UsedPercent > r.cfg.DiskWarnPercent:
		r.log.Warnf("Disk getting full: %.1f%% used, %.1f MB free",
			usage.UsedPercent, float64(usage.FreeBytes)/(1024*1024))
	}
}
