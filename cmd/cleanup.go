/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	gologme "github.com/gologme/log"
	"github.com/spf13/cobra"

	"github.com/craftwatch/mailgram/internal/config"
	"github.com/craftwatch/mailgram/internal/maintenance"
	"github.com/craftwatch/mailgram/internal/storage/sqlite3"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up caches and report disk usage",
	Long: `Run the housekeeping pass by hand: prune the processed-message
database, remove old log files and report disk usage. The running bot
does the same automatically every hour.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config.Load: %w", err)
		}

		store, err := sqlite3.NewSQLite3Storage(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("sqlite3.NewSQLite3Storage: %w", err)
		}
		defer store.Close() // nolint:errcheck

		runner := maintenance.NewRunner(maintenance.Config{
			DataDir:         cfg.DataDir,
			LogDir:          cfg.LogDir(),
			MaxProcessed:    cfg.Maintenance.MaxProcessed,
			KeepProcessed:   cfg.Maintenance.KeepProcessed,
			KeepLogs:        cfg.Maintenance.KeepLogs,
			DiskWarnPercent: cfg.Maintenance.DiskWarnPercent,
			DiskCritPercent: cfg.Maintenance.DiskCritPercent,
		}, store, gologme.New(os.Stdout, "", 0))

		fmt.Println("Cache cleanup")
		fmt.Println("=============")
		reportCaches(cfg, store)
		reportDisk(runner)

		fmt.Println("\nRunning cleanup...")
		if removed, err := runner.PruneProcessed(); err != nil {
			fmt.Printf("Failed to prune processed IDs: %v\n", err)
		} else if removed > 0 {
			fmt.Printf("Pruned %d processed message IDs\n", removed)
		} else {
			fmt.Println("Processed IDs already clean")
		}
		if removed, err := runner.CleanupLogs(); err != nil {
			fmt.Printf("Failed to clean up logs: %v\n", err)
		} else if removed > 0 {
			fmt.Printf("Removed %d old log files\n", removed)
		} else {
			fmt.Println("Log files already clean")
		}

		fmt.Println("\nAfter cleanup:")
		reportCaches(cfg, store)
		reportDisk(runner)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func reportCaches(cfg *config.Config, store *sqlite3.SQLite3Storage) {
	if count, err := store.ProcessedCount(); err == nil {
		fmt.Printf("Processed message IDs: %d\n", count)
	}
	if info, err := os.Stat(cfg.DatabasePath()); err == nil {
		fmt.Printf("Database size: %.1f KB\n", float64(info.Size())/1024)
	}
	if files, err := filepath.Glob(filepath.Join(cfg.LogDir(), "bot.log*")); err == nil {
		var total int64
		for _, path := range files {
			if info, err := os.Stat(path); err == nil {
				total += info.Size()
			}
		}
		fmt.Printf("Log files: %.1f MB (%d files)\n", float64(total)/(1024*1024), len(files))
	}
}

func reportDisk(runner *maintenance.Runner) {
	usage, err := runner.DiskStats()
	if err != nil {
		fmt.Printf("Failed to check disk space: %v\n", err)
		return
	}
	fmt.Printf("Disk: %.1f MB total, %.1f MB free, %.1f%% used\n",
		float64(usage.TotalBytes)/(1024*1024),
		float64(usage.FreeBytes)/(1024*1024),
		usage.UsedPercent)
}
