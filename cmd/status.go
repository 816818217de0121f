/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	gologme "github.com/gologme/log"
	"github.com/spf13/cobra"

	"github.com/craftwatch/mailgram/internal/config"
	"github.com/craftwatch/mailgram/internal/storage/sqlite3"
	"github.com/craftwatch/mailgram/internal/telegram"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display bot status",
	Long:  `Show the last poll time, the processed-message count and whether the Telegram token works.`,
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

		lastPoll, err := store.ConfigGet(sqlite3.ConfigKeyLastPoll)
		if err != nil {
			return fmt.Errorf("store.ConfigGet: %w", err)
		}
		if lastPoll == "" {
			fmt.Println("Last poll: never")
		} else if when, err := time.Parse(time.RFC3339, lastPoll); err == nil {
			fmt.Printf("Last poll: %s (%v ago)\n", lastPoll, time.Since(when).Round(time.Second))
		} else {
			fmt.Printf("Last poll: %s\n", lastPoll)
		}

		if count, err := store.ProcessedCount(); err == nil {
			fmt.Printf("Processed messages: %d\n", count)
		}

		if cfg.Telegram.Token == "" {
			fmt.Println("Telegram: TG_TOKEN not set")
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink := telegram.NewClient(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, gologme.New(io.Discard, "", 0))
		if username, err := sink.Me(ctx); err != nil {
			fmt.Printf("Telegram: token check failed: %v\n", err)
		} else {
			fmt.Printf("Telegram: connected as @%s\n", username)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
