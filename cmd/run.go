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
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/craftwatch/mailgram/internal/bot"
	"github.com/craftwatch/mailgram/internal/config"
	"github.com/craftwatch/mailgram/internal/logging"
	"github.com/craftwatch/mailgram/internal/mailbox"
	"github.com/craftwatch/mailgram/internal/maintenance"
	"github.com/craftwatch/mailgram/internal/storage/sqlite3"
	"github.com/craftwatch/mailgram/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	Long:  `Poll the mailbox and forward new alerts until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config.Load: %w", err)
		}
		if cfg.IMAP.Password == "" && term.IsTerminal(int(syscall.Stdin)) {
			if cfg.IMAP.Password, err = config.PromptPassword(); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runBot(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.LogDir(), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.LogDir(), "bot.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %w", err)
	}
	defer logFile.Close() // nolint:errcheck
	logOutput := io.MultiWriter(os.Stdout, logFile)

	log := logging.New(logOutput, "Mailgram", cfg.Debug)
	log.Infof("Checking mail for %s every %v", cfg.IMAP.Username, cfg.Poll.Interval)

	store, err := sqlite3.NewSQLite3Storage(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("sqlite3.NewSQLite3Storage: %w", err)
	}
	defer store.Close() // nolint:errcheck

	source := mailbox.NewClient(mailbox.Config{
		Server:   cfg.IMAP.Server,
		Port:     cfg.IMAP.Port,
		Username: cfg.IMAP.Username,
		Password: cfg.IMAP.Password,
		Mailbox:  cfg.IMAP.Mailbox,
		Archive:  cfg.IMAP.Archive,
	}, logging.New(logOutput, "IMAP", cfg.Debug))
	defer source.Close() // nolint:errcheck

	sink := telegram.NewClient(telegram.Config{
		Token:  cfg.Telegram.Token,
		ChatID: cfg.Telegram.ChatID,
	}, logging.New(logOutput, "Telegram", cfg.Debug))

	keeper := maintenance.NewRunner(maintenance.Config{
		DataDir:         cfg.DataDir,
		LogDir:          cfg.LogDir(),
		MaxProcessed:    cfg.Maintenance.MaxProcessed,
		KeepProcessed:   cfg.Maintenance.KeepProcessed,
		KeepLogs:        cfg.Maintenance.KeepLogs,
		DiskWarnPercent: cfg.Maintenance.DiskWarnPercent,
		DiskCritPercent: cfg.Maintenance.DiskCritPercent,
	}, store, logging.New(logOutput, "Cleanup", cfg.Debug))

	b := bot.NewBot(bot.Config{
		PollInterval:     cfg.Poll.Interval,
		ErrorBackoff:     cfg.Poll.ErrorBackoff,
		MaintenanceEvery: cfg.Maintenance.Every,
		MaxProcessed:     cfg.Maintenance.MaxProcessed,
		KeepProcessed:    cfg.Maintenance.KeepProcessed,
	}, source, sink, store, keeper, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("bot.Start: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	return b.Stop()
}
