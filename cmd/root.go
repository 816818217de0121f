/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "mailgram",
		Short: "Forward CryptoCraft mail alerts to Telegram",
		Long: `mailgram polls an IMAP mailbox for CryptoCraft market alerts and
forwards them to a Telegram chat.

Credentials come from the environment (or a .env file):
  ZOHO_USER, ZOHO_PASS, TG_TOKEN, TG_CHAT_ID
`,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}
