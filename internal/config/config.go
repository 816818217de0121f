/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// IMAP holds the mail account settings. Credentials come from the
// environment, never from the config file.
type IMAP struct {
	Server  string `yaml:"server"`
	Port    int    `yaml:"port"`
	Mailbox string `yaml:"mailbox"`
	Archive string `yaml:"archive"`

	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

type Telegram struct {
	Token  string `yaml:"-"`
	ChatID string `yaml:"-"`
}

type Poll struct {
	Interval     time.Duration `yaml:"interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
}

type Maintenance struct {
	Every           time.Duration `yaml:"every"`
	MaxProcessed    int           `yaml:"max_processed"`
	KeepProcessed   int           `yaml:"keep_processed"`
	KeepLogs        int           `yaml:"keep_logs"`
	DiskWarnPercent float64       `yaml:"disk_warn_percent"`
	DiskCritPercent float64       `yaml:"disk_crit_percent"`
}

type Config struct {
	IMAP        IMAP        `yaml:"imap"`
	Telegram    Telegram    `yaml:"telegram"`
	Poll        Poll        `yaml:"poll"`
	Maintenance Maintenance `yaml:"maintenance"`
	DataDir     string      `yaml:"data_dir"`
	Debug       bool        `yaml:"debug"`
}

func Defaults() *Config {
	return &Config{
		IMAP: IMAP{
			Server:  "imap.zoho.eu",
			Port:    993,
			Mailbox: "INBOX",
		},
		Poll: Poll{
			Interval:     10 * time.Second,
			ErrorBackoff: 60 * time.Second,
		},
		Maintenance: Maintenance{
			Every:           time.Hour,
			MaxProcessed:    100,
			KeepProcessed:   50,
			KeepLogs:        3,
			DiskWarnPercent: 90,
			DiskCritPercent: 95,
		},
		DataDir: "data",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order. A .env file in the working directory is
// folded into the environment first, matching how the bot is run in
// development.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.IMAP.Username, "ZOHO_USER")
	setString(&c.IMAP.Password, "ZOHO_PASS")
	setString(&c.Telegram.Token, "TG_TOKEN")
	setString(&c.Telegram.ChatID, "TG_CHAT_ID")

	setString(&c.IMAP.Server, "MAILGRAM_IMAP_SERVER")
	setInt(&c.IMAP.Port, "MAILGRAM_IMAP_PORT")
	setString(&c.IMAP.Mailbox, "MAILGRAM_MAILBOX")
	setString(&c.IMAP.Archive, "MAILGRAM_ARCHIVE")
	setString(&c.DataDir, "MAILGRAM_DATA_DIR")
}

// Validate reports every missing required setting at once, so the
// operator can fix them in a single pass.
func (c *Config) Validate() error {
	var missing []string
	if c.IMAP.Username == "" {
		missing = append(missing, "ZOHO_USER")
	}
	if c.IMAP.Password == "" {
		missing = append(missing, "ZOHO_PASS")
	}
	if c.Telegram.Token == "" {
		missing = append(missing, "TG_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		missing = append(missing, "TG_CHAT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.Telegram.ChatID == "YOUR_CHAT_ID_HERE" {
		return fmt.Errorf("TG_CHAT_ID is still set to the placeholder value")
	}
	return nil
}

// DatabasePath is where the processed-message database lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "mailgram.db")
}

// LogDir is where rotated bot.log files live.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// PromptPassword reads the mail password from the terminal when it was
// not supplied through the environment.
func PromptPassword() (string, error) {
	fmt.Print("Mail password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("term.ReadPassword: %w", err)
	}
	return string(password), nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*target = n
		}
	}
}
