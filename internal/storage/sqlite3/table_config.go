/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package sqlite3

import (
	"database/sql"
	"fmt"
)

// Config keys used by the poller.
const (
	ConfigKeyLastPoll      = "last_poll"
	ConfigKeyLastError     = "last_error"
	ConfigKeyForwardedBoot = "forwarded_total"
)

type TableConfig struct {
	db           *sql.DB
	writer       *Writer
	upsertConfig *sql.Stmt
	selectConfig *sql.Stmt
}

const configSchema = `
	CREATE TABLE IF NOT EXISTS config (
		key   TEXT NOT NULL PRIMARY KEY,
		value TEXT
	);
`

const upsertConfigStmt = `
	INSERT INTO config (key, value) VALUES($1, $2)
	ON CONFLICT(key) DO UPDATE SET value = $2
`

const selectConfigStmt = `
	SELECT value FROM config WHERE key = $1
`

func NewTableConfig(db *sql.DB, writer *Writer) (*TableConfig, error) {
	t := &TableConfig{
		db:     db,
		writer: writer,
	}
	_, err := db.Exec(configSchema)
	if err != nil {
		return nil, fmt.Errorf("db.Exec: %w", err)
	}
	t.upsertConfig, err = db.Prepare(upsertConfigStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(upsertConfigStmt): %w", err)
	}
	t.selectConfig, err = db.Prepare(selectConfigStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(selectConfigStmt): %w", err)
	}
	return t, nil
}

func (t *TableConfig) ConfigSet(key, value string) error {
	return t.writer.Do(t.db, nil, func(txn *sql.Tx) error {
		_, err := txn.Stmt(t.upsertConfig).Exec(key, value)
		return err
	})
}

// ConfigGet returns the stored value, or an empty string when the key has
// never been set.
func (t *TableConfig) ConfigGet(key string) (string, error) {
	var value sql.NullString
	err := t.selectConfig.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("t.selectConfig.QueryRow: %w", err)
	}
	return value.String, nil
}
