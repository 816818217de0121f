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
	"time"
)

type TableProcessed struct {
	db              *sql.DB
	writer          *Writer
	insertProcessed *sql.Stmt
	selectProcessed *sql.Stmt
	countProcessed  *sql.Stmt
	pruneProcessed  *sql.Stmt
}

const processedSchema = `
	CREATE TABLE IF NOT EXISTS processed (
		seq			 INTEGER PRIMARY KEY AUTOINCREMENT,
		id			 TEXT NOT NULL UNIQUE,
		processed_at INTEGER NOT NULL
	);
`

const insertProcessedStmt = `
	INSERT OR IGNORE INTO processed (id, processed_at) VALUES($1, $2)
`

const selectProcessedStmt = `
	SELECT COUNT(*) FROM processed WHERE id = $1
`

const countProcessedStmt = `
	SELECT COUNT(*) FROM processed
`

const pruneProcessedStmt = `
	DELETE FROM processed WHERE seq NOT IN (
		SELECT seq FROM processed ORDER BY seq DESC LIMIT $1
	)
`

func NewTableProcessed(db *sql.DB, writer *Writer) (*TableProcessed, error) {
	t := &TableProcessed{
		db:     db,
		writer: writer,
	}
	_, err := db.Exec(processedSchema)
	if err != nil {
		return nil, fmt.Errorf("db.Exec: %w", err)
	}
	t.insertProcessed, err = db.Prepare(insertProcessedStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(insertProcessedStmt): %w", err)
	}
	t.selectProcessed, err = db.Prepare(selectProcessedStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(selectProcessedStmt): %w", err)
	}
	t.countProcessed, err = db.Prepare(countProcessedStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(countProcessedStmt): %w", err)
	}
	t.pruneProcessed, err = db.Prepare(pruneProcessedStmt)
	if err != nil {
		return nil, fmt.Errorf("db.Prepare(pruneProcessedStmt): %w", err)
	}
	return t, nil
}

// ProcessedMark records a message ID as forwarded. Marking the same ID
// twice is not an error.
func (t *TableProcessed) ProcessedMark(id string) error {
	return t.writer.Do(t.db, nil, func(txn *sql.Tx) error {
		_, err := txn.Stmt(t.insertProcessed).Exec(id, time.Now().Unix())
		return err
	})
}

func (t *TableProcessed) ProcessedContains(id string) (bool, error) {
	var count int
	if err := t.selectProcessed.QueryRow(id).Scan(&count); err != nil {
		return false, fmt.Errorf("t.selectProcessed.QueryRow: %w", err)
	}
	return count > 0, nil
}

func (t *TableProcessed) ProcessedCount() (int, error) {
	var count int
	err := t.countProcessed.QueryRow().Scan(&count)
	return count, err
}

// ProcessedPrune drops all but the newest keep entries and reports how
// many rows were removed.
func (t *TableProcessed) ProcessedPrune(keep int) (int64, error) {
	var removed int64
	err := t.writer.Do(t.db, nil, func(txn *sql.Tx) error {
		result, err := txn.Stmt(t.pruneProcessed).Exec(keep)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	return removed, err
}
