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
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite3Storage tracks which messages have already been forwarded and
// holds small pieces of persistent runtime state. All writes go through a
// single Writer, as SQLite tolerates only one writer at a time.
type SQLite3Storage struct {
	db     *sql.DB
	writer *Writer
	*TableProcessed
	*TableConfig
}

func NewSQLite3Storage(filename string) (*SQLite3Storage, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filename))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("db.Exec: %w", err)
	}
	s := &SQLite3Storage{
		db:     db,
		writer: &Writer{},
	}
	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("sqlite3.RunMigrations: %w", err)
	}
	if s.TableProcessed, err = NewTableProcessed(db, s.writer); err != nil {
		return nil, fmt.Errorf("sqlite3.NewTableProcessed: %w", err)
	}
	if s.TableConfig, err = NewTableConfig(db, s.writer); err != nil {
		return nil, fmt.Errorf("sqlite3.NewTableConfig: %w", err)
	}
	return s, nil
}

func (s *SQLite3Storage) Close() error {
	return s.db.Close()
}

// Writer serialises all mutating statements onto one goroutine at a time.
type Writer struct {
	mutex sync.Mutex
}

// Do runs fn inside txn if one is supplied, otherwise inside a fresh
// transaction that is committed on success and rolled back on error.
func (w *Writer) Do(db *sql.DB, txn *sql.Tx, fn func(txn *sql.Tx) error) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if txn != nil {
		return fn(txn)
	}
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("db.Begin: %w", err)
	}
	if err := fn(txn); err != nil {
		_ = txn.Rollback()
		return err
	}
	return txn.Commit()
}
