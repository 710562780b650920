package repositories

import (
	"database/sql"
	"fmt"
)

// sequenced lists the tables that have a companion <table>_sequence counter.
var sequenced = map[string]bool{
	"tracks": true,
}

// execer is satisfied by both [sql.DB] and [sql.Tx].
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// inTx runs fn inside a transaction and commits when fn returns nil.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NextSequence increments and returns the insertion counter of table.
//
// Sequence numbers order cached rows by first insertion and never appear in CLI output.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	err := inTx(db, func(tx *sql.Tx) error {
		var err error
		sequence, err = nextSequence(tx, table)
		return err
	})
	return sequence, err
}

func nextSequence(q execer, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}
	counter := table + "_sequence"

	if _, err := q.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", counter)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := q.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", counter)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}
