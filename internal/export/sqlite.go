package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/seenimoa/tickersent/internal/aggregate"
)

// SQLiteTable is the table WriteSQLite (re)creates.
const SQLiteTable = "sentiment_cells"

const (
	dropCellsSQL   = `DROP TABLE IF EXISTS ` + SQLiteTable
	createCellsSQL = `CREATE TABLE ` + SQLiteTable + ` (
	ticker     TEXT    NOT NULL,
	date       TEXT    NOT NULL,
	mean_score REAL    NOT NULL,
	count      INTEGER NOT NULL,
	PRIMARY KEY (ticker, date)
)`
	insertCellSQL = `INSERT INTO ` + SQLiteTable + ` (ticker, date, mean_score, count) VALUES (?, ?, ?, ?)`
)

// WriteSQLite replaces the sentiment_cells table in the database at path
// with the table's cells. The table is an export only; nothing reads it back
// into a run.
func WriteSQLite(ctx context.Context, path string, table *aggregate.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, dropCellsSQL); err != nil {
		return fmt.Errorf("dropping %s: %w", SQLiteTable, err)
	}
	if _, err := tx.ExecContext(ctx, createCellsSQL); err != nil {
		return fmt.Errorf("creating %s: %w", SQLiteTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertCellSQL)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range Records(table) {
		if _, err := stmt.ExecContext(ctx, r.Ticker, r.Date, r.MeanScore, r.Count); err != nil {
			return fmt.Errorf("inserting %s %s: %w", r.Ticker, r.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
