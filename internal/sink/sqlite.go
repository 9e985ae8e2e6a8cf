// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/marcsplit/internal/extract"
	"github.com/pdiddy/marcsplit/pkg/types"
)

// Table writes the extracted rows of one destination into a SQLite database.
// The rows table holds one column per field spec with the flattened value
// (NULL when the column's only value is absent); the row_values table keeps
// every occurrence so repeated fields stay queryable one by one.
//
// All writes share one transaction committed on Close.
type Table struct {
	path    string
	db      *sql.DB
	tx      *sql.Tx
	insRow  *sql.Stmt
	insVal  *sql.Stmt
	columns []string
	flat    Flat
}

// OpenTable creates or truncates the database at path and prepares the
// schema for the given columns.
func OpenTable(path string, columns []string, flat Flat) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	ids, err := idents(columns)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale database: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	t := &Table{path: path, db: db, columns: columns, flat: flat}
	if err := t.createSchema(ids); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := t.prepare(ids); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Table) createSchema(ids []string) error {
	cols := make([]string, len(ids))
	for i, id := range ids {
		cols[i] = id + " TEXT"
	}
	statements := []string{
		`CREATE TABLE rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT,
			` + strings.Join(cols, ",\n\t\t\t") + `
		)`,
		`CREATE TABLE row_values (
			row_id INTEGER NOT NULL REFERENCES rows(id),
			column_name TEXT NOT NULL,
			position INTEGER NOT NULL,
			value TEXT
		)`,
		`CREATE INDEX idx_row_values_column ON row_values(column_name, value)`,
	}

	for _, stmt := range statements {
		if _, err := t.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (t *Table) prepare(ids []string) error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	marks := strings.Repeat(", ?", len(ids))
	insRow, err := tx.Prepare(`INSERT INTO rows (source, ` + strings.Join(ids, ", ") + `) VALUES (?` + marks + `)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing row insert: %w", err)
	}
	insVal, err := tx.Prepare(`INSERT INTO row_values (row_id, column_name, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing value insert: %w", err)
	}
	t.tx, t.insRow, t.insVal = tx, insRow, insVal
	return nil
}

// Path returns the database file.
func (t *Table) Path() string {
	return t.path
}

// Write inserts row and its individual values. A row that fails part way
// is rolled back to its savepoint so nothing of it is committed.
func (t *Table) Write(row types.Row) error {
	if len(row.Columns) != len(t.columns) {
		return fmt.Errorf("row %s has %d columns, table has %d", row.Source, len(row.Columns), len(t.columns))
	}

	if _, err := t.tx.Exec(`SAVEPOINT row_write`); err != nil {
		return fmt.Errorf("opening savepoint for row %s: %w", row.Source, err)
	}
	if err := t.insert(row); err != nil {
		if _, rbErr := t.tx.Exec(`ROLLBACK TO row_write`); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rolling back row %s: %w", row.Source, rbErr))
		}
		if _, relErr := t.tx.Exec(`RELEASE row_write`); relErr != nil {
			err = errors.Join(err, fmt.Errorf("releasing savepoint: %w", relErr))
		}
		return err
	}
	if _, err := t.tx.Exec(`RELEASE row_write`); err != nil {
		return fmt.Errorf("releasing savepoint for row %s: %w", row.Source, err)
	}
	return nil
}

func (t *Table) insert(row types.Row) error {
	args := make([]any, 0, len(t.columns)+1)
	args = append(args, nullable(row.Source))
	for _, c := range row.Columns {
		args = append(args, t.cell(c.Values))
	}
	res, err := t.insRow.Exec(args...)
	if err != nil {
		return fmt.Errorf("inserting row %s: %w", row.Source, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading row id: %w", err)
	}

	for _, c := range row.Columns {
		for pos, v := range c.Values {
			var val any
			if v.Valid {
				val = v.Text
			}
			if _, err := t.insVal.Exec(id, c.Name, pos, val); err != nil {
				return fmt.Errorf("inserting %s value %d of row %s: %w", c.Name, pos, row.Source, err)
			}
		}
	}
	return nil
}

// cell flattens one column. A column whose only value is absent is NULL.
func (t *Table) cell(values []types.Value) any {
	if len(values) == 1 && !values[0].Valid {
		return nil
	}
	flat := extract.Flatten(types.Row{Columns: []types.Column{{Values: values}}}, t.flat.Delimiter, t.flat.AbsentMarker)
	return flat[0]
}

// Close commits the pending rows and releases the database.
func (t *Table) Close() error {
	t.insRow.Close()
	t.insVal.Close()
	commitErr := t.tx.Commit()
	closeErr := t.db.Close()
	if commitErr != nil {
		return fmt.Errorf("committing %s: %w", t.path, commitErr)
	}
	return closeErr
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
