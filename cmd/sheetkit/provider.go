package main

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/sheetkit/sheetkit/pkg/value"
)

// dbProvider resolves [Book]Sheet!A1 references from a sqlite cell
// table, so formulas can read other workbooks without loading them.
type dbProvider struct {
	db *sql.DB
}

const providerSchema = `
CREATE TABLE IF NOT EXISTS cells (
	book  TEXT NOT NULL,
	sheet TEXT NOT NULL,
	row   INTEGER NOT NULL,
	col   INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (book, sheet, row, col)
);`

func openProvider(path string) (*dbProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening external store: %w", err)
	}
	if _, err := db.Exec(providerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing external store: %w", err)
	}
	return &dbProvider{db: db}, nil
}

func (p *dbProvider) Close() error { return p.db.Close() }

// ExternalValue implements value.ExternalValueProvider. Lookups are
// case-insensitive on book and sheet names; stored text that parses
// as a number or boolean comes back typed.
func (p *dbProvider) ExternalValue(book, sheet string, addr value.CellAddr) (value.Value, bool) {
	var raw string
	err := p.db.QueryRow(
		`SELECT value FROM cells
		 WHERE book = ? COLLATE NOCASE AND sheet = ? COLLATE NOCASE
		   AND row = ? AND col = ?`,
		book, sheet, addr.Row, addr.Col,
	).Scan(&raw)
	if err != nil {
		return value.Value{}, false
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Number(n), true
	}
	switch raw {
	case "TRUE":
		return value.Bool(true), true
	case "FALSE":
		return value.Bool(false), true
	}
	if ek, ok := value.ParseErrorCode(raw); ok {
		return value.Err(ek), true
	}
	return value.Text(raw), true
}
