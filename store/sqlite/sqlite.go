/*
Package sqlite provides a SQLite-backed implementation of the tabular store.

PURPOSE:
  A durable local stand-in for the remote spreadsheet backend: same sheets,
  same positional columns, same append-only contract. Used for development,
  tests, and stores that run the ledger off-line.

MODEL:
  sheets      sheet name -> JSON-encoded header
  sheet_rows  one row per appended row, cells as a JSON array, insertion
              order preserved by the rowid

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on sheet_rows
  - No DELETE statements on sheet_rows
  - Corrections happen the way the ledger corrects anything: by appending
    compensating rows

ATOMIC BATCHES:
  AppendRows wraps the batch in a database transaction, matching the
  remote backend's per-sheet batch-append atomicity.

WAL MODE:
  Opened with WAL so concurrent readers don't block the single writer.

USAGE:
  ts, err := sqlite.New("./data/fluxo.db")
  if err != nil { log.Fatal(err) }
  defer ts.Close()

SEE ALSO:
  - ledger/sheet.go: interface definition
  - ledger/store/memory.go: in-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
)

// TableStore implements ledger.TableStore using SQLite.
type TableStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database and lays out the standard sheets.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*TableStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ts := &TableStore{db: db}
	if err := ts.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return ts, nil
}

// Close closes the database connection.
func (s *TableStore) Close() error {
	return s.db.Close()
}

func (s *TableStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY,
		header_json TEXT NOT NULL
	);

	-- Append-only: rows are never updated or deleted.
	CREATE TABLE IF NOT EXISTS sheet_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sheet TEXT NOT NULL REFERENCES sheets(name),
		cells_json TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	defaults := map[string][]string{
		ledger.SheetReport:  ledger.ReportColumns,
		ledger.SheetRoster:  {ledger.ColSalesperson},
		ledger.SheetLenses:  ledger.LensColumns,
		ledger.SheetControl: ledger.ControlColumns,
	}
	for name, header := range defaults {
		if err := s.ensureSheet(name, header); err != nil {
			return err
		}
	}
	return nil
}

func (s *TableStore) ensureSheet(name string, header []string) error {
	hj, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO sheets (name, header_json) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, string(hj),
	)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

func (s *TableStore) AppendRow(ctx context.Context, sheet string, row map[string]string) error {
	return s.AppendRows(ctx, sheet, []map[string]string{row})
}

// AppendRows appends the batch inside one database transaction.
func (s *TableStore) AppendRows(ctx context.Context, sheet string, rows []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, err := s.headerLocked(ctx, sheet)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		cells := make([]string, len(header))
		for i, col := range header {
			cells[i] = row[col]
		}
		cj, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, cells_json) VALUES (?, ?)`,
			sheet, string(cj),
		); err != nil {
			return fmt.Errorf("append to %q: %w", sheet, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

func (s *TableStore) ReadHeader(ctx context.Context, sheet string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headerLocked(ctx, sheet)
}

func (s *TableStore) headerLocked(ctx context.Context, sheet string) ([]string, error) {
	var hj string
	err := s.db.QueryRowContext(ctx,
		`SELECT header_json FROM sheets WHERE name = ?`, sheet,
	).Scan(&hj)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(hj), &header); err != nil {
		return nil, fmt.Errorf("corrupt header for %q: %w", sheet, err)
	}
	return header, nil
}

func (s *TableStore) ReadColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, err := s.headerLocked(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if col < 1 || col > len(header) {
		return nil, fmt.Errorf("sheet %q has no column %d", sheet, col)
	}

	cellRows, err := s.cellsLocked(ctx, sheet)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(cellRows))
	for _, cells := range cellRows {
		if col <= len(cells) {
			values = append(values, cells[col-1])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

func (s *TableStore) ReadAllRows(ctx context.Context, sheet string) ([]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, err := s.headerLocked(ctx, sheet)
	if err != nil {
		return nil, err
	}
	cellRows, err := s.cellsLocked(ctx, sheet)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, 0, len(cellRows))
	for _, cells := range cellRows {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(cells) {
				rec[col] = cells[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *TableStore) cellsLocked(ctx context.Context, sheet string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cells_json FROM sheet_rows WHERE sheet = ? ORDER BY id`, sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cj string
		if err := rows.Scan(&cj); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cj), &cells); err != nil {
			return nil, fmt.Errorf("corrupt row in %q: %w", sheet, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}
