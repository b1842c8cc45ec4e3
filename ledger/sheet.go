/*
sheet.go - Tabular store adapter interface and the report schema contract

PURPOSE:
  Defines the interface between the ledger logic and the remote tabular
  store (a spreadsheet-shaped backend: named sheets, positional columns,
  append-only rows). Different implementations can target Google Sheets,
  SQLite, or in-memory storage.

THE STORE IS DUMB:
  The backing store offers no transactions, no row locks, and no atomic
  increment. Every higher-level operation in this module is a non-atomic
  read-then-write against it. The ONLY atomicity we get is:
  - a single AppendRow lands entirely or not at all
  - an AppendRows batch on ONE sheet lands entirely or not at all

SCHEMA AS A WIRE CONTRACT:
  The 'relatorio' sheet layout (12 columns, A through L) is shared with
  external reporting consumers. It is treated as a versioned wire contract:
  CheckReportSchema validates the header row on first connection and fails
  fast with a clear diagnostic instead of silently proceeding against a
  reordered sheet.

SHEETS:
  relatorio  append-only interaction ledger (the 12-column contract)
  vendedor   read-only salesperson roster (column A)
  lentes     lens stock movement ledger
  controle   sweep coordination markers (last-swept-at, last row wins)

SEE ALSO:
  - entry.go: row <-> LedgerEntry mapping
  - ledger/store/memory.go: in-memory implementation
  - store/sqlite/sqlite.go: SQLite implementation
*/
package ledger

import (
	"context"
	"fmt"
)

// =============================================================================
// SHEET NAMES
// =============================================================================

const (
	SheetReport  = "relatorio"
	SheetRoster  = "vendedor"
	SheetLenses  = "lentes"
	SheetControl = "controle"
)

// =============================================================================
// COLUMNS - Fixed, positional, shared with external reporting
// =============================================================================

// Column names the backing store uses. These are the store's vocabulary
// (Portuguese), not ours - renaming them breaks every external consumer.
const (
	ColStore        = "LOJA"
	ColSalesperson  = "VENDEDOR"
	ColCustomer     = "CLIENTE"
	ColDate         = "DATA"
	ColAttendance   = "ATENDIMENTO"
	ColPrescription = "RECEITA"
	ColSale         = "VENDA"
	ColLoss         = "PERDA"
	ColReserve      = "RESERVA"
	ColInquiry      = "PESQUISA"
	ColExam         = "CONSULTA"
	ColTime         = "HORA"
)

// ReportColumns is the exact header of the 'relatorio' sheet, in order.
// Treated as a versioned wire contract: see CheckReportSchema.
var ReportColumns = []string{
	ColStore, ColSalesperson, ColCustomer, ColDate,
	ColAttendance, ColPrescription, ColSale, ColLoss, ColReserve,
	ColInquiry, ColExam, ColTime,
}

// Lens stock movement columns ('lentes' sheet).
const (
	ColSphere    = "ESFERICO"
	ColCylinder  = "CILINDRICO"
	ColQuantity  = "QTD"
	ColReference = "REFERENCIA"
)

// LensColumns is the header of the 'lentes' sheet.
var LensColumns = []string{
	ColSphere, ColCylinder, ColQuantity,
	ColCustomer, ColSalesperson, ColReference, ColDate, ColTime,
}

// ControlColumns is the header of the 'controle' sheet.
var ControlColumns = []string{"MARCADOR"}

// =============================================================================
// TABLE STORE - The adapter every component reads and writes through
// =============================================================================

// TableStore is the thin client to the remote tabular store.
//
// Rows are passed as column-name -> cell maps; the implementation resolves
// positions from the sheet header. Missing columns are written as blank
// cells - the store represents "zero" as an empty string.
//
// APPEND-ONLY: there is no update and no delete. Corrections are made by
// appending compensating rows with the opposite sign.
type TableStore interface {
	// AppendRow appends a single row. Atomic at the row level.
	AppendRow(ctx context.Context, sheet string, row map[string]string) error

	// AppendRows appends multiple rows to one sheet as a single batch.
	// Either all rows land or none do. Batches do NOT span sheets.
	AppendRows(ctx context.Context, sheet string, rows []map[string]string) error

	// ReadHeader returns the header row of a sheet.
	ReadHeader(ctx context.Context, sheet string) ([]string, error)

	// ReadColumn returns the values of a 1-based column, header excluded,
	// in row order.
	ReadColumn(ctx context.Context, sheet string, col int) ([]string, error)

	// ReadAllRows returns every data row as a header-keyed map, in row order.
	ReadAllRows(ctx context.Context, sheet string) ([]map[string]string, error)
}

// =============================================================================
// SCHEMA VALIDATION
// =============================================================================

// CheckReportSchema validates that the 'relatorio' header matches the
// 12-column contract positionally. Call once on startup.
//
// This intentionally FAILS instead of warning: a reordered sheet means every
// append lands in the wrong columns and every sum reads the wrong ones.
func CheckReportSchema(ctx context.Context, store TableStore) error {
	header, err := store.ReadHeader(ctx, SheetReport)
	if err != nil {
		return &AdapterError{Op: "read header", Sheet: SheetReport, Err: err}
	}

	if len(header) < len(ReportColumns) {
		return fmt.Errorf("%w: sheet %q has %d columns, want %d (%v)",
			ErrSchemaMismatch, SheetReport, len(header), len(ReportColumns), ReportColumns)
	}
	for i, want := range ReportColumns {
		if header[i] != want {
			return fmt.Errorf("%w: sheet %q column %d is %q, want %q",
				ErrSchemaMismatch, SheetReport, i+1, header[i], want)
		}
	}
	return nil
}
