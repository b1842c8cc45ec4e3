// Package store provides TableStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory tabular store. It mimics the remote backend's
// semantics: named sheets, positional columns resolved through a header,
// append-only rows, and atomic per-sheet batch appends.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string]*memSheet
}

type memSheet struct {
	header []string
	rows   [][]string
}

// NewMemory creates an empty store with the standard sheets already laid out.
func NewMemory() *Memory {
	m := &Memory{sheets: make(map[string]*memSheet)}
	m.CreateSheet(ledger.SheetReport, ledger.ReportColumns)
	m.CreateSheet(ledger.SheetRoster, []string{ledger.ColSalesperson})
	m.CreateSheet(ledger.SheetLenses, ledger.LensColumns)
	m.CreateSheet(ledger.SheetControl, ledger.ControlColumns)
	return m
}

// CreateSheet registers a sheet with the given header, replacing any
// existing sheet of that name.
func (m *Memory) CreateSheet(name string, header []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[name] = &memSheet{header: append([]string(nil), header...)}
}

// SetHeader overwrites a sheet's header row. Exists so tests can simulate a
// remote sheet whose columns were reordered by hand.
func (m *Memory) SetHeader(name string, header []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sheets[name]; ok {
		s.header = append([]string(nil), header...)
	}
}

func (m *Memory) AppendRow(_ context.Context, sheet string, row map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(sheet, row)
}

// AppendRows appends all rows or none.
func (m *Memory) AppendRows(_ context.Context, sheet string, rows []map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	before := len(s.rows)
	for _, row := range rows {
		if err := m.appendLocked(sheet, row); err != nil {
			s.rows = s.rows[:before]
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(sheet string, row map[string]string) error {
	s, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	cells := make([]string, len(s.header))
	for i, col := range s.header {
		cells[i] = row[col]
	}
	s.rows = append(s.rows, cells)
	return nil
}

func (m *Memory) ReadHeader(_ context.Context, sheet string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return append([]string(nil), s.header...), nil
}

func (m *Memory) ReadColumn(_ context.Context, sheet string, col int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	if col < 1 || col > len(s.header) {
		return nil, fmt.Errorf("sheet %q has no column %d", sheet, col)
	}
	values := make([]string, 0, len(s.rows))
	for _, row := range s.rows {
		values = append(values, row[col-1])
	}
	return values, nil
}

func (m *Memory) ReadAllRows(_ context.Context, sheet string) ([]map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	out := make([]map[string]string, 0, len(s.rows))
	for _, row := range s.rows {
		rec := make(map[string]string, len(s.header))
		for i, col := range s.header {
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// RowCount returns the number of data rows in a sheet. Test helper.
func (m *Memory) RowCount(sheet string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sheets[sheet]; ok {
		return len(s.rows)
	}
	return 0
}
