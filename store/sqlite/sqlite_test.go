package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.TableStore {
	t.Helper()
	ts, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })
	return ts
}

// =============================================================================
// LAYOUT
// =============================================================================

func TestNew_LaysOutStandardSheets(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	header, err := ts.ReadHeader(ctx, ledger.SheetReport)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReportColumns, header)

	header, err = ts.ReadHeader(ctx, ledger.SheetLenses)
	require.NoError(t, err)
	assert.Equal(t, ledger.LensColumns, header)

	header, err = ts.ReadHeader(ctx, ledger.SheetRoster)
	require.NoError(t, err)
	assert.Equal(t, []string{ledger.ColSalesperson}, header)

	assert.NoError(t, ledger.CheckReportSchema(ctx, ts))
}

func TestReadHeader_UnknownSheet(t *testing.T) {
	ts := newTestStore(t)
	_, err := ts.ReadHeader(context.Background(), "nope")
	assert.Error(t, err)
}

// =============================================================================
// APPEND / READ
// =============================================================================

func TestAppendRow_RoundTrip(t *testing.T) {
	// GIVEN: A row keyed by column names, some columns missing
	// WHEN: Appending and reading back
	// THEN: Present cells survive verbatim, missing ones read as blank

	ts := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, ts.AppendRow(ctx, ledger.SheetReport, map[string]string{
		ledger.ColStore:    "LOJA 1",
		ledger.ColCustomer: "MARIA",
		ledger.ColDate:     "14/03/2026",
		ledger.ColReserve:  "1",
	}))

	rows, err := ts.ReadAllRows(ctx, ledger.SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MARIA", rows[0][ledger.ColCustomer])
	assert.Equal(t, "1", rows[0][ledger.ColReserve])
	assert.Equal(t, "", rows[0][ledger.ColSale])
}

func TestAppendRows_PreservesOrder(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	batch := []map[string]string{
		{ledger.ColCustomer: "FIRST", ledger.ColDate: "01/03/2026"},
		{ledger.ColCustomer: "SECOND", ledger.ColDate: "01/03/2026"},
		{ledger.ColCustomer: "THIRD", ledger.ColDate: "01/03/2026"},
	}
	require.NoError(t, ts.AppendRows(ctx, ledger.SheetReport, batch))

	rows, err := ts.ReadAllRows(ctx, ledger.SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "FIRST", rows[0][ledger.ColCustomer])
	assert.Equal(t, "SECOND", rows[1][ledger.ColCustomer])
	assert.Equal(t, "THIRD", rows[2][ledger.ColCustomer])
}

func TestAppendRows_UnknownSheetLeavesNothingBehind(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	err := ts.AppendRows(ctx, "nope", []map[string]string{{"A": "1"}})
	assert.Error(t, err)
}

func TestReadColumn(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"CARLA", "PEDRO"} {
		require.NoError(t, ts.AppendRow(ctx, ledger.SheetRoster,
			map[string]string{ledger.ColSalesperson: name}))
	}

	values, err := ts.ReadColumn(ctx, ledger.SheetRoster, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"CARLA", "PEDRO"}, values)

	_, err = ts.ReadColumn(ctx, ledger.SheetRoster, 2)
	assert.Error(t, err, "roster has a single column")
}

func TestSheetsAreIsolated(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, ts.AppendRow(ctx, ledger.SheetControl,
		map[string]string{ledger.ControlColumns[0]: "marker"}))

	rows, err := ts.ReadAllRows(ctx, ledger.SheetReport)
	require.NoError(t, err)
	assert.Empty(t, rows)

	values, err := ts.ReadColumn(ctx, ledger.SheetControl, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"marker"}, values)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	// GIVEN: Rows written to a file-backed store
	// WHEN: Closing and reopening the same path
	// THEN: The rows are still there

	path := t.TempDir() + "/fluxo.db"

	ts, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, ts.AppendRow(context.Background(), ledger.SheetReport, map[string]string{
		ledger.ColCustomer: "MARIA",
		ledger.ColDate:     "14/03/2026",
	}))
	require.NoError(t, ts.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.ReadAllRows(context.Background(), ledger.SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MARIA", rows[0][ledger.ColCustomer])
}
