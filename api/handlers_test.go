package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/api"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*store.Memory, http.Handler) {
	t.Helper()
	m := store.NewMemory()
	h := api.NewHandler(m)
	return m, api.NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func seedOpenReservation(t *testing.T, m *store.Memory, customer, storeID string, age time.Duration) {
	t.Helper()
	e := ledger.Entry{
		Store:       storeID,
		Salesperson: "CARLA",
		Customer:    customer,
		Date:        time.Now().Add(-age),
		Reserve:     1,
	}
	require.NoError(t, m.AppendRow(context.Background(), ledger.SheetReport, e.Row()))
}

func seedLensStock(t *testing.T, m *store.Memory, sphere, cylinder string, qty int) {
	t.Helper()
	require.NoError(t, m.AppendRow(context.Background(), ledger.SheetLenses, map[string]string{
		ledger.ColSphere:   sphere,
		ledger.ColCylinder: cylinder,
		ledger.ColQuantity: fmt.Sprintf("%d", qty),
	}))
}

// =============================================================================
// HEALTH / ROSTER
// =============================================================================

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSalespeople(t *testing.T) {
	m, router := newTestServer(t)
	for _, name := range []string{"CARLA", "PEDRO"} {
		require.NoError(t, m.AppendRow(context.Background(), ledger.SheetRoster,
			map[string]string{ledger.ColSalesperson: name}))
	}

	rec := doJSON(t, router, http.MethodGet, "/api/salespeople", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"CARLA", "PEDRO"}, decode[[]string](t, rec))
}

// =============================================================================
// VISITS
// =============================================================================

func TestRecordVisit_Sale(t *testing.T) {
	m, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/visits", api.VisitRequest{
		Kind: "sale", Store: "LOJA 1", Salesperson: "CARLA", Customer: "maria",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[api.VisitResponse](t, rec)
	assert.Equal(t, "MARIA", resp.Customer)
	assert.Equal(t, "sale", resp.Kind)

	rows, err := m.ReadAllRows(context.Background(), ledger.SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0][ledger.ColAttendance])
	assert.Equal(t, "1", rows[0][ledger.ColPrescription])
	assert.Equal(t, "1", rows[0][ledger.ColSale])
}

func TestRecordVisit_UnknownKind(t *testing.T) {
	m, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/visits", api.VisitRequest{
		Kind: "refund", Store: "LOJA 1", Salesperson: "CARLA", Customer: "MARIA",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, m.RowCount(ledger.SheetReport))
}

func TestRecordVisit_ExamWithoutSalesperson(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/visits", api.VisitRequest{
		Kind: "exam", Store: "LOJA 1", Customer: "MARIA",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// BALANCE
// =============================================================================

func TestGetBalance(t *testing.T) {
	m, router := newTestServer(t)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 24*time.Hour)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 48*time.Hour)

	rec := doJSON(t, router, http.MethodGet, "/api/balance?customer=maria&store=LOJA+1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.BalanceResponse](t, rec)
	assert.Equal(t, "MARIA", resp.Customer)
	assert.Equal(t, 2, resp.Balance)
}

func TestGetBalance_MissingParams(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodGet, "/api/balance?customer=maria", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBalance_BadWindow(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodGet, "/api/balance?customer=maria&store=LOJA+1&window_days=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STOCK
// =============================================================================

func TestCheckAvailability(t *testing.T) {
	m, router := newTestServer(t)
	seedLensStock(t, m, "-2,00", "-0,50", 5)

	rec := doJSON(t, router, http.MethodPost, "/api/stock/availability", api.AvailabilityRequest{
		OD: api.EyeRequest{Sphere: "-2.0", Cylinder: "-0.5"},
		OE: api.EyeRequest{Sphere: "-9,00", Cylinder: "0,00"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.AvailabilityResponse](t, rec)
	assert.Equal(t, 5, resp.ODAvailable, "dot spelling must hit the comma-keyed stock")
	assert.Equal(t, 0, resp.OEAvailable)
}

func TestReserve_HappyPath(t *testing.T) {
	m, router := newTestServer(t)
	seedLensStock(t, m, "-2,00", "-0,50", 5)
	seedLensStock(t, m, "-1,00", "0,00", 3)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", api.ReserveRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "CARLA",
		OD: api.EyeRequest{Sphere: "-2,00", Cylinder: "-0,50", Qty: 1},
		OE: api.EyeRequest{Sphere: "-1,00", Cylinder: "0,00", Qty: 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[api.ReserveResponse](t, rec)
	assert.NotEmpty(t, resp.Reference)
	assert.Equal(t, 1, m.RowCount(ledger.SheetReport))
	assert.Equal(t, 4, m.RowCount(ledger.SheetLenses))
}

func TestReserve_InsufficientStock(t *testing.T) {
	m, router := newTestServer(t)
	seedLensStock(t, m, "-2,00", "-0,50", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", api.ReserveRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "CARLA",
		OD: api.EyeRequest{Sphere: "-2,00", Cylinder: "-0,50", Qty: 2},
		OE: api.EyeRequest{Sphere: "-1,00", Cylinder: "0,00", Qty: 1},
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	resp := decode[api.ErrorResponse](t, rec)
	require.NotNil(t, resp.Stock)
	assert.Equal(t, 2, resp.Stock.ODRequested)
	assert.Equal(t, 1, resp.Stock.ODAvailable)
	assert.Equal(t, 0, m.RowCount(ledger.SheetReport))
}

func TestReserve_InvalidOpticalValues(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", api.ReserveRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "CARLA",
		OD: api.EyeRequest{Sphere: "banana", Cylinder: "-0,50", Qty: 1},
		OE: api.EyeRequest{Sphere: "-1,00", Cylinder: "0,00", Qty: 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelease(t *testing.T) {
	m, router := newTestServer(t)
	seedLensStock(t, m, "-2,00", "-0,50", 5)
	seedLensStock(t, m, "-1,00", "0,00", 3)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", api.ReserveRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "CARLA",
		OD: api.EyeRequest{Sphere: "-2,00", Cylinder: "-0,50", Qty: 2},
		OE: api.EyeRequest{Sphere: "-1,00", Cylinder: "0,00", Qty: 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ref := decode[api.ReserveResponse](t, rec).Reference

	rec = doJSON(t, router, http.MethodPost, "/api/reservations/"+ref+"/release", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	avail := doJSON(t, router, http.MethodPost, "/api/stock/availability", api.AvailabilityRequest{
		OD: api.EyeRequest{Sphere: "-2,00", Cylinder: "-0,50"},
		OE: api.EyeRequest{Sphere: "-1,00", Cylinder: "0,00"},
	})
	resp := decode[api.AvailabilityResponse](t, avail)
	assert.Equal(t, 5, resp.ODAvailable)
	assert.Equal(t, 3, resp.OEAvailable)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestConvert(t *testing.T) {
	m, router := newTestServer(t)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 10*24*time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations/convert", api.SettleRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "PEDRO",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows, err := m.ReadAllRows(context.Background(), ledger.SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][ledger.ColSale])
	assert.Equal(t, "-1", rows[1][ledger.ColReserve])
}

func TestConvert_NoOpenReservation(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations/convert", api.SettleRequest{
		Store: "LOJA 1", Customer: "JOAO", Salesperson: "PEDRO",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAbandon(t *testing.T) {
	m, router := newTestServer(t)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 10*24*time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations/abandon", api.SettleRequest{
		Store: "LOJA 1", Customer: "MARIA", Salesperson: "PEDRO",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows, err := m.ReadAllRows(context.Background(), ledger.SheetReport)
	require.NoError(t, err)
	assert.Equal(t, "1", rows[1][ledger.ColLoss])
}

// =============================================================================
// SWEEP
// =============================================================================

func TestSweep_ExpiresAndThrottles(t *testing.T) {
	m, router := newTestServer(t)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 4*24*time.Hour)
	seedOpenReservation(t, m, "JOAO", "LOJA 1", time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/sweep", api.SweepRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SweepResponse](t, rec)
	assert.Equal(t, 1, resp.Expired)
	assert.False(t, resp.Throttled)

	// Second trigger inside the throttle window.
	rec = doJSON(t, router, http.MethodPost, "/api/sweep", api.SweepRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decode[api.SweepResponse](t, rec)
	assert.Equal(t, 0, resp.Expired)
	assert.True(t, resp.Throttled)
}

func TestSweep_MaxAgeOverride(t *testing.T) {
	m, router := newTestServer(t)
	seedOpenReservation(t, m, "MARIA", "LOJA 1", 2*time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/sweep", api.SweepRequest{MaxAgeMinutes: 60})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SweepResponse](t, rec)
	assert.Equal(t, 1, resp.Expired, "2h-old hold should expire under a 60-minute override")
}
