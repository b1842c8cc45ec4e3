/*
handlers.go - HTTP handlers for the counter workflow

PURPOSE:
  Exposes the ledger core to the attendant-facing workflow layer. Handles
  HTTP request/response and JSON; every decision is delegated to the domain
  packages.

ENDPOINTS:
  GET  /api/health                        Liveness
  GET  /api/salespeople                   Roster (cached)
  POST /api/visits                        Record a workflow interaction
  GET  /api/balance                       Net reserve balance for a customer
  POST /api/stock/availability            Per-eye available units
  POST /api/reservations                  Reserve lens stock (double-checked)
  POST /api/reservations/{ref}/release    Release a lens hold
  POST /api/reservations/convert          Settle a reservation as a sale
  POST /api/reservations/abandon          Settle a reservation as a loss
  POST /api/sweep                         Opportunistic throttled sweep

ERROR HANDLING:
  Business failures are typed, never 500s:
  - 400: validation (missing fields, bad optical values)
  - 409: insufficient stock (with per-eye figures), no open reservation
  - 502: tabular store unreachable or schema mismatch

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/reservation"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. Everything reaches the
// backing store through the injected TableStore - no ambient singletons.
type Handler struct {
	Recorder *ledger.Recorder
	Roster   *ledger.Roster
	Calc     *ledger.Calculator
	Engine   *stock.Engine
	Manager  *reservation.Manager
	Sweeper  *reservation.Sweeper

	// MaxAge is the reservation expiry age used when a sweep request does
	// not override it.
	MaxAge time.Duration
}

// NewHandler wires a handler over a single tabular store adapter.
func NewHandler(store ledger.TableStore) *Handler {
	return &Handler{
		Recorder: ledger.NewRecorder(store),
		Roster:   ledger.NewRoster(store),
		Calc:     ledger.NewCalculator(store),
		Engine:   stock.NewEngine(store),
		Manager:  reservation.NewManager(store),
		Sweeper:  reservation.NewSweeper(store),
		MaxAge:   reservation.DefaultMaxAge,
	}
}

// =============================================================================
// HEALTH / ROSTER
// =============================================================================

// Health responds with a liveness payload.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSalespeople returns the roster.
// GET /api/salespeople
func (h *Handler) ListSalespeople(w http.ResponseWriter, r *http.Request) {
	names, err := h.Roster.Salespeople(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to load salespeople", err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// =============================================================================
// VISITS
// =============================================================================

// RecordVisit appends one workflow interaction to the ledger.
// POST /api/visits
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	var req VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Recorder.Record(r.Context(), ledger.Visit{
		Kind:        ledger.VisitKind(req.Kind),
		Store:       req.Store,
		Salesperson: req.Salesperson,
		Customer:    req.Customer,
	})
	if err != nil {
		if ledger.IsAdapterError(err) {
			writeError(w, http.StatusBadGateway, "Failed to record visit", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid visit", err)
		return
	}

	writeJSON(w, http.StatusCreated, VisitResponse{
		Store:       entry.Store,
		Salesperson: entry.Salesperson,
		Customer:    entry.Customer,
		Date:        entry.Date.Format(ledger.DateLayout),
		Time:        entry.Date.Format(ledger.TimeLayout),
		Kind:        req.Kind,
	})
}

// GetBalance returns a customer's derived reserve balance.
// GET /api/balance?customer=...&store=...&window_days=30
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customer := r.URL.Query().Get("customer")
	storeID := r.URL.Query().Get("store")
	if customer == "" || storeID == "" {
		writeError(w, http.StatusBadRequest, "customer and store are required", nil)
		return
	}

	var since *time.Time
	if days := r.URL.Query().Get("window_days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "window_days must be a positive integer", nil)
			return
		}
		t := time.Now().AddDate(0, 0, -n)
		since = &t
	}

	balance, err := h.Calc.NetReserveBalance(r.Context(), customer, storeID, since)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Customer: ledger.NormalizeName(customer),
		Store:    storeID,
		Balance:  balance,
	})
}

// =============================================================================
// STOCK
// =============================================================================

// CheckAvailability reports available units per eye.
// POST /api/stock/availability
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	od, err := stock.NewSKU(req.OD.Sphere, req.OD.Cylinder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid OD values", err)
		return
	}
	oe, err := stock.NewSKU(req.OE.Sphere, req.OE.Cylinder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid OE values", err)
		return
	}

	avail, err := h.Engine.Availability(r.Context(), od, oe)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to read stock", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		ODAvailable: avail.OD,
		OEAvailable: avail.OE,
	})
}

// Reserve commits a two-eye lens reservation.
// POST /api/reservations
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	od, err := stock.NewSKU(req.OD.Sphere, req.OD.Cylinder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid OD values", err)
		return
	}
	oe, err := stock.NewSKU(req.OE.Sphere, req.OE.Cylinder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid OE values", err)
		return
	}

	ref, err := h.Engine.Reserve(r.Context(), stock.Request{
		OD:          stock.Line{SKU: od, Qty: req.OD.Qty},
		OE:          stock.Line{SKU: oe, Qty: req.OE.Qty},
		Store:       req.Store,
		Customer:    req.Customer,
		Salesperson: req.Salesperson,
	})
	if err != nil {
		var insufficient *stock.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error: "Insufficient stock",
				Stock: &InsufficientStockDTO{
					ODRequested: insufficient.ODRequested,
					ODAvailable: insufficient.ODAvailable,
					OERequested: insufficient.OERequested,
					OEAvailable: insufficient.OEAvailable,
				},
			})
		case ledger.IsAdapterError(err):
			writeError(w, http.StatusBadGateway, "Failed to reserve", err)
		default:
			writeError(w, http.StatusBadRequest, "Invalid reservation", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, ReserveResponse{Reference: ref})
}

// Release appends compensating movements for a lens hold.
// POST /api/reservations/{ref}/release
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "reference is required", nil)
		return
	}
	if err := h.Engine.Release(r.Context(), ref); err != nil {
		writeError(w, http.StatusBadGateway, "Failed to release", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": ref, "status": "released"})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Convert settles an open reservation as a sale.
// POST /api/reservations/convert
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Manager.Convert)
}

// Abandon settles an open reservation as a loss.
// POST /api/reservations/abandon
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Manager.Abandon)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, customer, store, salesperson string) error) {

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := op(r.Context(), req.Customer, req.Store, req.Salesperson)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoOpenReservation):
			writeError(w, http.StatusConflict, "No open reservation", err)
		case ledger.IsAdapterError(err):
			writeError(w, http.StatusBadGateway, "Failed to settle reservation", err)
		default:
			writeError(w, http.StatusBadRequest, "Invalid settlement", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

// =============================================================================
// SWEEP
// =============================================================================

// Sweep triggers an opportunistic, throttled expiry sweep.
// POST /api/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	maxAge := h.MaxAge
	var req SweepRequest
	if r.Body != nil {
		// Empty body is fine: defaults apply.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.MaxAgeMinutes > 0 {
		maxAge = time.Duration(req.MaxAgeMinutes) * time.Minute
	}

	expired, err := h.Sweeper.Run(r.Context(), maxAge)
	if err != nil {
		if errors.Is(err, ledger.ErrSweepThrottled) {
			writeJSON(w, http.StatusOK, SweepResponse{Expired: 0, Throttled: true})
			return
		}
		writeError(w, http.StatusBadGateway, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Expired: expired})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
