/*
lifecycle.go - Converting or abandoning an open reservation

PURPOSE:
  A reservation (RESERVA=+1) is eventually settled one of three ways:
  converted into a sale, abandoned by the customer, or expired by the
  sweeper. This file implements the first two. Both are compensating
  appends (RESERVA=-1 plus the outcome counter) - the original reservation
  row is never touched.

ELIGIBILITY:
  The customer must hold a net reserve balance >= 1 at this store within the
  eligibility window (default 30 days). The balance is recomputed from the
  ledger on demand, and then recomputed AGAIN immediately before the
  decrement lands: the store gives us no locks, so the second read shrinks
  the window in which another session settles the same reservation first.
  It cannot close it - two settlements racing through both rechecks can
  still double-spend, which business reconciliation catches downstream.

OUTCOME COUNTERS:
  Convert: ATENDIMENTO=1 VENDA=1 RESERVA=-1
  Abandon: PERDA=1 RESERVA=-1
*/
package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
)

// DefaultWindow is the eligibility window for settling a reservation.
const DefaultWindow = 30 * 24 * time.Hour

// =============================================================================
// ERRORS
// =============================================================================

// NoOpenReservationError is returned when the customer has no eligible open
// reservation at the store within the window.
type NoOpenReservationError struct {
	Customer string
	Store    string
	Window   time.Duration
}

func (e *NoOpenReservationError) Error() string {
	return fmt.Sprintf("customer %q has no open reservation at store %q within the last %d days",
		e.Customer, e.Store, int(e.Window.Hours()/24))
}

func (e *NoOpenReservationError) Unwrap() error { return ledger.ErrNoOpenReservation }

// =============================================================================
// MANAGER
// =============================================================================

// Manager settles open reservations.
type Manager struct {
	Store  ledger.TableStore
	Calc   *ledger.Calculator
	Window time.Duration
	Now    func() time.Time
}

func NewManager(store ledger.TableStore) *Manager {
	return &Manager{
		Store:  store,
		Calc:   ledger.NewCalculator(store),
		Window: DefaultWindow,
		Now:    time.Now,
	}
}

// Convert settles a reservation as a sale.
func (m *Manager) Convert(ctx context.Context, customer, storeID, salesperson string) error {
	return m.settle(ctx, customer, storeID, salesperson, true)
}

// Abandon settles a reservation as a loss.
func (m *Manager) Abandon(ctx context.Context, customer, storeID, salesperson string) error {
	return m.settle(ctx, customer, storeID, salesperson, false)
}

func (m *Manager) settle(ctx context.Context, customer, storeID, salesperson string, converted bool) error {
	customer = ledger.NormalizeName(customer)
	storeID = strings.TrimSpace(storeID)
	if customer == "" || storeID == "" || strings.TrimSpace(salesperson) == "" {
		return fmt.Errorf("customer, store and salesperson are required")
	}

	// Eligibility check.
	if err := m.requireOpenReservation(ctx, customer, storeID); err != nil {
		return err
	}

	// Recheck immediately before the decrement. Narrows, not closes, the
	// race against another session settling the same reservation.
	if err := m.requireOpenReservation(ctx, customer, storeID); err != nil {
		return err
	}

	entry := ledger.Entry{
		Store:       storeID,
		Salesperson: strings.TrimSpace(salesperson),
		Customer:    customer,
		Date:        m.Now(),
		Reserve:     -1,
	}
	if converted {
		entry.Attendance = 1
		entry.Sale = 1
	} else {
		entry.Loss = 1
	}

	if err := m.Store.AppendRow(ctx, ledger.SheetReport, entry.Row()); err != nil {
		return &ledger.AdapterError{Op: "append settlement", Sheet: ledger.SheetReport, Err: err}
	}
	return nil
}

func (m *Manager) requireOpenReservation(ctx context.Context, customer, storeID string) error {
	since := m.Now().Add(-m.Window)
	balance, err := m.Calc.NetReserveBalance(ctx, customer, storeID, &since)
	if err != nil {
		return err
	}
	if balance < 1 {
		return &NoOpenReservationError{Customer: customer, Store: storeID, Window: m.Window}
	}
	return nil
}
