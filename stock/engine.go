/*
engine.go - Lens stock reservation under optimistic recheck

PURPOSE:
  Reserves physical lens stock against SKUs derived from an optical
  prescription. Stock is a derived value: the 'lentes' sheet is a movement
  ledger (positive QTD = intake, negative = hold) and the available count
  for a SKU is the sum of its movements. Committed state must never show a
  negative available count.

THE RACE, AND WHAT WE DO ABOUT IT:
  The backing store has no transactions: two attendants can read the same
  level snapshot and both pass the availability check before either commits.
  The engine cannot eliminate that window; it SHRINKS it by re-reading the
  level immediately before commit and re-validating both eyes (optimistic
  recheck). Residual oversell is an accepted, business-reconciled risk.

ATOMICITY BOUNDARIES:
  - Both eye movements go to the store in ONE batch append: either the whole
    hold lands or none of it does.
  - The follow-up reserve entry on the report ledger is a second, separate
    append. If it fails, the engine best-effort releases the hold it just
    took and reports an adapter error, so no silent half-reservation
    survives a connectivity failure.

SEE ALSO:
  - sku.go: key normalization
  - reservation/lifecycle.go: what happens to the reserve entry later
*/
package stock

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
)

// =============================================================================
// LEVEL - Derived stock snapshot
// =============================================================================

// Level maps sphere -> cylinder -> available units. Always rebuilt from the
// movement ledger; never cached across a mutating operation.
type Level map[string]map[string]int

// Available returns the summed units for a SKU. An unknown key is zero.
func (l Level) Available(sku SKU) int {
	return l[sku.Sphere][sku.Cylinder]
}

func (l Level) add(sku SKU, qty int) {
	row, ok := l[sku.Sphere]
	if !ok {
		row = make(map[string]int)
		l[sku.Sphere] = row
	}
	row[sku.Cylinder] += qty
}

// =============================================================================
// REQUEST / RESULTS
// =============================================================================

// Request is a transient two-eye reservation intent. It is persisted only as
// movement rows (and one report entry) on success.
type Request struct {
	OD          Line
	OE          Line
	Store       string
	Customer    string
	Salesperson string
}

// Availability reports the just-read available units per eye.
type Availability struct {
	OD int
	OE int
}

// InsufficientStockError reports requested vs available for BOTH eyes, so
// the attendant sees exactly which side fell short and by how much.
type InsufficientStockError struct {
	ODRequested, ODAvailable int
	OERequested, OEAvailable int
}

func (e *InsufficientStockError) Error() string {
	var parts []string
	if e.ODRequested > e.ODAvailable {
		parts = append(parts, fmt.Sprintf("OD: %d requested, %d available", e.ODRequested, e.ODAvailable))
	}
	if e.OERequested > e.OEAvailable {
		parts = append(parts, fmt.Sprintf("OE: %d requested, %d available", e.OERequested, e.OEAvailable))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error { return ledger.ErrInsufficientStock }

// =============================================================================
// ENGINE
// =============================================================================

// Engine reserves lens stock through the tabular store adapter.
type Engine struct {
	Store ledger.TableStore
	Now   func() time.Time
}

func NewEngine(store ledger.TableStore) *Engine {
	return &Engine{Store: store, Now: time.Now}
}

// Availability reads a fresh level snapshot and reports available units for
// each eye. Read-only; the numbers are advisory and may be stale by the time
// the attendant acts on them.
func (e *Engine) Availability(ctx context.Context, od, oe SKU) (Availability, error) {
	level, err := e.loadLevel(ctx)
	if err != nil {
		return Availability{}, err
	}
	return Availability{OD: level.Available(od), OE: level.Available(oe)}, nil
}

// Reserve commits a two-eye reservation under the optimistic recheck
// protocol and returns the reservation reference.
//
// Protocol:
//  1. read level, validate both eyes (fail early with full figures)
//  2. re-read level immediately before commit, validate again
//  3. append both eye holds as one atomic batch
//  4. append the RESERVA=+1 entry to the report ledger
func (e *Engine) Reserve(ctx context.Context, req Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	// First check: cheap rejection with the figures the attendant needs.
	level, err := e.loadLevel(ctx)
	if err != nil {
		return "", err
	}
	if err := checkLevel(level, req); err != nil {
		return "", err
	}

	// Second check, immediately before commit. Shrinks the concurrent-
	// reservation window; does not close it.
	level, err = e.loadLevel(ctx)
	if err != nil {
		return "", err
	}
	if err := checkLevel(level, req); err != nil {
		return "", err
	}

	ref := uuid.NewString()
	now := e.Now()
	holds := []map[string]string{
		e.movementRow(req.OD.SKU, -req.OD.Qty, req, ref, now),
		e.movementRow(req.OE.SKU, -req.OE.Qty, req, ref, now),
	}
	if err := e.Store.AppendRows(ctx, ledger.SheetLenses, holds); err != nil {
		return "", &ledger.AdapterError{Op: "append holds", Sheet: ledger.SheetLenses, Err: err}
	}

	// The customer-facing reserve entry. If this append fails we unwind the
	// hold we just took; the unwind itself is best-effort.
	entry := ledger.Entry{
		Store:        req.Store,
		Salesperson:  req.Salesperson,
		Customer:     req.Customer,
		Date:         now,
		Attendance:   1,
		Prescription: 1,
		Reserve:      1,
	}
	if err := e.Store.AppendRow(ctx, ledger.SheetReport, entry.Row()); err != nil {
		if relErr := e.Release(ctx, ref); relErr != nil {
			log.Printf("[Stock] failed to unwind hold %s after append error: %v", ref, relErr)
		}
		return "", &ledger.AdapterError{Op: "append reserve entry", Sheet: ledger.SheetReport, Err: err}
	}

	return ref, nil
}

// Release appends compensating positive movements for every uncompensated
// hold carrying the reference. Idempotent: a reference that was already
// released (or never held) releases nothing.
func (e *Engine) Release(ctx context.Context, ref string) error {
	rows, err := e.Store.ReadAllRows(ctx, ledger.SheetLenses)
	if err != nil {
		return &ledger.AdapterError{Op: "read rows", Sheet: ledger.SheetLenses, Err: err}
	}

	// Net quantity per SKU for this reference. Holds are negative; prior
	// releases cancel them out.
	net := make(map[SKU]int)
	var template map[string]string
	for _, row := range rows {
		if strings.TrimSpace(row[ledger.ColReference]) != ref {
			continue
		}
		sku := SKU{
			Sphere:   strings.TrimSpace(row[ledger.ColSphere]),
			Cylinder: strings.TrimSpace(row[ledger.ColCylinder]),
		}
		net[sku] += ledger.Counter(row[ledger.ColQuantity])
		template = row
	}

	var comps []map[string]string
	now := e.Now()
	for sku, qty := range net {
		if qty >= 0 {
			continue
		}
		comps = append(comps, map[string]string{
			ledger.ColSphere:      sku.Sphere,
			ledger.ColCylinder:    sku.Cylinder,
			ledger.ColQuantity:    fmt.Sprintf("%d", -qty),
			ledger.ColCustomer:    template[ledger.ColCustomer],
			ledger.ColSalesperson: template[ledger.ColSalesperson],
			ledger.ColReference:   ref,
			ledger.ColDate:        now.Format(ledger.DateLayout),
			ledger.ColTime:        now.Format(ledger.TimeLayout),
		})
	}
	if len(comps) == 0 {
		return nil
	}
	if err := e.Store.AppendRows(ctx, ledger.SheetLenses, comps); err != nil {
		return &ledger.AdapterError{Op: "append releases", Sheet: ledger.SheetLenses, Err: err}
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// loadLevel rebuilds the stock snapshot by summing every movement row.
// Rows with malformed optical values are skipped with a warning.
func (e *Engine) loadLevel(ctx context.Context) (Level, error) {
	rows, err := e.Store.ReadAllRows(ctx, ledger.SheetLenses)
	if err != nil {
		return nil, &ledger.AdapterError{Op: "read rows", Sheet: ledger.SheetLenses, Err: err}
	}

	level := make(Level)
	for _, row := range rows {
		sku, err := NewSKU(row[ledger.ColSphere], row[ledger.ColCylinder])
		if err != nil {
			log.Printf("[Stock] skipping movement row with bad SKU (%q/%q)",
				row[ledger.ColSphere], row[ledger.ColCylinder])
			continue
		}
		level.add(sku, ledger.Counter(row[ledger.ColQuantity]))
	}
	return level, nil
}

func (e *Engine) movementRow(sku SKU, qty int, req Request, ref string, at time.Time) map[string]string {
	return map[string]string{
		ledger.ColSphere:      sku.Sphere,
		ledger.ColCylinder:    sku.Cylinder,
		ledger.ColQuantity:    fmt.Sprintf("%d", qty),
		ledger.ColCustomer:    ledger.NormalizeName(req.Customer),
		ledger.ColSalesperson: strings.TrimSpace(req.Salesperson),
		ledger.ColReference:   ref,
		ledger.ColDate:        at.Format(ledger.DateLayout),
		ledger.ColTime:        at.Format(ledger.TimeLayout),
	}
}

func checkLevel(level Level, req Request) error {
	odAvail := level.Available(req.OD.SKU)
	oeAvail := level.Available(req.OE.SKU)

	// Same SKU on both eyes draws from one pool.
	if req.OD.SKU == req.OE.SKU {
		if req.OD.Qty+req.OE.Qty > odAvail {
			return &InsufficientStockError{
				ODRequested: req.OD.Qty, ODAvailable: odAvail,
				OERequested: req.OE.Qty, OEAvailable: oeAvail - req.OD.Qty,
			}
		}
		return nil
	}

	if req.OD.Qty > odAvail || req.OE.Qty > oeAvail {
		return &InsufficientStockError{
			ODRequested: req.OD.Qty, ODAvailable: odAvail,
			OERequested: req.OE.Qty, OEAvailable: oeAvail,
		}
	}
	return nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Store) == "" {
		return fmt.Errorf("store is required")
	}
	if ledger.NormalizeName(req.Customer) == "" {
		return fmt.Errorf("customer is required")
	}
	if strings.TrimSpace(req.Salesperson) == "" {
		return fmt.Errorf("salesperson is required")
	}
	if req.OD.Qty < 1 || req.OE.Qty < 1 {
		return fmt.Errorf("quantities must be at least 1")
	}
	return nil
}
