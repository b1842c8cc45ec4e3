/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error kinds in one place. Domain packages (stock, reservation) wrap
  these sentinels with structured types carrying operation context.

ERROR CATEGORIES:
  1. Adapter errors   - store unreachable, schema mismatch. Exceptional:
                        the operation aborts, nothing beyond what already
                        landed is assumed committed.
  2. Business errors  - insufficient stock, no open reservation. NOT
                        exceptional: returned as typed failures and carried
                        to the caller with enough detail for display.
  3. Malformed rows   - recovered locally: the row is skipped and
                        aggregation continues. Never fatal.

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) { ... }

SEE ALSO:
  - stock/engine.go: InsufficientStockError
  - reservation/lifecycle.go: NoOpenReservationError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAdapter is the root of all store connectivity failures.
	ErrAdapter = errors.New("tabular store adapter error")

	// ErrSchemaMismatch is returned when the report sheet header does not
	// match the 12-column contract. Fatal at startup.
	ErrSchemaMismatch = errors.New("report sheet schema mismatch")

	// ErrInsufficientStock is returned when a requested lens quantity
	// exceeds what the stock ledger shows as available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNoOpenReservation is returned when a conversion or abandonment is
	// attempted for a customer without an eligible open reservation.
	ErrNoOpenReservation = errors.New("no open reservation")

	// ErrMalformedRow marks a ledger row with an unparsable date or number.
	// Aggregations skip such rows; they never abort.
	ErrMalformedRow = errors.New("malformed ledger row")

	// ErrSweepThrottled is returned when a sweep is skipped because another
	// sweep ran recently or a concurrent actor won the control marker.
	ErrSweepThrottled = errors.New("sweep throttled")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// AdapterError wraps a store-level failure with the operation and sheet.
type AdapterError struct {
	Op    string
	Sheet string
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter: %s on sheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *AdapterError) Unwrap() error { return ErrAdapter }

// MalformedRowError describes why a row was skipped.
type MalformedRowError struct {
	Sheet string
	Field string
	Value string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row in sheet %q: field %s = %q", e.Sheet, e.Field, e.Value)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsAdapterError reports whether the failure is store connectivity, not a
// business rule. Callers should retry or surface an outage, never treat it
// as "no data".
func IsAdapterError(err error) bool {
	return errors.Is(err, ErrAdapter) || errors.Is(err, ErrSchemaMismatch)
}

// IsClientError reports whether the failure is due to the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNoOpenReservation)
}
