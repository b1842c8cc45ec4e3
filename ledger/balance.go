/*
balance.go - Net reserve balance derived by summation

PURPOSE:
  Answers "how many open reservations does this customer hold at this store?"
  by summing the signed RESERVA column over matching rows. A reservation
  writes +1; a conversion, abandonment, or expiry writes -1. The balance is
  whatever those deltas sum to.

KEY INSIGHT:
  The balance is NEVER stored. It is recomputed from source rows on every
  use, because any prior read may be stale the moment another attendant
  session appends. Callers that are about to append based on a balance must
  re-read immediately before committing (see reservation/lifecycle.go).

TOLERANCE:
  The sheet is hand-editable. Blank or garbage counters read as zero; a row
  with an unparsable date is skipped with a logged warning, never fatal.
*/
package ledger

import (
	"context"
	"log"
	"strings"
	"time"
)

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// Calculator derives reserve balances from the report ledger.
// Read-only: it never appends.
type Calculator struct {
	Store TableStore
}

func NewCalculator(store TableStore) *Calculator {
	return &Calculator{Store: store}
}

// NetReserveBalance sums the RESERVA column over rows matching the customer
// (case-insensitive, trimmed) and store, optionally restricted to rows dated
// at or after since. Returns 0 (not an error) when nothing matches.
func (c *Calculator) NetReserveBalance(ctx context.Context, customer, storeID string, since *time.Time) (int, error) {
	rows, err := c.Store.ReadAllRows(ctx, SheetReport)
	if err != nil {
		return 0, &AdapterError{Op: "read rows", Sheet: SheetReport, Err: err}
	}

	customer = NormalizeName(customer)
	storeID = strings.TrimSpace(storeID)

	total := 0
	for _, row := range rows {
		if NormalizeName(row[ColCustomer]) != customer {
			continue
		}
		if strings.TrimSpace(row[ColStore]) != storeID {
			continue
		}
		if since != nil {
			date, err := time.Parse(DateLayout, strings.TrimSpace(row[ColDate]))
			if err != nil {
				log.Printf("[Balance] skipping row with bad date %q for %s", row[ColDate], customer)
				continue
			}
			if date.Before(since.Truncate(24 * time.Hour)) {
				continue
			}
		}
		total += Counter(row[ColReserve])
	}
	return total, nil
}

// OpenReservations returns the matching rows with RESERVA = +1, parsed,
// oldest first. Used by the sweeper to find expiry candidates; rows that
// fail to parse are skipped with a warning.
func (c *Calculator) OpenReservations(ctx context.Context, storeID string) ([]Entry, error) {
	rows, err := c.Store.ReadAllRows(ctx, SheetReport)
	if err != nil {
		return nil, &AdapterError{Op: "read rows", Sheet: SheetReport, Err: err}
	}

	storeID = strings.TrimSpace(storeID)
	var open []Entry
	for _, row := range rows {
		if Counter(row[ColReserve]) != 1 {
			continue
		}
		if storeID != "" && strings.TrimSpace(row[ColStore]) != storeID {
			continue
		}
		e, err := ParseEntry(row)
		if err != nil {
			log.Printf("[Balance] %v (skipped)", err)
			continue
		}
		open = append(open, e)
	}
	return open, nil
}
