/*
sweeper.go - Expiring stale reservations

PURPOSE:
  A reservation that is never converted or abandoned must not inflate the
  customer's reserve balance forever. The sweeper scans the ledger for open
  (RESERVA=+1) entries older than a configurable age and appends a
  compensating RESERVA=-1 entry for each. Originals are never touched.

WHICH ROWS ARE "STILL OPEN":
  The ledger does not link a compensation to the reservation it retracts.
  The sweeper therefore treats compensations as fungible against the oldest
  holds: for each (customer, store) it counts aged +1 rows and subtracts ALL
  -1 rows (settlements and prior expirations alike), expiring only the
  uncovered remainder. This is what makes an immediate re-run a no-op and
  prevents double-compensating a reservation the attendant already settled.

CONCURRENT SWEEPS:
  Several sessions sweep opportunistically. Two throttles, neither a lock:
  - a process-lifetime "last swept at" hint
  - a stored marker in the 'controle' sheet, appended then re-read with the
    same optimistic-recheck discipline as stock reservation: if someone
    else's marker lands after ours, they win and we stand down.
  Both narrow the duplicate-sweep window; a simultaneous trigger can still
  double-sweep, and the per-group arithmetic above keeps even that harmless
  in all but the tightest interleavings.

FAULT TOLERANCE:
  Malformed rows are skipped with a warning. An append failure mid-sweep
  stops the sweep but the count returned includes only compensations that
  confirmably landed.
*/
package reservation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
)

// DefaultMaxAge matches the reference workflow: reservations expire after
// 72 hours on the shelf.
const DefaultMaxAge = 72 * time.Hour

// =============================================================================
// SWEEPER
// =============================================================================

// Sweeper expires stale reservations.
type Sweeper struct {
	Store       ledger.TableStore
	MinInterval time.Duration // throttle between sweeps; zero disables
	Now         func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func NewSweeper(store ledger.TableStore) *Sweeper {
	return &Sweeper{
		Store:       store,
		MinInterval: 5 * time.Minute,
		Now:         time.Now,
	}
}

// SweepExpired compensates every uncovered open reservation older than
// maxAge and returns the number of compensating entries written.
func (s *Sweeper) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	rows, err := s.Store.ReadAllRows(ctx, ledger.SheetReport)
	if err != nil {
		return 0, &ledger.AdapterError{Op: "read rows", Sheet: ledger.SheetReport, Err: err}
	}

	cutoff := s.Now().Add(-maxAge)

	type group struct {
		aged  []ledger.Entry // open reservations past the cutoff, row order
		comps int            // every -1 already on the ledger
	}
	type key struct{ customer, store string }

	groups := make(map[key]*group)
	var order []key
	for _, row := range rows {
		delta := ledger.Counter(row[ledger.ColReserve])
		if delta == 0 {
			continue
		}
		k := key{
			customer: ledger.NormalizeName(row[ledger.ColCustomer]),
			store:    strings.TrimSpace(row[ledger.ColStore]),
		}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}

		if delta < 0 {
			g.comps += -delta
			continue
		}

		entry, err := ledger.ParseEntry(row)
		if err != nil {
			log.Printf("[Sweeper] %v (skipped)", err)
			continue
		}
		if entry.At().Before(cutoff) {
			g.aged = append(g.aged, entry)
		}
	}

	expired := 0
	for _, k := range order {
		g := groups[k]
		toExpire := len(g.aged) - g.comps
		if toExpire <= 0 {
			continue
		}
		for _, aged := range g.aged[:toExpire] {
			comp := ledger.Entry{
				Store:       aged.Store,
				Salesperson: aged.Salesperson,
				Customer:    aged.Customer,
				Date:        s.Now(),
				Reserve:     -1,
			}
			if err := s.Store.AppendRow(ctx, ledger.SheetReport, comp.Row()); err != nil {
				// Only confirmed compensations count.
				return expired, &ledger.AdapterError{Op: "append expiry", Sheet: ledger.SheetReport, Err: err}
			}
			expired++
		}
	}

	if expired > 0 {
		log.Printf("[Sweeper] expired %d reservation(s) older than %v", expired, maxAge)
	}
	return expired, nil
}

// Run is the throttled entry point used by opportunistic and scheduled
// callers. Returns (0, ErrSweepThrottled) when the sweep was skipped.
func (s *Sweeper) Run(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.Now()

	s.mu.Lock()
	if s.MinInterval > 0 && !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < s.MinInterval {
		s.mu.Unlock()
		return 0, ledger.ErrSweepThrottled
	}
	s.lastSweep = now
	s.mu.Unlock()

	if s.MinInterval > 0 {
		ok, err := s.claimMarker(ctx, now)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ledger.ErrSweepThrottled
		}
	}

	return s.SweepExpired(ctx, maxAge)
}

// =============================================================================
// CONTROL MARKER - Cross-session throttle, optimistic recheck
// =============================================================================

// claimMarker appends a sweep marker to the control sheet and re-reads it.
// Returns false when a recent marker exists or another session's marker
// landed after ours (last row wins).
func (s *Sweeper) claimMarker(ctx context.Context, now time.Time) (bool, error) {
	values, err := s.Store.ReadColumn(ctx, ledger.SheetControl, 1)
	if err != nil {
		return false, &ledger.AdapterError{Op: "read column", Sheet: ledger.SheetControl, Err: err}
	}
	if last, ok := lastMarkerTime(values); ok && now.Sub(last) < s.MinInterval {
		return false, nil
	}

	token := fmt.Sprintf("%s|%s", now.UTC().Format(time.RFC3339), uuid.NewString())
	row := map[string]string{ledger.ControlColumns[0]: token}
	if err := s.Store.AppendRow(ctx, ledger.SheetControl, row); err != nil {
		return false, &ledger.AdapterError{Op: "append marker", Sheet: ledger.SheetControl, Err: err}
	}

	// Recheck: whoever appended last owns this sweep window.
	values, err = s.Store.ReadColumn(ctx, ledger.SheetControl, 1)
	if err != nil {
		return false, &ledger.AdapterError{Op: "read column", Sheet: ledger.SheetControl, Err: err}
	}
	return len(values) > 0 && values[len(values)-1] == token, nil
}

func lastMarkerTime(values []string) (time.Time, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		parts := strings.SplitN(values[i], "|", 2)
		if t, err := time.Parse(time.RFC3339, parts[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
