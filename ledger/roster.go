// Package-level roster access. The 'vendedor' sheet is a read-only list of
// salesperson names in column A; it changes rarely, so the roster is cached
// for the process lifetime after the first successful read.
package ledger

import (
	"context"
	"strings"
	"sync"
)

// Roster reads the salesperson list.
type Roster struct {
	Store TableStore

	mu     sync.Mutex
	cached []string
}

func NewRoster(store TableStore) *Roster {
	return &Roster{Store: store}
}

// Salespeople returns the roster, blanks skipped. The first successful read
// is cached; a failed read is not, so a transient outage self-heals.
func (r *Roster) Salespeople(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return append([]string(nil), r.cached...), nil
	}

	values, err := r.Store.ReadColumn(ctx, SheetRoster, 1)
	if err != nil {
		return nil, &AdapterError{Op: "read column", Sheet: SheetRoster, Err: err}
	}

	names := make([]string, 0, len(values))
	for _, v := range values {
		if name := strings.TrimSpace(v); name != "" {
			names = append(names, name)
		}
	}
	r.cached = names
	return append([]string(nil), names...), nil
}

// Invalidate drops the cache. Exposed for admin refresh.
func (r *Roster) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}
