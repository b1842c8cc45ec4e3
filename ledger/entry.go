/*
entry.go - The immutable ledger entry and its row mapping

PURPOSE:
  An Entry is one business event: an attendant interaction recorded as a set
  of named signed counters. The full history of entries IS the durable state;
  every "current" number (reserve balance, stock level) is derived by
  summation and never stored.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never mutated or deleted after landing.
  2. COMPENSATION: corrections are new entries with the opposite sign.
  3. NORMALIZATION: customer names are trimmed and uppercased before they
     touch the store, so that "Maria", " maria " and "MARIA" are one ledger
     identity.

WIRE FORMAT:
  The store keeps everything as strings in the locale of the spreadsheet:
  dates as DD/MM/YYYY, times as HH:MM, counters as "1"/"-1"/"" (blank means
  zero). ParseEntry is lenient about counters (blank or garbage reads as 0)
  and strict about nothing - a bad date yields a MalformedRowError the caller
  decides to skip.

SEE ALSO:
  - balance.go: summation over parsed entries
  - recorder.go: the counter patterns each workflow action writes
*/
package ledger

import (
	"strconv"
	"strings"
	"time"
)

// Store locale formats. The backing sheet is read by humans and by an
// external reporting stack that both expect these exact layouts.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// =============================================================================
// ENTRY - One immutable business event
// =============================================================================

// Entry is a single row of the 'relatorio' ledger.
type Entry struct {
	Store       string
	Salesperson string
	Customer    string // normalized: trimmed, uppercase
	Date        time.Time

	// Signed counters. Almost always 0, 1 or -1; compensating entries
	// carry the opposite sign of what they retract.
	Attendance   int
	Prescription int
	Sale         int
	Loss         int
	Reserve      int
	Inquiry      int
	Exam         int
}

// NormalizeName maps a free-form customer name to its ledger identity.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// At returns the entry's full timestamp (date + time-of-day).
func (e Entry) At() time.Time { return e.Date }

// Row serializes the entry into the 12-column wire format.
// Zero counters become blank cells, matching what the original sheet holds.
func (e Entry) Row() map[string]string {
	return map[string]string{
		ColStore:        strings.TrimSpace(e.Store),
		ColSalesperson:  strings.TrimSpace(e.Salesperson),
		ColCustomer:     NormalizeName(e.Customer),
		ColDate:         e.Date.Format(DateLayout),
		ColTime:         e.Date.Format(TimeLayout),
		ColAttendance:   counterCell(e.Attendance),
		ColPrescription: counterCell(e.Prescription),
		ColSale:         counterCell(e.Sale),
		ColLoss:         counterCell(e.Loss),
		ColReserve:      counterCell(e.Reserve),
		ColInquiry:      counterCell(e.Inquiry),
		ColExam:         counterCell(e.Exam),
	}
}

func counterCell(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// =============================================================================
// ROW PARSING
// =============================================================================

// ParseEntry reads a header-keyed row back into an Entry.
//
// Counters: blank and unparsable cells read as zero (the ledger tolerates
// hand-edited sheets). Dates: a row with an unparsable DATA cell returns a
// MalformedRowError; callers aggregating over the ledger skip it and go on.
// An unparsable HORA falls back to midnight - the date still orders the row.
func ParseEntry(row map[string]string) (Entry, error) {
	dateStr := strings.TrimSpace(row[ColDate])
	date, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return Entry{}, &MalformedRowError{Sheet: SheetReport, Field: ColDate, Value: dateStr}
	}

	if hm, err := time.Parse(TimeLayout, strings.TrimSpace(row[ColTime])); err == nil {
		date = date.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute)
	}

	return Entry{
		Store:        strings.TrimSpace(row[ColStore]),
		Salesperson:  strings.TrimSpace(row[ColSalesperson]),
		Customer:     NormalizeName(row[ColCustomer]),
		Date:         date,
		Attendance:   Counter(row[ColAttendance]),
		Prescription: Counter(row[ColPrescription]),
		Sale:         Counter(row[ColSale]),
		Loss:         Counter(row[ColLoss]),
		Reserve:      Counter(row[ColReserve]),
		Inquiry:      Counter(row[ColInquiry]),
		Exam:         Counter(row[ColExam]),
	}, nil
}

// Counter parses a signed counter cell. Blank or garbage is zero - a
// malformed counter must never poison a whole aggregation.
func Counter(cell string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return 0
	}
	return n
}
