/*
recorder.go - Workflow event recording

PURPOSE:
  Every counter workflow action reduces to "append one entry with a fixed
  counter pattern". The Recorder owns those patterns so the transport layer
  never hand-assembles counters.

PATTERNS (1 = set, blank otherwise):
  PrescriptionSale         ATENDIMENTO RECEITA VENDA
  PrescriptionLoss         ATENDIMENTO RECEITA PERDA
  PrescriptionReservation  ATENDIMENTO RECEITA RESERVA
  Inquiry                  ATENDIMENTO PESQUISA
  ExamReferral             ATENDIMENTO CONSULTA   (salesperson optional)
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VisitKind identifies a workflow action. Closed set: handlers dispatch on
// it with a static mapping, never by name lookup.
type VisitKind string

const (
	PrescriptionSale        VisitKind = "sale"
	PrescriptionLoss        VisitKind = "loss"
	PrescriptionReservation VisitKind = "reservation"
	Inquiry                 VisitKind = "inquiry"
	ExamReferral            VisitKind = "exam"
)

// Visit is a workflow action to record. It is transient input: on success it
// becomes exactly one ledger entry.
type Visit struct {
	Kind        VisitKind
	Store       string
	Salesperson string
	Customer    string
	At          time.Time // zero means "now"
}

// Recorder appends workflow entries to the report ledger.
type Recorder struct {
	Store TableStore
	Now   func() time.Time
}

func NewRecorder(store TableStore) *Recorder {
	return &Recorder{Store: store, Now: time.Now}
}

// Record validates the visit, builds its counter pattern, and appends it.
func (r *Recorder) Record(ctx context.Context, v Visit) (Entry, error) {
	at := v.At
	if at.IsZero() {
		at = r.Now()
	}

	e := Entry{
		Store:       strings.TrimSpace(v.Store),
		Salesperson: strings.TrimSpace(v.Salesperson),
		Customer:    NormalizeName(v.Customer),
		Date:        at,
		Attendance:  1,
	}

	if e.Store == "" {
		return Entry{}, fmt.Errorf("store is required")
	}
	if e.Customer == "" {
		return Entry{}, fmt.Errorf("customer is required")
	}

	switch v.Kind {
	case PrescriptionSale:
		e.Prescription, e.Sale = 1, 1
	case PrescriptionLoss:
		e.Prescription, e.Loss = 1, 1
	case PrescriptionReservation:
		e.Prescription, e.Reserve = 1, 1
	case Inquiry:
		e.Inquiry = 1
	case ExamReferral:
		// Exam referrals may be recorded without a salesperson
		// (walk-ins routed straight to the exam room).
		e.Exam = 1
	default:
		return Entry{}, fmt.Errorf("unknown visit kind %q", v.Kind)
	}

	// Everything except exam referrals needs an accountable salesperson.
	if e.Salesperson == "" && v.Kind != ExamReferral {
		return Entry{}, fmt.Errorf("salesperson is required for %s", v.Kind)
	}

	if err := r.Store.AppendRow(ctx, SheetReport, e.Row()); err != nil {
		return Entry{}, &AdapterError{Op: "append row", Sheet: SheetReport, Err: err}
	}
	return e, nil
}
