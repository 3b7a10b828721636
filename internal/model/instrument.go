package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether a check was received or issued.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid reports whether d is IN or OUT.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// InstrumentStatus is the stored status of a check. StatusOverdue is never stored.
type InstrumentStatus string

const (
	StatusPending     InstrumentStatus = "PENDING"
	StatusCashed      InstrumentStatus = "CASHED"
	StatusReturned    InstrumentStatus = "RETURNED"
	StatusBounced     InstrumentStatus = "BOUNCED"
	StatusResubmitted InstrumentStatus = "RESUBMITTED"
	StatusCancelled   InstrumentStatus = "CANCELLED"
	StatusArchived    InstrumentStatus = "ARCHIVED"

	// StatusOverdue is derived from PENDING/RESUBMITTED and the due date.
	StatusOverdue InstrumentStatus = "OVERDUE"
)

// Stored reports whether s may appear in the instrument's status column.
func (s InstrumentStatus) Stored() bool {
	switch s {
	case StatusPending, StatusCashed, StatusReturned, StatusBounced,
		StatusResubmitted, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Dishonoured reports whether s means the check was not paid.
func (s InstrumentStatus) Dishonoured() bool {
	return s == StatusReturned || s == StatusBounced
}

// CounterpartyType names the kind of party a check is linked to.
type CounterpartyType string

const (
	CounterpartyNone     CounterpartyType = ""
	CounterpartyCustomer CounterpartyType = "customer"
	CounterpartySupplier CounterpartyType = "supplier"
	CounterpartyPartner  CounterpartyType = "partner"
)

// AuditEntry records one status change of an instrument.
type AuditEntry struct {
	From    InstrumentStatus
	To      InstrumentStatus
	Actor   string
	Notes   string
	At      time.Time
	BatchID string // empty when the transition had no ledger effect
}

// Instrument is a bank check tracked through its status lifecycle.
type Instrument struct {
	ID               string
	CheckNumber      string
	Bank             string
	IssueDate        time.Time
	DueDate          time.Time
	Amount           decimal.Decimal
	Currency         string
	Direction        Direction
	Status           InstrumentStatus
	CounterpartyType CounterpartyType
	CounterpartyID   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	History          []AuditEntry
}

// EffectiveStatus returns StatusOverdue for a PENDING or RESUBMITTED check
// whose due date lies before now's calendar day, otherwise the stored status.
func (i *Instrument) EffectiveStatus(now time.Time) InstrumentStatus {
	if i.Status != StatusPending && i.Status != StatusResubmitted {
		return i.Status
	}
	if i.DueDate.IsZero() {
		return i.Status
	}
	due := truncateDay(i.DueDate)
	if truncateDay(now).After(due) {
		return StatusOverdue
	}
	return i.Status
}

// WasDishonoured reports whether the check was ever returned or bounced.
func (i *Instrument) WasDishonoured() bool {
	if i.Status.Dishonoured() {
		return true
	}
	for _, h := range i.History {
		if h.To.Dishonoured() {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
