package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle state of a batch.
type BatchStatus string

const (
	BatchDraft  BatchStatus = "DRAFT"
	BatchPosted BatchStatus = "POSTED"
)

// ReversalSuffix is appended to a source type to form the source type of its reversal.
const ReversalSuffix = "_REVERSAL"

// Leg is one requested side of a posting before it is stored as an Entry.
type Leg struct {
	Account string
	Debit   decimal.Decimal // zero if credit side
	Credit  decimal.Decimal // zero if debit side
	Ref     string
}

// Swap returns the leg with debit and credit exchanged.
func (l Leg) Swap() Leg {
	return Leg{Account: l.Account, Debit: l.Credit, Credit: l.Debit, Ref: l.Ref}
}

// Entry is a stored leg of a posted batch.
type Entry struct {
	ID       int64
	BatchID  string
	Line     int
	Account  string
	Debit    decimal.Decimal
	Credit   decimal.Decimal
	Currency string
	Ref      string
}

// Leg returns the entry as a Leg.
func (e Entry) Leg() Leg {
	return Leg{Account: e.Account, Debit: e.Debit, Credit: e.Credit, Ref: e.Ref}
}

// Batch is one atomic accounting event.
type Batch struct {
	ID              string
	Code            string
	SourceType      string
	SourceID        string
	Currency        string
	Status          BatchStatus
	Memo            string
	EntityRef       string
	ReversesBatchID string // set on reversal batches
	SupersededBy    string // set on originals once reversed
	CreatedAt       time.Time
	Entries         []Entry
}

// IsReversal reports whether the batch reverses another batch.
func (b *Batch) IsReversal() bool {
	return b.ReversesBatchID != ""
}

// Superseded reports whether the batch has been reversed.
func (b *Batch) Superseded() bool {
	return b.SupersededBy != ""
}

// Totals returns the sum of debits and credits over the batch's entries.
func (b *Batch) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range b.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// Legs returns the batch entries as legs, in line order.
func (b *Batch) Legs() []Leg {
	legs := make([]Leg, len(b.Entries))
	for i, e := range b.Entries {
		legs[i] = e.Leg()
	}
	return legs
}

// AccountBalance is the net debit/credit activity of one account.
type AccountBalance struct {
	Account  string
	Name     string
	Type     AccountType
	Currency string
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// Net returns debit minus credit.
func (b AccountBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}
