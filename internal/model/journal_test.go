package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLegSwap(t *testing.T) {
	leg := Leg{Account: "1010", Debit: dec("12.50"), Ref: "x"}
	swapped := leg.Swap()
	assert.True(t, swapped.Debit.IsZero())
	assert.True(t, swapped.Credit.Equal(dec("12.50")))
	assert.Equal(t, "1010", swapped.Account)
	assert.Equal(t, "x", swapped.Ref)
}

func TestBatchTotals(t *testing.T) {
	b := &Batch{Entries: []Entry{
		{Account: "1010", Debit: dec("100.00")},
		{Account: "1110", Credit: dec("60.00")},
		{Account: "1200", Credit: dec("40.00")},
	}}
	debit, credit := b.Totals()
	assert.True(t, debit.Equal(dec("100")))
	assert.True(t, credit.Equal(dec("100")))
	assert.Len(t, b.Legs(), 3)
}

func TestBatchFlags(t *testing.T) {
	b := &Batch{}
	assert.False(t, b.IsReversal())
	assert.False(t, b.Superseded())
	b.ReversesBatchID = "a"
	b.SupersededBy = "b"
	assert.True(t, b.IsReversal())
	assert.True(t, b.Superseded())
}

func TestEffectiveStatus(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		status InstrumentStatus
		now    time.Time
		want   InstrumentStatus
	}{
		{StatusPending, due, StatusPending},
		{StatusPending, due.Add(23 * time.Hour), StatusPending},
		{StatusPending, due.AddDate(0, 0, 1), StatusOverdue},
		{StatusResubmitted, due.AddDate(0, 1, 0), StatusOverdue},
		{StatusCashed, due.AddDate(1, 0, 0), StatusCashed},
		{StatusReturned, due.AddDate(1, 0, 0), StatusReturned},
	}
	for _, tt := range tests {
		inst := &Instrument{Status: tt.status, DueDate: due}
		assert.Equal(t, tt.want, inst.EffectiveStatus(tt.now), "%s at %s", tt.status, tt.now)
	}
}

func TestOverdueIsNeverStored(t *testing.T) {
	assert.False(t, StatusOverdue.Stored())
	assert.True(t, StatusArchived.Stored())
}

func TestWasDishonoured(t *testing.T) {
	inst := &Instrument{Status: StatusResubmitted, History: []AuditEntry{
		{From: StatusPending, To: StatusBounced},
		{From: StatusBounced, To: StatusResubmitted},
	}}
	assert.True(t, inst.WasDishonoured())
	assert.False(t, (&Instrument{Status: StatusPending}).WasDishonoured())
}

func TestShipmentGoodsTotal(t *testing.T) {
	s := &Shipment{Lines: []ShipmentLine{
		{Quantity: dec("2"), UnitCost: dec("100")},
		{Quantity: dec("4"), UnitCost: dec("20")},
	}}
	assert.True(t, s.GoodsTotal().Equal(dec("280")))
}
