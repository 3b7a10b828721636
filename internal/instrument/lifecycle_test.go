package instrument

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/store"
)

var (
	issued = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	today  = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	db *store.DB
	lc *Lifecycle
}

func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := accounts.NewRegistry(accounts.DefaultChart("trading_company"))
	require.NoError(t, accounts.EnsureAccounts(ctx, db, reg))
	require.NoError(t, fx.Set(ctx, db, "EUR", "USD", issued.AddDate(0, 0, -1), dec("1.10")))
	// A later rate must not be used: checks are valued at their issue date.
	require.NoError(t, fx.Set(ctx, db, "EUR", "USD", issued.AddDate(0, 0, 2), dec("1.50")))

	engine := posting.NewEngine(db, log)
	lc := NewLifecycle(db, engine, reg, fx.NewResolver(db, log), "usd", log)
	lc.now = func() time.Time { return today }
	return &fixture{db: db, lc: lc}
}

func (f *fixture) check(t *testing.T, direction model.Direction, amount, currency string) *model.Instrument {
	t.Helper()
	in, err := f.lc.Create(context.Background(), NewCheck{
		CheckNumber:      "000123",
		Bank:             "First Bank",
		IssueDate:        issued,
		DueDate:          issued.AddDate(0, 0, 30),
		Amount:           dec(amount),
		Currency:         currency,
		Direction:        direction,
		CounterpartyType: model.CounterpartyCustomer,
		CounterpartyID:   "c-7",
		Actor:            "ops",
	})
	require.NoError(t, err)
	return in
}

func (f *fixture) balances(t *testing.T) map[string]decimal.Decimal {
	t.Helper()
	bal, err := f.db.TrialBalance(context.Background())
	require.NoError(t, err)
	out := make(map[string]decimal.Decimal, len(bal))
	for _, b := range bal {
		out[b.Account+"/"+b.Currency] = b.Net()
	}
	return out
}

func TestCashIncomingCheck(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "500.00", "USD")

	got, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "deposited", "ops")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCashed, got.Status)

	batches, err := f.db.BatchesBySourceID(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, "CHECK_CASHED", b.SourceType)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, "customer:c-7", b.EntityRef)
	require.Len(t, b.Entries, 2)
	assert.Equal(t, "1010", b.Entries[0].Account)
	assert.True(t, b.Entries[0].Debit.Equal(dec("500")))
	assert.Equal(t, "1110", b.Entries[1].Account)
	assert.True(t, b.Entries[1].Credit.Equal(dec("500")))

	stored, err := f.lc.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCashed, stored.Status)
	require.Len(t, stored.History, 2)
	last := stored.History[1]
	assert.Equal(t, model.StatusPending, last.From)
	assert.Equal(t, model.StatusCashed, last.To)
	assert.Equal(t, "ops", last.Actor)
	assert.Equal(t, "deposited", last.Notes)
	assert.Equal(t, b.ID, last.BatchID)
}

func TestForeignCheckValuedAtIssueDate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "500.00", "EUR")

	_, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	require.NoError(t, err)

	b, err := f.db.ActiveBatch(ctx, "CHECK_CASHED", in.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", b.Currency)
	assert.True(t, b.Entries[0].Debit.Equal(dec("550")), "got %s", b.Entries[0].Debit)
}

func TestMissingRatePostsOriginalCurrency(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, zap.New(core))
	ctx := context.Background()
	in := f.check(t, model.DirectionOut, "75.00", "GBP")

	_, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	require.NoError(t, err)

	b, err := f.db.ActiveBatch(ctx, "CHECK_CASHED", in.ID)
	require.NoError(t, err)
	assert.Equal(t, "GBP", b.Currency)
	assert.True(t, b.Entries[0].Debit.Equal(dec("75")))
	assert.Equal(t, "2020", b.Entries[0].Account)
	assert.Equal(t, "1010", b.Entries[1].Account)

	// The lifecycle owns the warning; the resolver only logs at debug.
	require.Equal(t, 1, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, "posting check in original currency", warn.Message)
	assert.Equal(t, in.ID, warn.ContextMap()["instrument_id"])
}

func TestRatePublishedDuringIssueDayApplies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, fx.Set(ctx, f.db, "GBP", "USD", issued.Add(9*time.Hour), dec("1.25")))
	require.NoError(t, fx.Set(ctx, f.db, "GBP", "USD", issued.AddDate(0, 0, 1), dec("1.40")))
	in := f.check(t, model.DirectionIn, "100.00", "GBP")

	_, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	require.NoError(t, err)

	b, err := f.db.ActiveBatch(ctx, "CHECK_CASHED", in.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", b.Currency)
	assert.True(t, b.Entries[0].Debit.Equal(dec("125")), "got %s", b.Entries[0].Debit)
	assert.True(t, b.Entries[1].Credit.Equal(dec("125")))
}

func TestDeleteReversesThenRemoves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "500.00", "USD")
	_, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	require.NoError(t, err)

	reversals, err := f.lc.Delete(ctx, in.ID, "ops")
	require.NoError(t, err)
	require.Len(t, reversals, 1)
	assert.Equal(t, "CHECK_CASHED_REVERSAL", reversals[0].SourceType)

	_, err = f.lc.Get(ctx, in.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	bal := f.balances(t)
	assert.True(t, bal["1010/USD"].IsZero())
	assert.True(t, bal["1110/USD"].IsZero())

	batches, err := f.db.BatchesBySourceID(ctx, in.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 2, "original and reversal are both kept")
}

func TestDeleteWithoutPostings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "10.00", "USD")

	reversals, err := f.lc.Delete(ctx, in.ID, "ops")
	require.NoError(t, err)
	assert.Empty(t, reversals)

	_, err = f.lc.Delete(ctx, in.ID, "ops")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIllegalTransitionLeavesCheckUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "500.00", "USD")
	_, err := f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	require.NoError(t, err)

	for _, target := range []model.InstrumentStatus{
		model.StatusPending, model.StatusCashed, model.StatusResubmitted, model.StatusOverdue, model.StatusArchived,
	} {
		_, err := f.lc.Transition(ctx, in.ID, target, "", "ops")
		assert.ErrorIs(t, err, ErrIllegalTransition, "CASHED → %s", target)
	}

	got, err := f.lc.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCashed, got.Status)
	assert.Len(t, got.History, 2)

	batches, err := f.db.BatchesBySourceID(ctx, in.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestTransitionUnknownCheck(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.lc.Transition(context.Background(), "missing", model.StatusCashed, "", "ops")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDishonourAndRecovery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionIn, "500.00", "USD")

	steps := []model.InstrumentStatus{
		model.StatusBounced,
		model.StatusResubmitted,
		model.StatusReturned,
		model.StatusResubmitted,
		model.StatusCashed,
	}
	for _, s := range steps {
		_, err := f.lc.Transition(ctx, in.ID, s, "", "ops")
		require.NoError(t, err, "→ %s", s)
	}

	bal := f.balances(t)
	assert.True(t, bal["1010/USD"].Equal(dec("500")), "bank %s", bal["1010/USD"])
	assert.True(t, bal["1100/USD"].IsZero(), "receivable %s", bal["1100/USD"])
	assert.True(t, bal["1110/USD"].Equal(dec("-500")), "checks receivable %s", bal["1110/USD"])

	got, err := f.lc.Get(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 6)
	assert.NotEmpty(t, got.History[1].BatchID, "bounce posts")
	assert.Empty(t, got.History[2].BatchID, "resubmit posts nothing")
	assert.Empty(t, got.History[3].BatchID, "repeat dishonour posts nothing")
	assert.NotEmpty(t, got.History[5].BatchID, "recovery posts")
}

func TestCancelOutgoingCheck(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := f.check(t, model.DirectionOut, "120.00", "USD")

	_, err := f.lc.Transition(ctx, in.ID, model.StatusCancelled, "lost in mail", "ops")
	require.NoError(t, err)

	b, err := f.db.ActiveBatch(ctx, "CHECK_CANCELLED", in.ID)
	require.NoError(t, err)
	assert.Contains(t, b.Memo, "Write-off")
	assert.Equal(t, "2020", b.Entries[0].Account)
	assert.Equal(t, "2010", b.Entries[1].Account)

	archived, err := f.lc.Archive(ctx, in.ID, "year end", "ops")
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, archived.Status)

	_, err = f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestArchiveRequiresTerminalStatus(t *testing.T) {
	f := newFixture(t, nil)
	in := f.check(t, model.DirectionIn, "1.00", "USD")
	_, err := f.lc.Archive(context.Background(), in.ID, "", "ops")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestListOverdue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	due := f.check(t, model.DirectionIn, "10.00", "USD")
	in, err := f.lc.Create(ctx, NewCheck{
		CheckNumber: "000124", IssueDate: issued, DueDate: issued.AddDate(0, 0, 5),
		Amount: dec("20"), Currency: "USD", Direction: model.DirectionIn,
	})
	require.NoError(t, err)

	overdue, err := f.lc.List(ctx, model.StatusOverdue)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, in.ID, overdue[0].ID)
	assert.Equal(t, model.StatusPending, overdue[0].Status, "overdue is never stored")

	pending, err := f.lc.List(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, due.ID, pending[0].ID)

	all, err := f.lc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// An overdue check still follows the PENDING edges.
	_, err = f.lc.Transition(ctx, in.ID, model.StatusCashed, "", "ops")
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil)
	base := NewCheck{
		CheckNumber: "1", IssueDate: issued, Amount: dec("10"), Currency: "USD", Direction: model.DirectionIn,
	}
	tests := []struct {
		name   string
		mutate func(*NewCheck)
	}{
		{"no number", func(c *NewCheck) { c.CheckNumber = " " }},
		{"bad direction", func(c *NewCheck) { c.Direction = "SIDEWAYS" }},
		{"no issue date", func(c *NewCheck) { c.IssueDate = time.Time{} }},
		{"due before issue", func(c *NewCheck) { c.DueDate = issued.AddDate(0, 0, -1) }},
		{"zero amount", func(c *NewCheck) { c.Amount = decimal.Zero }},
		{"sub-cent", func(c *NewCheck) { c.Amount = dec("1.001") }},
		{"no currency", func(c *NewCheck) { c.Currency = "" }},
		{"bad counterparty", func(c *NewCheck) { c.CounterpartyType = "bank" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := base
			tt.mutate(&nc)
			_, err := f.lc.Create(context.Background(), nc)
			assert.Error(t, err)
		})
	}
}
