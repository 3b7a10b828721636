package fx

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

	"github.com/cleared-dev/tally/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	jan = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

func openDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "fx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, Set(ctx, db, "EUR", "USD", jan, dec("1.10")))
	require.NoError(t, Set(ctx, db, "EUR", "USD", feb, dec("1.20")))
	require.NoError(t, Set(ctx, db, "USD", "JPY", jan, dec("150")))
	return db
}

func TestRate(t *testing.T) {
	r := NewResolver(openDB(t), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		from, to  string
		at        time.Time
		want      string
		wantFound bool
	}{
		{"same currency", "usd", "USD", jan, "1", true},
		{"direct", "EUR", "USD", jan.AddDate(0, 0, 10), "1.10", true},
		{"latest effective wins", "EUR", "USD", feb.AddDate(0, 0, 1), "1.20", true},
		{"inverse", "JPY", "USD", feb, "0.0066666667", true},
		{"inverse of two decimals", "USD", "EUR", feb, "0.8333333333", true},
		{"before any rate", "EUR", "USD", jan.Add(-time.Hour), "0", false},
		{"unknown pair", "GBP", "USD", feb, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, found, err := r.Rate(ctx, tt.from, tt.to, tt.at, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.True(t, rate.Equal(dec(tt.want)), "got %s want %s", rate, tt.want)
		})
	}
}

func TestRateRaisesOnMissing(t *testing.T) {
	r := NewResolver(openDB(t), nil)
	_, _, err := r.Rate(context.Background(), "GBP", "USD", feb, true)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvert(t *testing.T) {
	r := NewResolver(openDB(t), nil)
	ctx := context.Background()

	c, err := r.Convert(ctx, dec("100.00"), "EUR", "USD", jan)
	require.NoError(t, err)
	assert.True(t, c.Converted)
	assert.Equal(t, "USD", c.Currency)
	assert.True(t, c.Amount.Equal(dec("110")))

	c, err = r.Convert(ctx, dec("12.34"), "USD", "JPY", jan)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(dec("1851")), "rounded to whole yen, got %s", c.Amount)

	c, err = r.Convert(ctx, dec("3"), "JPY", "USD", jan)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(dec("0.02")), "got %s", c.Amount)
}

func TestConvertMissingRateKeepsOriginal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(openDB(t), zap.New(core))

	c, err := r.Convert(context.Background(), dec("40.00"), "GBP", "USD", feb)
	require.NoError(t, err)
	assert.False(t, c.Converted)
	assert.Equal(t, "GBP", c.Currency)
	assert.True(t, c.Amount.Equal(dec("40")))

	entries := logs.FilterMessage("exchange rate missing, keeping original currency").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "GBP", entries[0].ContextMap()["from"])
}

func TestWithSourceInsideTransaction(t *testing.T) {
	db := openDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *store.Tx) error {
		require.NoError(t, Set(ctx, tx, "GBP", "USD", jan, dec("1.25")))
		rate, found, err := r.WithSource(tx).Rate(ctx, "GBP", "USD", feb, true)
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, rate.Equal(dec("1.25")))
		return nil
	})
	require.NoError(t, err)
}

func TestSetRejectsBadInput(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	assert.Error(t, Set(ctx, db, "USD", "USD", jan, dec("1")))
	assert.Error(t, Set(ctx, db, "EUR", "USD", jan, dec("0")))
	assert.Error(t, Set(ctx, db, "EUR", "USD", jan, dec("-1")))
}
