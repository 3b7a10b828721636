package shipment

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
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/store"
)

var arrival = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	return newServiceWithLog(t, nil)
}

func newServiceWithLog(t *testing.T, log *zap.Logger) (*Service, *store.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := accounts.NewRegistry(accounts.DefaultChart("trading_company"))
	require.NoError(t, accounts.EnsureAccounts(ctx, db, reg))
	require.NoError(t, fx.Set(ctx, db, "EUR", "USD", arrival.AddDate(0, -1, 0), dec("1.10")))

	engine := posting.NewEngine(db, log)
	return NewService(db, engine, reg, fx.NewResolver(db, log), "USD", log), db
}

func sample(currency string) *model.Shipment {
	return &model.Shipment{
		Currency:    currency,
		ExtrasTotal: dec("12"),
		Lines: []model.ShipmentLine{
			{ProductID: "p1", WarehouseID: "w1", Quantity: dec("2"), UnitCost: dec("100")},
			{ProductID: "p2", WarehouseID: "w1", Quantity: dec("4"), UnitCost: dec("20")},
		},
	}
}

func TestReceive(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	sh := sample("USD")
	require.NoError(t, svc.Create(ctx, sh))
	assert.Equal(t, model.ShipmentOpen, sh.Status)
	assert.NotEmpty(t, sh.Code)

	got, batch, err := svc.Receive(ctx, sh.ID, arrival)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentReceived, got.Status)

	assert.True(t, got.Lines[0].ExtraShare.Equal(dec("8.57")))
	assert.True(t, got.Lines[1].ExtraShare.Equal(dec("3.43")))
	assert.True(t, got.Lines[0].LandedUnitCost.Equal(dec("104.285")))
	assert.True(t, got.Lines[1].LandedUnitCost.Equal(dec("20.8575")))

	stored, err := svc.Get(ctx, sh.Code)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentReceived, stored.Status)
	assert.True(t, stored.Lines[1].LandedUnitCost.Equal(dec("20.8575")))

	require.NotNil(t, batch)
	assert.Equal(t, SourceArrival, batch.SourceType)
	require.Len(t, batch.Entries, 3)
	assert.Equal(t, "1200", batch.Entries[0].Account)
	assert.True(t, batch.Entries[0].Debit.Equal(dec("292")))
	assert.Equal(t, "2010", batch.Entries[1].Account)
	assert.True(t, batch.Entries[1].Credit.Equal(dec("280")))
	assert.Equal(t, "2030", batch.Entries[2].Account)
	assert.True(t, batch.Entries[2].Credit.Equal(dec("12")))

	level, err := db.GetStock(ctx, "p2", "w1")
	require.NoError(t, err)
	assert.True(t, level.Quantity.Equal(dec("4")))

	_, _, err = svc.Receive(ctx, sh.ID, arrival)
	assert.ErrorIs(t, err, ErrAlreadyReceived)
	level, err = db.GetStock(ctx, "p2", "w1")
	require.NoError(t, err)
	assert.True(t, level.Quantity.Equal(dec("4")), "stock unchanged on second receive")
}

func TestReceiveConvertsToHomeCurrency(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sh := sample("EUR")
	require.NoError(t, svc.Create(ctx, sh))
	got, batch, err := svc.Receive(ctx, sh.ID, arrival)
	require.NoError(t, err)

	// Write-backs stay in the shipment's currency.
	assert.True(t, got.Lines[0].ExtraShare.Equal(dec("8.57")))

	assert.Equal(t, "USD", batch.Currency)
	assert.True(t, batch.Entries[1].Credit.Equal(dec("308")))
	assert.True(t, batch.Entries[2].Credit.Equal(dec("13.2")))
	assert.True(t, batch.Entries[0].Debit.Equal(dec("321.2")))
}

func TestReceiveWithoutRateKeepsShipmentCurrency(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc, _ := newServiceWithLog(t, zap.New(core))
	ctx := context.Background()

	sh := sample("GBP")
	require.NoError(t, svc.Create(ctx, sh))
	_, batch, err := svc.Receive(ctx, sh.ID, arrival)
	require.NoError(t, err)

	assert.Equal(t, "GBP", batch.Currency)
	assert.True(t, batch.Entries[0].Debit.Equal(dec("292")))

	require.Equal(t, 1, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, "posting arrival in original currency", warn.Message)
	assert.Equal(t, sh.ID, warn.ContextMap()["shipment_id"])
}

func TestConcurrentArrivalsShareStockRow(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	const n = 5
	ids := make([]string, n)
	for i := range ids {
		sh := sample("USD")
		require.NoError(t, svc.Create(ctx, sh))
		ids[i] = sh.ID
	}

	var g errgroup.Group
	for _, shipmentID := range ids {
		g.Go(func() error {
			_, _, err := svc.Receive(ctx, shipmentID, arrival)
			return err
		})
	}
	require.NoError(t, g.Wait())

	level, err := db.GetStock(ctx, "p1", "w1")
	require.NoError(t, err)
	assert.True(t, level.Quantity.Equal(dec("10")), "got %s", level.Quantity)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name   string
		mutate func(*model.Shipment)
	}{
		{"no currency", func(s *model.Shipment) { s.Currency = "" }},
		{"no lines", func(s *model.Shipment) { s.Lines = nil }},
		{"negative extras", func(s *model.Shipment) { s.ExtrasTotal = dec("-1") }},
		{"sub-cent extras", func(s *model.Shipment) { s.ExtrasTotal = dec("1.001") }},
		{"zero quantity", func(s *model.Shipment) { s.Lines[0].Quantity = decimal.Zero }},
		{"no warehouse", func(s *model.Shipment) { s.Lines[1].WarehouseID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := sample("USD")
			tt.mutate(sh)
			assert.Error(t, svc.Create(context.Background(), sh))
		})
	}
}

func TestReceiveUnknownShipment(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.Receive(context.Background(), "missing", arrival)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
