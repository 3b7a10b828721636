// Package shipment receives inbound shipments: it allocates shared costs,
// books the goods into stock and posts the arrival to the ledger.
package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/allocate"
	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/store"
)

// SourceArrival is the source type of arrival batches.
const SourceArrival = "SHIPMENT_ARRIVAL"

// ErrAlreadyReceived is returned when a shipment is received twice.
var ErrAlreadyReceived = errors.New("shipment already received")

// Service creates and receives shipments.
type Service struct {
	db       *store.DB
	engine   *posting.Engine
	registry *accounts.Registry
	rates    *fx.Resolver
	home     string
	log      *zap.Logger
}

// NewService creates a Service posting arrivals in homeCurrency.
func NewService(db *store.DB, engine *posting.Engine, registry *accounts.Registry, rates *fx.Resolver, homeCurrency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		engine:   engine,
		registry: registry,
		rates:    rates,
		home:     money.Normalize(homeCurrency),
		log:      log,
	}
}

// Create stores an OPEN shipment. ID and a missing code are generated.
func (s *Service) Create(ctx context.Context, sh *model.Shipment) error {
	sh.Currency = money.Normalize(sh.Currency)
	if err := validate(sh); err != nil {
		return err
	}
	sh.ID = id.New()
	if sh.Code == "" {
		sh.Code = "SHP-" + strings.ToUpper(sh.ID[:8])
	}
	sh.Status = model.ShipmentOpen
	for i := range sh.Lines {
		sh.Lines[i].ExtraShare = decimal.Zero
		sh.Lines[i].LandedUnitCost = decimal.Zero
	}
	return s.db.Transaction(ctx, func(tx *store.Tx) error {
		return tx.InsertShipment(ctx, sh)
	})
}

func validate(sh *model.Shipment) error {
	if sh.Currency == "" {
		return errors.New("shipment currency is required")
	}
	if len(sh.Lines) == 0 {
		return errors.New("shipment has no lines")
	}
	if sh.ExtrasTotal.IsNegative() {
		return fmt.Errorf("extras total must not be negative, got %s", sh.ExtrasTotal)
	}
	if !money.IsExact(sh.ExtrasTotal, sh.Currency) {
		return fmt.Errorf("extras total %s is not exact in %s", sh.ExtrasTotal, sh.Currency)
	}
	for i, l := range sh.Lines {
		switch {
		case l.ProductID == "" || l.WarehouseID == "":
			return fmt.Errorf("line %d: product and warehouse are required", i+1)
		case !l.Quantity.IsPositive():
			return fmt.Errorf("line %d: quantity must be positive, got %s", i+1, l.Quantity)
		case l.UnitCost.IsNegative():
			return fmt.Errorf("line %d: unit cost must not be negative, got %s", i+1, l.UnitCost)
		}
	}
	return nil
}

// Receive books the arrival of a shipment at time at, in one transaction:
// extras are allocated and written back to the lines, on-hand stock is
// increased under row locks, and the arrival is posted as
// Dr inventory / Cr accounts payable (goods) / Cr landed costs payable (extras),
// converted to the home currency at at. A shipment without value posts
// nothing and the returned batch is nil.
func (s *Service) Receive(ctx context.Context, shipmentID string, at time.Time) (*model.Shipment, *model.Batch, error) {
	var sh *model.Shipment
	var batch *model.Batch
	err := s.db.Transaction(ctx, func(tx *store.Tx) error {
		var err error
		sh, err = tx.GetShipment(ctx, shipmentID, true)
		if err != nil {
			return err
		}
		if sh.Status == model.ShipmentReceived {
			return fmt.Errorf("%w: %s", ErrAlreadyReceived, sh.Code)
		}

		if err := s.allocate(ctx, tx, sh); err != nil {
			return err
		}
		for _, l := range sh.Lines {
			if _, err := tx.AdjustStock(ctx, l.ProductID, l.WarehouseID, l.Quantity); err != nil {
				return err
			}
		}
		if batch, err = s.post(ctx, tx, sh, at); err != nil {
			return err
		}
		if err := tx.MarkShipmentReceived(ctx, sh.ID, at); err != nil {
			return err
		}
		sh.Status = model.ShipmentReceived
		sh.ReceivedAt = at.UTC()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	fields := []zap.Field{zap.String("shipment", sh.Code), zap.Int("lines", len(sh.Lines))}
	if batch != nil {
		fields = append(fields, zap.String("batch_code", batch.Code))
	}
	s.log.Info("shipment received", fields...)
	return sh, batch, nil
}

func (s *Service) allocate(ctx context.Context, tx *store.Tx, sh *model.Shipment) error {
	lines := make([]allocate.Line, len(sh.Lines))
	for i, l := range sh.Lines {
		lines[i] = allocate.Line{Quantity: l.Quantity, UnitCost: l.UnitCost}
	}
	shares := allocate.Allocate(lines, sh.ExtrasTotal, sh.Currency)
	for i := range sh.Lines {
		landed, err := allocate.LandedUnitCost(lines[i], shares[i])
		if err != nil {
			return fmt.Errorf("line %d of shipment %s: %w", i+1, sh.Code, err)
		}
		sh.Lines[i].ExtraShare = shares[i]
		sh.Lines[i].LandedUnitCost = landed
		if err := tx.UpdateShipmentLine(ctx, sh.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) post(ctx context.Context, tx *store.Tx, sh *model.Shipment, at time.Time) (*model.Batch, error) {
	roles := []accounts.Role{accounts.RoleInventory, accounts.RoleAccountsPayable, accounts.RoleLandedCostsPayable}
	codes := make([]string, len(roles))
	for i, role := range roles {
		code, err := s.registry.Resolve(role)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", posting.ErrUnknownAccount, err)
		}
		codes[i] = code
	}

	// Goods and extras are converted separately and the inventory debit is
	// their sum, so the batch balances after rounding.
	rates := s.rates.WithSource(tx)
	goods, err := rates.Convert(ctx, money.Round(sh.GoodsTotal(), sh.Currency), sh.Currency, s.home, at)
	if err != nil {
		return nil, err
	}
	extras, err := rates.Convert(ctx, sh.ExtrasTotal, sh.Currency, s.home, at)
	if err != nil {
		return nil, err
	}
	if !goods.Converted {
		s.log.Warn("posting arrival in original currency",
			zap.String("shipment_id", sh.ID),
			zap.String("currency", sh.Currency),
			zap.String("home_currency", s.home))
	}

	total := goods.Amount.Add(extras.Amount)
	if !total.IsPositive() {
		return nil, nil
	}
	ref := "shipment " + sh.Code
	legs := []model.Leg{{Account: codes[0], Debit: total, Credit: decimal.Zero, Ref: ref}}
	if goods.Amount.IsPositive() {
		legs = append(legs, model.Leg{Account: codes[1], Debit: decimal.Zero, Credit: goods.Amount, Ref: ref})
	}
	if extras.Amount.IsPositive() {
		legs = append(legs, model.Leg{Account: codes[2], Debit: decimal.Zero, Credit: extras.Amount, Ref: ref})
	}

	return s.engine.PostTx(ctx, tx, posting.Request{
		SourceType: SourceArrival,
		SourceID:   sh.ID,
		Currency:   goods.Currency,
		Memo:       "Arrival of shipment " + sh.Code,
		Legs:       legs,
	})
}

// Get returns a shipment by id or code.
func (s *Service) Get(ctx context.Context, idOrCode string) (*model.Shipment, error) {
	return s.db.GetShipment(ctx, idOrCode, false)
}

// Stock returns the on-hand quantity of a product in a warehouse.
func (s *Service) Stock(ctx context.Context, productID, warehouseID string) (model.StockLevel, error) {
	return s.db.GetStock(ctx, productID, warehouseID)
}
