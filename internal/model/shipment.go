package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentStatus tracks whether a shipment's goods have arrived.
type ShipmentStatus string

const (
	ShipmentOpen     ShipmentStatus = "OPEN"
	ShipmentReceived ShipmentStatus = "RECEIVED"
)

// Shipment is an inbound delivery whose shared costs are spread over its lines.
type Shipment struct {
	ID          string
	Code        string
	Currency    string
	ExtrasTotal decimal.Decimal // freight, customs, insurance, duty
	Status      ShipmentStatus
	ReceivedAt  time.Time
	Lines       []ShipmentLine
}

// ShipmentLine is one product line of a shipment.
type ShipmentLine struct {
	ID             int64
	ProductID      string
	WarehouseID    string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ExtraShare     decimal.Decimal // written back on arrival
	LandedUnitCost decimal.Decimal // written back on arrival
}

// BaseValue returns quantity times unit cost.
func (l ShipmentLine) BaseValue() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// GoodsTotal returns the sum of line base values.
func (s *Shipment) GoodsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.BaseValue())
	}
	return total
}

// StockLevel is the on-hand quantity of a product in a warehouse.
type StockLevel struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
}
