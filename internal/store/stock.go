package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// AdjustStock adds delta to the on-hand quantity of a product in a warehouse
// and returns the new level. The row is created at zero if missing and then
// locked for the rest of the transaction, so concurrent first arrivals for
// the same pair queue on it. A result below zero fails with ErrInsufficientStock.
func (t *Tx) AdjustStock(ctx context.Context, productID, warehouseID string, delta decimal.Decimal) (model.StockLevel, error) {
	level := model.StockLevel{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}

	_, err := t.exec(ctx,
		`INSERT INTO stock_levels (product_id, warehouse_id, quantity) VALUES (?, ?, '0')
		 ON CONFLICT (product_id, warehouse_id) DO NOTHING`,
		productID, warehouseID)
	if err != nil {
		return level, fmt.Errorf("creating stock of %s@%s: %w", productID, warehouseID, err)
	}

	var qty string
	err = t.queryRow(ctx,
		`SELECT quantity FROM stock_levels WHERE product_id = ? AND warehouse_id = ?`+t.d.forUpdate(),
		productID, warehouseID).Scan(&qty)
	if err != nil {
		return level, fmt.Errorf("reading stock of %s@%s: %w", productID, warehouseID, err)
	}
	if level.Quantity, err = parseDecimal(qty); err != nil {
		return level, err
	}

	next := level.Quantity.Add(delta)
	if next.IsNegative() {
		return level, fmt.Errorf("%w: %s@%s has %s, need %s",
			ErrInsufficientStock, productID, warehouseID, level.Quantity, delta.Neg())
	}

	_, err = t.exec(ctx,
		`UPDATE stock_levels SET quantity = ? WHERE product_id = ? AND warehouse_id = ?`,
		next.String(), productID, warehouseID)
	if err != nil {
		return level, fmt.Errorf("writing stock of %s@%s: %w", productID, warehouseID, err)
	}
	level.Quantity = next
	return level, nil
}

// GetStock returns the on-hand quantity; a missing row is zero.
func (s *queries) GetStock(ctx context.Context, productID, warehouseID string) (model.StockLevel, error) {
	level := model.StockLevel{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}
	var qty string
	err := s.queryRow(ctx,
		`SELECT quantity FROM stock_levels WHERE product_id = ? AND warehouse_id = ?`,
		productID, warehouseID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return level, nil
	}
	if err != nil {
		return level, fmt.Errorf("reading stock of %s@%s: %w", productID, warehouseID, err)
	}
	level.Quantity, err = parseDecimal(qty)
	return level, err
}
