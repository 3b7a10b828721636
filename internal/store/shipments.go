package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// InsertShipment stores a shipment and its lines. Line ids are filled in.
func (t *Tx) InsertShipment(ctx context.Context, sh *model.Shipment) error {
	_, err := t.exec(ctx,
		`INSERT INTO shipments (id, code, currency, extras_total, status, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.Code, sh.Currency, sh.ExtrasTotal.String(), string(sh.Status), receivedAt(sh.ReceivedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: shipment %s", ErrDuplicate, sh.Code)
		}
		return fmt.Errorf("inserting shipment %s: %w", sh.Code, err)
	}

	for i := range sh.Lines {
		l := &sh.Lines[i]
		err := t.queryRow(ctx,
			`INSERT INTO shipment_lines (shipment_id, product_id, warehouse_id, quantity, unit_cost, extra_share, landed_unit_cost)
			 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			sh.ID, l.ProductID, l.WarehouseID, l.Quantity.String(), l.UnitCost.String(),
			l.ExtraShare.String(), l.LandedUnitCost.String()).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("inserting line %d of shipment %s: %w", i+1, sh.Code, err)
		}
	}
	return nil
}

// GetShipment returns a shipment with its lines. With forUpdate the
// shipment row is locked until the transaction ends.
func (s *queries) GetShipment(ctx context.Context, id string, forUpdate bool) (*model.Shipment, error) {
	var sh model.Shipment
	var extras, status, received string
	err := s.queryRow(ctx,
		`SELECT id, code, currency, extras_total, status, received_at
		 FROM shipments WHERE id = ? OR code = ?`+s.lock(forUpdate), id, id).
		Scan(&sh.ID, &sh.Code, &sh.Currency, &extras, &status, &received)
	if err != nil {
		return nil, notFound(err, "shipment %s", id)
	}
	sh.Status = model.ShipmentStatus(status)
	if sh.ExtrasTotal, err = parseDecimal(extras); err != nil {
		return nil, err
	}
	if sh.ReceivedAt, err = parseTime(received); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		`SELECT id, product_id, warehouse_id, quantity, unit_cost, extra_share, landed_unit_cost
		 FROM shipment_lines WHERE shipment_id = ? ORDER BY id`, sh.ID)
	if err != nil {
		return nil, fmt.Errorf("querying lines of shipment %s: %w", sh.Code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.ShipmentLine
		var qty, cost, share, landed string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.WarehouseID, &qty, &cost, &share, &landed); err != nil {
			return nil, fmt.Errorf("scanning shipment line: %w", err)
		}
		if l.Quantity, err = parseDecimal(qty); err != nil {
			return nil, err
		}
		if l.UnitCost, err = parseDecimal(cost); err != nil {
			return nil, err
		}
		if l.ExtraShare, err = parseDecimal(share); err != nil {
			return nil, err
		}
		if l.LandedUnitCost, err = parseDecimal(landed); err != nil {
			return nil, err
		}
		sh.Lines = append(sh.Lines, l)
	}
	return &sh, rows.Err()
}

// UpdateShipmentLine writes back the allocated share and landed unit cost.
func (s *queries) UpdateShipmentLine(ctx context.Context, l model.ShipmentLine) error {
	res, err := s.exec(ctx,
		`UPDATE shipment_lines SET extra_share = ?, landed_unit_cost = ? WHERE id = ?`,
		l.ExtraShare.String(), l.LandedUnitCost.String(), l.ID)
	if err != nil {
		return fmt.Errorf("updating shipment line %d: %w", l.ID, err)
	}
	return expectOne(res, "shipment line %d", l.ID)
}

// MarkShipmentReceived flips an OPEN shipment to RECEIVED.
func (s *queries) MarkShipmentReceived(ctx context.Context, id string, at time.Time) error {
	res, err := s.exec(ctx,
		`UPDATE shipments SET status = ?, received_at = ? WHERE id = ? AND status = ?`,
		string(model.ShipmentReceived), formatTime(at), id, string(model.ShipmentOpen))
	if err != nil {
		return fmt.Errorf("receiving shipment %s: %w", id, err)
	}
	return expectOne(res, "open shipment %s", id)
}

func receivedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}
