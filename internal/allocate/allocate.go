// Package allocate spreads shared shipment costs across lines to the minor unit.
package allocate

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/money"
)

// ErrZeroQuantity is returned when a landed unit cost is asked for a line
// without quantity.
var ErrZeroQuantity = errors.New("line quantity is zero")

// UnitCostPlaces is the precision of landed unit costs.
const UnitCostPlaces = 4

// Line is the part of a shipment line the allocator needs.
type Line struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Base returns quantity times unit cost.
func (l Line) Base() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// Allocate distributes extrasTotal over lines in proportion to their base
// value. Each share is rounded to the currency's minor unit and the rounding
// residual is handed out one minor unit at a time to the lines that lost
// (or, for a negative residual, gained) the most in rounding, so the shares
// always sum to extrasTotal rounded to the minor unit.
//
// extrasTotal itself is rounded half away from zero before it is spread:
// 12.345 USD allocates 12.35. Callers that must not lose sub-minor digits
// check money.IsExact first, as the shipment service does on create.
//
// When extrasTotal is not positive or the lines have no base value every
// share is zero.
func Allocate(lines []Line, extrasTotal decimal.Decimal, currency string) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lines))
	for i := range shares {
		shares[i] = decimal.Zero
	}

	target := money.Round(extrasTotal, currency)
	totalBase := decimal.Zero
	for _, l := range lines {
		totalBase = totalBase.Add(l.Base())
	}
	if !target.IsPositive() || !totalBase.IsPositive() {
		return shares
	}

	// error[i] is exact share minus rounded share.
	errs := make([]decimal.Decimal, len(lines))
	allocated := decimal.Zero
	for i, l := range lines {
		exact := target.Mul(l.Base()).Div(totalBase)
		shares[i] = money.Round(exact, currency)
		errs[i] = exact.Sub(shares[i])
		allocated = allocated.Add(shares[i])
	}

	unit := money.Unit(currency)
	residual := target.Sub(allocated)
	if residual.IsZero() {
		return shares
	}

	step := unit
	if residual.IsNegative() {
		step = unit.Neg()
	}
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	// Largest loss first for a positive residual, largest gain first otherwise.
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := errs[order[a]], errs[order[b]]
		if step.IsNegative() {
			return ea.LessThan(eb)
		}
		return ea.GreaterThan(eb)
	})

	steps := residual.Div(unit).Abs().IntPart()
	for n := int64(0); n < steps; n++ {
		i := order[int(n)%len(order)]
		shares[i] = shares[i].Add(step)
	}
	return shares
}

// LandedUnitCost returns (quantity*unitCost + share) / quantity rounded to
// UnitCostPlaces.
func LandedUnitCost(line Line, share decimal.Decimal) (decimal.Decimal, error) {
	if line.Quantity.IsZero() {
		return decimal.Zero, ErrZeroQuantity
	}
	return line.Base().Add(share).DivRound(line.Quantity, UnitCostPlaces), nil
}
