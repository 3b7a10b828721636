package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a stored exchange rate: one unit of From buys Rate units of To.
type Rate struct {
	From        string
	To          string
	EffectiveAt time.Time
	Rate        decimal.Decimal
}

// UpsertRate stores a rate, replacing any rate for the same pair and instant.
func (s *queries) UpsertRate(ctx context.Context, r Rate) error {
	_, err := s.exec(ctx,
		`INSERT INTO fx_rates (from_currency, to_currency, effective_at, rate)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (from_currency, to_currency, effective_at) DO UPDATE SET rate = excluded.rate`,
		r.From, r.To, formatTime(r.EffectiveAt), r.Rate.String())
	if err != nil {
		return fmt.Errorf("storing rate %s/%s: %w", r.From, r.To, err)
	}
	return nil
}

// LatestRate returns the most recent from→to rate effective at or before at.
func (s *queries) LatestRate(ctx context.Context, from, to string, at time.Time) (Rate, error) {
	var eff, rate string
	err := s.queryRow(ctx,
		`SELECT effective_at, rate FROM fx_rates
		 WHERE from_currency = ? AND to_currency = ? AND effective_at <= ?
		 ORDER BY effective_at DESC LIMIT 1`,
		from, to, formatTime(at)).Scan(&eff, &rate)
	if err != nil {
		return Rate{}, notFound(err, "rate %s/%s at %s", from, to, formatTime(at))
	}
	r := Rate{From: from, To: to}
	if r.EffectiveAt, err = parseTime(eff); err != nil {
		return Rate{}, err
	}
	if r.Rate, err = parseDecimal(rate); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// ListRates returns every stored rate ordered by pair and time.
func (s *queries) ListRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.query(ctx,
		`SELECT from_currency, to_currency, effective_at, rate FROM fx_rates
		 ORDER BY from_currency, to_currency, effective_at`)
	if err != nil {
		return nil, fmt.Errorf("listing rates: %w", err)
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var r Rate
		var eff, rate string
		if err := rows.Scan(&r.From, &r.To, &eff, &rate); err != nil {
			return nil, fmt.Errorf("scanning rate: %w", err)
		}
		if r.EffectiveAt, err = parseTime(eff); err != nil {
			return nil, err
		}
		if r.Rate, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
