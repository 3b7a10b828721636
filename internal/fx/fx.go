// Package fx resolves historical exchange rates and converts amounts.
package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrRateUnavailable is returned when no direct or inverse rate exists.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// inversePlaces is the precision of a rate derived as 1/rate.
const inversePlaces = 10

var one = decimal.NewFromInt(1)

// RateSource looks up the most recent rate effective at or before a time.
// It returns store.ErrNotFound when there is none.
type RateSource interface {
	LatestRate(ctx context.Context, from, to string, at time.Time) (store.Rate, error)
}

// RateSink stores rates.
type RateSink interface {
	UpsertRate(ctx context.Context, r store.Rate) error
}

// Resolver finds the rate between two currencies at a point in time.
type Resolver struct {
	src RateSource
	log *zap.Logger
}

// NewResolver creates a Resolver reading from src.
func NewResolver(src RateSource, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{src: src, log: log}
}

// WithSource returns a copy of the resolver reading from src, typically the
// transaction the caller is already in.
func (r *Resolver) WithSource(src RateSource) *Resolver {
	return &Resolver{src: src, log: r.log}
}

// Rate returns how many units of to one unit of from buys at the given time.
//
// The most recent from→to rate effective at or before at wins. Without one,
// the inverse of the most recent to→from rate is used. When neither exists
// Rate fails with ErrRateUnavailable if raiseOnMissing is set, and otherwise
// reports found=false with a nil error.
func (r *Resolver) Rate(ctx context.Context, from, to string, at time.Time, raiseOnMissing bool) (rate decimal.Decimal, found bool, err error) {
	from, to = money.Normalize(from), money.Normalize(to)
	if from == to {
		return one, true, nil
	}

	direct, err := r.lookup(ctx, from, to, at)
	if err != nil {
		return decimal.Zero, false, err
	}
	if direct != nil {
		return direct.Rate, true, nil
	}

	inverse, err := r.lookup(ctx, to, from, at)
	if err != nil {
		return decimal.Zero, false, err
	}
	if inverse != nil {
		return one.DivRound(inverse.Rate, inversePlaces), true, nil
	}

	if raiseOnMissing {
		return decimal.Zero, false, fmt.Errorf("%w: %s/%s at %s", ErrRateUnavailable, from, to, at.UTC().Format(time.RFC3339))
	}
	return decimal.Zero, false, nil
}

func (r *Resolver) lookup(ctx context.Context, from, to string, at time.Time) (*store.Rate, error) {
	rate, err := r.src.LatestRate(ctx, from, to, at)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up rate %s/%s: %w", from, to, err)
	}
	if !rate.Rate.IsPositive() {
		return nil, nil
	}
	return &rate, nil
}

// Conversion is the outcome of Convert.
type Conversion struct {
	Amount    decimal.Decimal
	Currency  string
	Rate      decimal.Decimal
	Converted bool // false when the rate was missing and the original amount was kept
}

// Convert converts amount from one currency to another at the given time,
// rounded to the target's minor unit. A missing rate is not an error: the
// original amount and currency are kept and Converted is false. Callers
// decide whether that deserves a warning. No rate is ever guessed.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, from, to string, at time.Time) (Conversion, error) {
	from, to = money.Normalize(from), money.Normalize(to)
	rate, found, err := r.Rate(ctx, from, to, at, false)
	if err != nil {
		return Conversion{}, err
	}
	if !found {
		r.log.Debug("exchange rate missing, keeping original currency",
			zap.String("from", from),
			zap.String("to", to),
			zap.Time("at", at),
			zap.String("amount", amount.String()))
		return Conversion{Amount: amount, Currency: from}, nil
	}
	return Conversion{
		Amount:    money.Round(amount.Mul(rate), to),
		Currency:  to,
		Rate:      rate,
		Converted: true,
	}, nil
}

// Set records a rate effective from at.
func Set(ctx context.Context, sink RateSink, from, to string, at time.Time, rate decimal.Decimal) error {
	from, to = money.Normalize(from), money.Normalize(to)
	if from == "" || to == "" || from == to {
		return fmt.Errorf("invalid currency pair %q/%q", from, to)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("rate %s/%s must be positive, got %s", from, to, rate)
	}
	return sink.UpsertRate(ctx, store.Rate{From: from, To: to, EffectiveAt: at, Rate: rate})
}
