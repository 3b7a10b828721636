package journal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

var (
	// ErrUnbalanced means the debits of a batch do not equal its credits.
	ErrUnbalanced = errors.New("unbalanced batch")
	// ErrInvalidLeg means a single leg breaks a structural rule.
	ErrInvalidLeg = errors.New("invalid leg")
	// ErrNoLegs means a posting request carried no legs.
	ErrNoLegs = errors.New("batch has no legs")
)

// Invariant numbers reported by ValidationError.
const (
	InvariantBalanced  = 1
	InvariantOneSide   = 2
	InvariantAccount   = 3
	InvariantPositive  = 4
	InvariantMinorUnit = 5
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	Line        int // 1-based leg number; 0 for batch-level violations
	Description string
}

func (e ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("invariant %d: %s", e.Invariant, e.Description)
	}
	return fmt.Sprintf("invariant %d [leg %d]: %s", e.Invariant, e.Line, e.Description)
}

// Unwrap maps the violation onto the sentinel callers match with errors.Is.
func (e ValidationError) Unwrap() error {
	if e.Invariant == InvariantBalanced {
		return ErrUnbalanced
	}
	return ErrInvalidLeg
}

// ValidateLegs enforces the leg invariants for one batch in the given currency.
func ValidateLegs(legs []model.Leg, currency string) []ValidationError {
	var errs []ValidationError

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, leg := range legs {
		line := i + 1
		totalDebit = totalDebit.Add(leg.Debit)
		totalCredit = totalCredit.Add(leg.Credit)

		// Invariant 2: exactly one of debit/credit per leg.
		hasDebit := !leg.Debit.IsZero()
		hasCredit := !leg.Credit.IsZero()
		if hasDebit == hasCredit {
			errs = append(errs, ValidationError{
				Invariant:   InvariantOneSide,
				Line:        line,
				Description: "leg must have exactly one of debit or credit",
			})
		}

		// Invariant 3: an account is named.
		if leg.Account == "" {
			errs = append(errs, ValidationError{
				Invariant:   InvariantAccount,
				Line:        line,
				Description: "leg has no account",
			})
		}

		// Invariant 4: amounts are never negative.
		if leg.Debit.IsNegative() || leg.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   InvariantPositive,
				Line:        line,
				Description: fmt.Sprintf("negative amount (debit %s, credit %s)", leg.Debit, leg.Credit),
			})
		}

		// Invariant 5: amounts are exact in the currency's minor unit.
		if !money.IsExact(leg.Debit, currency) || !money.IsExact(leg.Credit, currency) {
			errs = append(errs, ValidationError{
				Invariant:   InvariantMinorUnit,
				Line:        line,
				Description: fmt.Sprintf("amount has more than %d decimal places for %s", money.Places(currency), money.Normalize(currency)),
			})
		} else if !money.InRange(leg.Debit, currency) || !money.InRange(leg.Credit, currency) {
			errs = append(errs, ValidationError{
				Invariant:   InvariantMinorUnit,
				Line:        line,
				Description: fmt.Sprintf("amount exceeds the storable range for %s", money.Normalize(currency)),
			})
		}
	}

	// Invariant 1: sum(debits) == sum(credits), and the totals stay storable.
	if !money.InRange(totalDebit, currency) || !money.InRange(totalCredit, currency) {
		errs = append(errs, ValidationError{
			Invariant:   InvariantMinorUnit,
			Description: fmt.Sprintf("batch total exceeds the storable range for %s", money.Normalize(currency)),
		})
	}
	if !totalDebit.Equal(totalCredit) {
		errs = append(errs, ValidationError{
			Invariant: InvariantBalanced,
			Description: fmt.Sprintf("debits (%s) != credits (%s)",
				money.Format(totalDebit, currency), money.Format(totalCredit, currency)),
		})
	}

	return errs
}

// Validate runs ValidateLegs and combines the violations into one error.
// The result matches ErrUnbalanced or ErrInvalidLeg with errors.Is.
func Validate(legs []model.Leg, currency string) error {
	if len(legs) == 0 {
		return ErrNoLegs
	}
	var err error
	for _, ve := range ValidateLegs(legs, currency) {
		err = multierr.Append(err, ve)
	}
	return err
}
