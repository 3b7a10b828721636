package instrument

import (
	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/model"
)

// EffectKind enumerates the ledger effects a transition can have.
type EffectKind int

const (
	// EffectNone posts nothing.
	EffectNone EffectKind = iota
	// EffectCashed clears the check against the bank.
	EffectCashed
	// EffectRecovered settles through the bank a debt restored by an
	// earlier return or bounce.
	EffectRecovered
	// EffectDishonoured moves the check back onto the counterparty's balance.
	EffectDishonoured
	// EffectWriteOff cancels the check with the same pairs as a return.
	EffectWriteOff
)

func (k EffectKind) String() string {
	switch k {
	case EffectCashed:
		return "cashed"
	case EffectRecovered:
		return "recovered"
	case EffectDishonoured:
		return "dishonoured"
	case EffectWriteOff:
		return "write-off"
	default:
		return "none"
	}
}

// TransitionEffect is the ledger effect of moving a check of one direction
// into a target status.
type TransitionEffect struct {
	Kind       EffectKind
	SourceType string
	Debit      accounts.Role
	Credit     accounts.Role
}

// Posts reports whether the effect writes a batch.
func (e TransitionEffect) Posts() bool {
	return e.Kind != EffectNone
}

// ResolveEffect returns the effect of moving a check into target.
//
// A check that was already returned or bounced has had its debt restored
// to the counterparty, so a later CASHED settles that debt and a repeated
// dishonour or a cancellation posts nothing.
func ResolveEffect(direction model.Direction, target model.InstrumentStatus, dishonoured bool) TransitionEffect {
	in := direction == model.DirectionIn
	sourceType := "CHECK_" + string(target)

	switch target {
	case model.StatusCashed:
		switch {
		case dishonoured && in:
			return TransitionEffect{EffectRecovered, sourceType, accounts.RoleBank, accounts.RoleAccountsReceivable}
		case dishonoured:
			return TransitionEffect{EffectRecovered, sourceType, accounts.RoleAccountsPayable, accounts.RoleBank}
		case in:
			return TransitionEffect{EffectCashed, sourceType, accounts.RoleBank, accounts.RoleChecksReceivable}
		default:
			return TransitionEffect{EffectCashed, sourceType, accounts.RoleChecksPayable, accounts.RoleBank}
		}

	case model.StatusReturned, model.StatusBounced, model.StatusCancelled:
		if dishonoured {
			return TransitionEffect{Kind: EffectNone}
		}
		kind := EffectDishonoured
		if target == model.StatusCancelled {
			kind = EffectWriteOff
		}
		if in {
			return TransitionEffect{kind, sourceType, accounts.RoleAccountsReceivable, accounts.RoleChecksReceivable}
		}
		return TransitionEffect{kind, sourceType, accounts.RoleChecksPayable, accounts.RoleAccountsPayable}
	}

	// RESUBMITTED only restores eligibility; ARCHIVED is bookkeeping.
	return TransitionEffect{Kind: EffectNone}
}
