package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/model"
)

var allStatuses = []model.InstrumentStatus{
	model.StatusPending, model.StatusCashed, model.StatusReturned, model.StatusBounced,
	model.StatusResubmitted, model.StatusCancelled, model.StatusArchived, model.StatusOverdue,
}

func TestCanTransition(t *testing.T) {
	allowed := map[model.InstrumentStatus][]model.InstrumentStatus{
		model.StatusPending:     {model.StatusCashed, model.StatusReturned, model.StatusBounced, model.StatusCancelled},
		model.StatusReturned:    {model.StatusResubmitted, model.StatusCancelled},
		model.StatusBounced:     {model.StatusResubmitted, model.StatusCancelled},
		model.StatusResubmitted: {model.StatusCashed, model.StatusReturned, model.StatusBounced, model.StatusCancelled},
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestTerminalAndArchive(t *testing.T) {
	assert.True(t, Terminal(model.StatusCashed))
	assert.True(t, Terminal(model.StatusCancelled))
	assert.False(t, Terminal(model.StatusPending))
	assert.False(t, Terminal(model.StatusOverdue))

	assert.True(t, CanArchive(model.StatusCashed))
	assert.True(t, CanArchive(model.StatusCancelled))
	assert.False(t, CanArchive(model.StatusReturned))

	next := Allowed(model.StatusPending)
	next[0] = model.StatusArchived
	assert.True(t, CanTransition(model.StatusPending, model.StatusCashed), "Allowed must return a copy")
}

func TestResolveEffect(t *testing.T) {
	tests := []struct {
		direction   model.Direction
		target      model.InstrumentStatus
		dishonoured bool
		kind        EffectKind
		debit       accounts.Role
		credit      accounts.Role
	}{
		{model.DirectionIn, model.StatusCashed, false, EffectCashed, accounts.RoleBank, accounts.RoleChecksReceivable},
		{model.DirectionOut, model.StatusCashed, false, EffectCashed, accounts.RoleChecksPayable, accounts.RoleBank},
		{model.DirectionIn, model.StatusReturned, false, EffectDishonoured, accounts.RoleAccountsReceivable, accounts.RoleChecksReceivable},
		{model.DirectionIn, model.StatusBounced, false, EffectDishonoured, accounts.RoleAccountsReceivable, accounts.RoleChecksReceivable},
		{model.DirectionOut, model.StatusReturned, false, EffectDishonoured, accounts.RoleChecksPayable, accounts.RoleAccountsPayable},
		{model.DirectionOut, model.StatusBounced, false, EffectDishonoured, accounts.RoleChecksPayable, accounts.RoleAccountsPayable},
		{model.DirectionIn, model.StatusCancelled, false, EffectWriteOff, accounts.RoleAccountsReceivable, accounts.RoleChecksReceivable},
		{model.DirectionOut, model.StatusCancelled, false, EffectWriteOff, accounts.RoleChecksPayable, accounts.RoleAccountsPayable},
		{model.DirectionIn, model.StatusResubmitted, true, EffectNone, "", ""},
		{model.DirectionIn, model.StatusCashed, true, EffectRecovered, accounts.RoleBank, accounts.RoleAccountsReceivable},
		{model.DirectionOut, model.StatusCashed, true, EffectRecovered, accounts.RoleAccountsPayable, accounts.RoleBank},
		{model.DirectionIn, model.StatusBounced, true, EffectNone, "", ""},
		{model.DirectionOut, model.StatusCancelled, true, EffectNone, "", ""},
	}
	for _, tt := range tests {
		got := ResolveEffect(tt.direction, tt.target, tt.dishonoured)
		assert.Equal(t, tt.kind, got.Kind, "%s %s dishonoured=%v", tt.direction, tt.target, tt.dishonoured)
		assert.Equal(t, tt.debit, got.Debit, "%s %s debit", tt.direction, tt.target)
		assert.Equal(t, tt.credit, got.Credit, "%s %s credit", tt.direction, tt.target)
		if got.Posts() {
			assert.Equal(t, "CHECK_"+string(tt.target), got.SourceType)
		}
	}
}
