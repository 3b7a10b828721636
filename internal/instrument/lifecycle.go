package instrument

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrIllegalTransition is returned when a status change is not in the graph.
// The check is left unchanged.
var ErrIllegalTransition = errors.New("illegal transition")

// Lifecycle creates checks and moves them between statuses.
type Lifecycle struct {
	db       *store.DB
	engine   *posting.Engine
	registry *accounts.Registry
	rates    *fx.Resolver
	home     string
	log      *zap.Logger
	now      func() time.Time
}

// NewLifecycle creates a Lifecycle. Ledger legs are posted in homeCurrency.
func NewLifecycle(db *store.DB, engine *posting.Engine, registry *accounts.Registry, rates *fx.Resolver, homeCurrency string, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		db:       db,
		engine:   engine,
		registry: registry,
		rates:    rates,
		home:     money.Normalize(homeCurrency),
		log:      log,
		now:      time.Now,
	}
}

// NewCheck holds the fields a caller supplies when registering a check.
type NewCheck struct {
	CheckNumber      string
	Bank             string
	IssueDate        time.Time
	DueDate          time.Time // defaults to IssueDate
	Amount           decimal.Decimal
	Currency         string
	Direction        model.Direction
	CounterpartyType model.CounterpartyType
	CounterpartyID   string
	Actor            string
}

// Create registers a PENDING check. Creating a check posts nothing.
func (l *Lifecycle) Create(ctx context.Context, nc NewCheck) (*model.Instrument, error) {
	nc.Currency = money.Normalize(nc.Currency)
	if nc.DueDate.IsZero() {
		nc.DueDate = nc.IssueDate
	}
	if err := validateNew(nc); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	in := &model.Instrument{
		ID:               id.New(),
		CheckNumber:      nc.CheckNumber,
		Bank:             nc.Bank,
		IssueDate:        nc.IssueDate,
		DueDate:          nc.DueDate,
		Amount:           nc.Amount,
		Currency:         nc.Currency,
		Direction:        nc.Direction,
		Status:           model.StatusPending,
		CounterpartyType: nc.CounterpartyType,
		CounterpartyID:   nc.CounterpartyID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created := model.AuditEntry{To: model.StatusPending, Actor: nc.Actor, Notes: "created", At: now}

	err := l.db.Transaction(ctx, func(tx *store.Tx) error {
		if err := tx.InsertInstrument(ctx, in); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, in.ID, created)
	})
	if err != nil {
		return nil, err
	}
	in.History = []model.AuditEntry{created}

	l.log.Info("check registered",
		zap.String("instrument_id", in.ID),
		zap.String("check_number", in.CheckNumber),
		zap.String("direction", string(in.Direction)))
	return in, nil
}

func validateNew(nc NewCheck) error {
	switch {
	case strings.TrimSpace(nc.CheckNumber) == "":
		return errors.New("check number is required")
	case !nc.Direction.Valid():
		return fmt.Errorf("invalid direction %q", nc.Direction)
	case nc.IssueDate.IsZero():
		return errors.New("issue date is required")
	case nc.DueDate.Before(nc.IssueDate):
		return errors.New("due date is before issue date")
	case nc.Currency == "":
		return errors.New("currency is required")
	case !nc.Amount.IsPositive():
		return fmt.Errorf("amount must be positive, got %s", nc.Amount)
	case !money.IsExact(nc.Amount, nc.Currency):
		return fmt.Errorf("amount %s has more than %d decimal places for %s", nc.Amount, money.Places(nc.Currency), nc.Currency)
	}
	switch nc.CounterpartyType {
	case model.CounterpartyNone, model.CounterpartyCustomer, model.CounterpartySupplier, model.CounterpartyPartner:
	default:
		return fmt.Errorf("invalid counterparty type %q", nc.CounterpartyType)
	}
	return nil
}

// Get returns a check with its history.
func (l *Lifecycle) Get(ctx context.Context, instrumentID string) (*model.Instrument, error) {
	return l.db.GetInstrument(ctx, instrumentID, false)
}

// Find returns the checks with a bank and check number.
func (l *Lifecycle) Find(ctx context.Context, bank, checkNumber string) ([]*model.Instrument, error) {
	return l.db.FindInstruments(ctx, bank, checkNumber)
}

// List returns the checks whose effective status is status, or all checks
// when status is empty. Passing StatusOverdue selects overdue checks.
func (l *Lifecycle) List(ctx context.Context, status model.InstrumentStatus) ([]*model.Instrument, error) {
	all, err := l.db.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	now := l.now()
	var out []*model.Instrument
	for _, in := range all {
		if in.EffectiveStatus(now) == status {
			out = append(out, in)
		}
	}
	return out, nil
}

// Transition moves a check to newStatus and posts the transition's ledger
// effect, all in one transaction. A target outside the status graph fails
// with ErrIllegalTransition and changes nothing.
func (l *Lifecycle) Transition(ctx context.Context, instrumentID string, newStatus model.InstrumentStatus, notes, actor string) (*model.Instrument, error) {
	var in *model.Instrument
	err := l.db.Transaction(ctx, func(tx *store.Tx) error {
		var err error
		in, err = tx.GetInstrument(ctx, instrumentID, true)
		if err != nil {
			return err
		}
		if !CanTransition(in.Status, newStatus) {
			return fmt.Errorf("%w: %s → %s for check %s (allowed: %v)",
				ErrIllegalTransition, in.Status, newStatus, in.CheckNumber, Allowed(in.Status))
		}

		effect := ResolveEffect(in.Direction, newStatus, in.WasDishonoured())
		var batchID string
		if effect.Posts() {
			b, err := l.post(ctx, tx, in, newStatus, effect)
			if err != nil {
				return err
			}
			batchID = b.ID
		}
		return l.apply(ctx, tx, in, newStatus, notes, actor, batchID)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("check transitioned",
		zap.String("instrument_id", in.ID),
		zap.String("status", string(in.Status)),
		zap.String("actor", actor))
	return in, nil
}

// Archive moves a CASHED or CANCELLED check to ARCHIVED. It posts nothing.
func (l *Lifecycle) Archive(ctx context.Context, instrumentID, notes, actor string) (*model.Instrument, error) {
	var in *model.Instrument
	err := l.db.Transaction(ctx, func(tx *store.Tx) error {
		var err error
		in, err = tx.GetInstrument(ctx, instrumentID, true)
		if err != nil {
			return err
		}
		if !CanArchive(in.Status) {
			return fmt.Errorf("%w: %s → %s for check %s", ErrIllegalTransition, in.Status, model.StatusArchived, in.CheckNumber)
		}
		return l.apply(ctx, tx, in, model.StatusArchived, notes, actor, "")
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Delete reverses every batch posted for the check and then removes it, in
// one transaction. It returns the reversal batches.
func (l *Lifecycle) Delete(ctx context.Context, instrumentID, actor string) ([]*model.Batch, error) {
	var reversals []*model.Batch
	err := l.db.Transaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetInstrument(ctx, instrumentID, true); err != nil {
			return err
		}
		var err error
		if reversals, err = l.engine.ReverseSource(ctx, tx, instrumentID); err != nil {
			return fmt.Errorf("reversing batches of check %s: %w", instrumentID, err)
		}
		return tx.DeleteInstrument(ctx, instrumentID)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("check deleted",
		zap.String("instrument_id", instrumentID),
		zap.String("actor", actor),
		zap.Int("reversals", len(reversals)))
	return reversals, nil
}

// post writes the batch for a transition effect. Amounts are valued in the
// home currency with the last rate published on the check's issue date.
func (l *Lifecycle) post(ctx context.Context, tx *store.Tx, in *model.Instrument, target model.InstrumentStatus, effect TransitionEffect) (*model.Batch, error) {
	debit, err := l.registry.Resolve(effect.Debit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", posting.ErrUnknownAccount, err)
	}
	credit, err := l.registry.Resolve(effect.Credit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", posting.ErrUnknownAccount, err)
	}

	conv, err := l.rates.WithSource(tx).Convert(ctx, in.Amount, in.Currency, l.home, valuationTime(in))
	if err != nil {
		return nil, err
	}
	if !conv.Converted {
		l.log.Warn("posting check in original currency",
			zap.String("instrument_id", in.ID),
			zap.String("currency", in.Currency),
			zap.String("home_currency", l.home))
	}

	ref := fmt.Sprintf("check %s", in.CheckNumber)
	return l.engine.PostTx(ctx, tx, posting.Request{
		SourceType: effect.SourceType,
		SourceID:   in.ID,
		Currency:   conv.Currency,
		Memo:       memo(in, effect, target),
		EntityRef:  entityRef(in),
		Legs: []model.Leg{
			{Account: debit, Debit: conv.Amount, Credit: decimal.Zero, Ref: ref},
			{Account: credit, Debit: decimal.Zero, Credit: conv.Amount, Ref: ref},
		},
	})
}

// valuationTime is the last instant of the issue day, so rates stamped at
// any time that day apply.
func valuationTime(in *model.Instrument) time.Time {
	y, m, d := in.IssueDate.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (l *Lifecycle) apply(ctx context.Context, tx *store.Tx, in *model.Instrument, to model.InstrumentStatus, notes, actor, batchID string) error {
	now := l.now().UTC()
	entry := model.AuditEntry{From: in.Status, To: to, Actor: actor, Notes: notes, At: now, BatchID: batchID}

	in.Status = to
	in.UpdatedAt = now
	if err := tx.UpdateInstrumentStatus(ctx, in); err != nil {
		return err
	}
	if err := tx.AppendHistory(ctx, in.ID, entry); err != nil {
		return err
	}
	in.History = append(in.History, entry)
	return nil
}

func memo(in *model.Instrument, effect TransitionEffect, target model.InstrumentStatus) string {
	name := fmt.Sprintf("check %s", in.CheckNumber)
	if in.Bank != "" {
		name += " (" + in.Bank + ")"
	}
	switch effect.Kind {
	case EffectWriteOff:
		return "Write-off of cancelled " + name
	case EffectRecovered:
		return "Settlement of previously dishonoured " + name
	case EffectDishonoured:
		if target == model.StatusBounced {
			return "Bounced " + name
		}
		return "Returned " + name
	default:
		return "Cashed " + name
	}
}

func entityRef(in *model.Instrument) string {
	if in.CounterpartyType == model.CounterpartyNone || in.CounterpartyID == "" {
		return ""
	}
	return string(in.CounterpartyType) + ":" + in.CounterpartyID
}
