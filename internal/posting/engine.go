// Package posting is the only writer of batches and entries. It posts
// balanced batches exactly once per source event and reverses them.
package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrUnknownAccount is returned when a leg names an account that does not exist.
var ErrUnknownAccount = errors.New("unknown account")

// Request describes one accounting event to post.
type Request struct {
	SourceType string
	SourceID   string
	Currency   string
	Memo       string
	EntityRef  string
	Legs       []model.Leg
}

// Engine posts and reverses batches.
type Engine struct {
	db  *store.DB
	log *zap.Logger
	now func() time.Time
}

// NewEngine creates an Engine writing to db.
func NewEngine(db *store.DB, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, log: log, now: time.Now}
}

// Post posts req in its own transaction. If an active batch already exists
// for the request's source key it is returned unchanged.
func (e *Engine) Post(ctx context.Context, req Request) (*model.Batch, error) {
	var b *model.Batch
	err := e.db.Transaction(ctx, func(tx *store.Tx) error {
		var err error
		b, err = e.PostTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// PostTx is Post inside the caller's transaction.
func (e *Engine) PostTx(ctx context.Context, tx *store.Tx, req Request) (*model.Batch, error) {
	req.Currency = money.Normalize(req.Currency)
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := journal.Validate(req.Legs, req.Currency); err != nil {
		return nil, fmt.Errorf("posting %s/%s: %w", req.SourceType, req.SourceID, err)
	}
	if err := checkAccounts(ctx, tx, req.Legs); err != nil {
		return nil, fmt.Errorf("posting %s/%s: %w", req.SourceType, req.SourceID, err)
	}

	existing, err := tx.ActiveBatch(ctx, req.SourceType, req.SourceID)
	switch {
	case err == nil:
		e.log.Debug("batch already posted",
			zap.String("source_type", req.SourceType),
			zap.String("source_id", req.SourceID),
			zap.String("batch_code", existing.Code))
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	b := e.newBatch(req.SourceType, req.SourceID, req.Currency, req.Memo, req.EntityRef, req.Legs)
	if err := tx.InsertBatch(ctx, b); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent post of the same event.
			return tx.ActiveBatch(ctx, req.SourceType, req.SourceID)
		}
		return nil, err
	}

	e.log.Info("batch posted",
		zap.String("source_type", b.SourceType),
		zap.String("source_id", b.SourceID),
		zap.String("batch_code", b.Code),
		zap.String("currency", b.Currency),
		zap.Int("legs", len(b.Entries)))
	return b, nil
}

// Reverse posts the reversal of the active batch for a source key in its own
// transaction and marks the original superseded. When the original has
// already been reversed the existing reversal is returned. Without any
// original batch it fails with store.ErrNotFound.
func (e *Engine) Reverse(ctx context.Context, sourceType, sourceID string) (*model.Batch, error) {
	var b *model.Batch
	err := e.db.Transaction(ctx, func(tx *store.Tx) error {
		var err error
		b, err = e.ReverseTx(ctx, tx, sourceType, sourceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ReverseTx is Reverse inside the caller's transaction.
func (e *Engine) ReverseTx(ctx context.Context, tx *store.Tx, sourceType, sourceID string) (*model.Batch, error) {
	orig, err := tx.ActiveBatch(ctx, sourceType, sourceID)
	if err == nil {
		return e.reverseBatch(ctx, tx, orig)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	latest, err := tx.LatestBatch(ctx, sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("reversing %s/%s: %w", sourceType, sourceID, err)
	}
	return tx.ReversalOf(ctx, latest.ID)
}

// ReverseSource reverses every active batch whose source id is sourceID,
// whatever its source type. It is the hook owners call before deleting the
// record the batches were posted for.
func (e *Engine) ReverseSource(ctx context.Context, tx *store.Tx, sourceID string) ([]*model.Batch, error) {
	originals, err := tx.ActiveBatchesBySourceID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	reversals := make([]*model.Batch, 0, len(originals))
	for _, orig := range originals {
		rev, err := e.reverseBatch(ctx, tx, orig)
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, rev)
	}
	return reversals, nil
}

func (e *Engine) reverseBatch(ctx context.Context, tx *store.Tx, orig *model.Batch) (*model.Batch, error) {
	legs := make([]model.Leg, len(orig.Entries))
	for i, entry := range orig.Entries {
		legs[i] = entry.Leg().Swap()
	}
	if err := journal.Validate(legs, orig.Currency); err != nil {
		return nil, fmt.Errorf("reversing %s: %w", orig.Code, err)
	}

	rev := e.newBatch(orig.SourceType+model.ReversalSuffix, orig.SourceID, orig.Currency,
		"Reversal of "+orig.Code, orig.EntityRef, legs)
	rev.ReversesBatchID = orig.ID

	if err := tx.InsertBatch(ctx, rev); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return tx.ReversalOf(ctx, orig.ID)
		}
		return nil, err
	}
	if err := tx.MarkSuperseded(ctx, orig.ID, rev.ID); err != nil {
		return nil, err
	}

	e.log.Info("batch reversed",
		zap.String("source_type", orig.SourceType),
		zap.String("source_id", orig.SourceID),
		zap.String("batch_code", orig.Code),
		zap.String("reversal_code", rev.Code))
	return rev, nil
}

// Batch returns the active batch for a source key.
func (e *Engine) Batch(ctx context.Context, sourceType, sourceID string) (*model.Batch, error) {
	return e.db.ActiveBatch(ctx, sourceType, sourceID)
}

// TrialBalance returns posted totals per account and currency.
func (e *Engine) TrialBalance(ctx context.Context) ([]model.AccountBalance, error) {
	return e.db.TrialBalance(ctx)
}

func (e *Engine) newBatch(sourceType, sourceID, currency, memo, entityRef string, legs []model.Leg) *model.Batch {
	entries := make([]model.Entry, len(legs))
	for i, l := range legs {
		entries[i] = model.Entry{
			Account: l.Account,
			Debit:   l.Debit,
			Credit:  l.Credit,
			Ref:     l.Ref,
		}
	}
	return &model.Batch{
		ID:         id.New(),
		Code:       id.FormatBatchCode(sourceType, sourceID),
		SourceType: sourceType,
		SourceID:   sourceID,
		Currency:   currency,
		Status:     model.BatchDraft,
		Memo:       memo,
		EntityRef:  entityRef,
		CreatedAt:  e.now().UTC(),
		Entries:    entries,
	}
}

func checkRequest(req Request) error {
	switch {
	case req.SourceType == "":
		return errors.New("source type is required")
	case strings.Contains(req.SourceType, "-"):
		return fmt.Errorf("source type %q must not contain '-'", req.SourceType)
	case strings.HasSuffix(req.SourceType, model.ReversalSuffix):
		return fmt.Errorf("source type %q is reserved for reversals", req.SourceType)
	case req.SourceID == "":
		return errors.New("source id is required")
	case req.Currency == "":
		return errors.New("currency is required")
	}
	return nil
}

func checkAccounts(ctx context.Context, tx *store.Tx, legs []model.Leg) error {
	seen := make(map[string]bool, len(legs))
	for _, l := range legs {
		if seen[l.Account] {
			continue
		}
		seen[l.Account] = true
		ok, err := tx.AccountExists(ctx, l.Account)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, l.Account)
		}
	}
	return nil
}
