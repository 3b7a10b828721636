package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

const batchColumns = `id, code, source_type, source_id, currency, status, memo, entity_ref,
	reverses_batch_id, superseded_by, created_at`

// InsertBatch writes a batch and its entries and marks it POSTED.
//
// The batch is inserted as DRAFT, the entries are added, and the status flip
// to POSTED is checked by the balance trigger. A unique violation on the batch
// row (code, active source key or reversal target) returns ErrDuplicate; a
// rejected flip returns an error matching journal.ErrUnbalanced. On failure
// nothing is left behind and the transaction stays usable.
func (t *Tx) InsertBatch(ctx context.Context, b *model.Batch) error {
	return t.savepoint(ctx, "insert_batch", func() error {
		_, err := t.exec(ctx,
			`INSERT INTO batches (`+batchColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
			b.ID, b.Code, b.SourceType, b.SourceID, b.Currency, string(model.BatchDraft),
			b.Memo, b.EntityRef, nullString(b.ReversesBatchID), formatTime(b.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: batch %s/%s", ErrDuplicate, b.SourceType, b.SourceID)
			}
			return fmt.Errorf("inserting batch %s: %w", b.Code, err)
		}

		for i := range b.Entries {
			e := &b.Entries[i]
			e.BatchID = b.ID
			e.Line = i + 1
			e.Currency = b.Currency
			if err := t.insertEntry(ctx, e); err != nil {
				return err
			}
		}

		_, err = t.exec(ctx, `UPDATE batches SET status = ? WHERE id = ?`, string(model.BatchPosted), b.ID)
		if err != nil {
			if isUnbalancedAbort(err) {
				return fmt.Errorf("%w: batch %s rejected by database", journal.ErrUnbalanced, b.Code)
			}
			return fmt.Errorf("posting batch %s: %w", b.Code, err)
		}
		b.Status = model.BatchPosted
		return nil
	})
}

func (t *Tx) insertEntry(ctx context.Context, e *model.Entry) error {
	debit, err := money.ToMinor(e.Debit, e.Currency)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Line, err)
	}
	credit, err := money.ToMinor(e.Credit, e.Currency)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Line, err)
	}
	err = t.queryRow(ctx,
		`INSERT INTO entries (batch_id, line, account, debit, credit, currency, ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.BatchID, e.Line, e.Account, debit, credit, e.Currency, e.Ref).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting entry %d of batch %s: %w", e.Line, e.BatchID, err)
	}
	return nil
}

// MarkSuperseded records that batchID has been reversed by reversalID.
func (t *Tx) MarkSuperseded(ctx context.Context, batchID, reversalID string) error {
	res, err := t.exec(ctx,
		`UPDATE batches SET superseded_by = ? WHERE id = ? AND superseded_by IS NULL`,
		reversalID, batchID)
	if err != nil {
		return fmt.Errorf("superseding batch %s: %w", batchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("superseding batch %s: %w", batchID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: active batch %s", ErrNotFound, batchID)
	}
	return nil
}

// ActiveBatch returns the live original batch for a source key.
func (s *queries) ActiveBatch(ctx context.Context, sourceType, sourceID string) (*model.Batch, error) {
	return s.oneBatch(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE source_type = ? AND source_id = ?
		   AND superseded_by IS NULL AND reverses_batch_id IS NULL`,
		fmt.Sprintf("active batch %s/%s", sourceType, sourceID),
		sourceType, sourceID)
}

// LatestBatch returns the most recent original batch for a source key,
// superseded or not.
func (s *queries) LatestBatch(ctx context.Context, sourceType, sourceID string) (*model.Batch, error) {
	return s.oneBatch(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE source_type = ? AND source_id = ? AND reverses_batch_id IS NULL
		 ORDER BY created_at DESC, code DESC LIMIT 1`,
		fmt.Sprintf("batch %s/%s", sourceType, sourceID),
		sourceType, sourceID)
}

// ReversalOf returns the batch that reverses batchID.
func (s *queries) ReversalOf(ctx context.Context, batchID string) (*model.Batch, error) {
	return s.oneBatch(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE reverses_batch_id = ?`,
		fmt.Sprintf("reversal of batch %s", batchID), batchID)
}

// GetBatch returns a batch by id.
func (s *queries) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	return s.oneBatch(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = ?`,
		fmt.Sprintf("batch %s", id), id)
}

// GetBatchByCode returns a batch by its human-readable code.
func (s *queries) GetBatchByCode(ctx context.Context, code string) (*model.Batch, error) {
	return s.oneBatch(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE code = ?`,
		fmt.Sprintf("batch %s", code), code)
}

// ActiveBatchesBySourceID returns every live original batch whose source id
// matches, whatever its source type.
func (s *queries) ActiveBatchesBySourceID(ctx context.Context, sourceID string) ([]*model.Batch, error) {
	return s.batches(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE source_id = ? AND superseded_by IS NULL AND reverses_batch_id IS NULL
		 ORDER BY created_at, code`,
		sourceID)
}

// BatchesBySourceID returns every batch, reversals included, for a source id.
func (s *queries) BatchesBySourceID(ctx context.Context, sourceID string) ([]*model.Batch, error) {
	return s.batches(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE source_id = ? ORDER BY created_at, code`,
		sourceID)
}

// ListBatches returns all posted batches in creation order.
func (s *queries) ListBatches(ctx context.Context) ([]*model.Batch, error) {
	return s.batches(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE status = ? ORDER BY created_at, code`,
		string(model.BatchPosted))
}

// TrialBalance sums posted entries per account and currency.
func (s *queries) TrialBalance(ctx context.Context) ([]model.AccountBalance, error) {
	rows, err := s.query(ctx,
		`SELECT e.account, a.name, a.type, e.currency,
		        CAST(SUM(e.debit) AS BIGINT), CAST(SUM(e.credit) AS BIGINT)
		 FROM entries e
		 JOIN accounts a ON a.code = e.account
		 JOIN batches b ON b.id = e.batch_id
		 WHERE b.status = ?
		 GROUP BY e.account, a.name, a.type, e.currency
		 ORDER BY e.account, e.currency`,
		string(model.BatchPosted))
	if err != nil {
		return nil, fmt.Errorf("querying trial balance: %w", err)
	}
	defer rows.Close()

	var out []model.AccountBalance
	for rows.Next() {
		var bal model.AccountBalance
		var typ string
		var debit, credit int64
		if err := rows.Scan(&bal.Account, &bal.Name, &typ, &bal.Currency, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scanning trial balance: %w", err)
		}
		bal.Type = model.AccountType(typ)
		bal.Debit = money.FromMinor(debit, bal.Currency)
		bal.Credit = money.FromMinor(credit, bal.Currency)
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (s *queries) oneBatch(ctx context.Context, query, what string, args ...any) (*model.Batch, error) {
	b, err := scanBatch(s.queryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "%s", what)
	}
	if err := s.loadEntries(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// batches reads all matching batch rows before loading entries; a
// transaction's connection can serve only one open result set.
func (s *queries) batches(ctx context.Context, query string, args ...any) ([]*model.Batch, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	var out []*model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, b := range out {
		if err := s.loadEntries(ctx, b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(r rowScanner) (*model.Batch, error) {
	var b model.Batch
	var status, createdAt string
	var reverses, superseded sql.NullString
	err := r.Scan(&b.ID, &b.Code, &b.SourceType, &b.SourceID, &b.Currency, &status,
		&b.Memo, &b.EntityRef, &reverses, &superseded, &createdAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BatchStatus(status)
	b.ReversesBatchID = reverses.String
	b.SupersededBy = superseded.String
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *queries) loadEntries(ctx context.Context, b *model.Batch) error {
	rows, err := s.query(ctx,
		`SELECT id, batch_id, line, account, debit, credit, currency, ref
		 FROM entries WHERE batch_id = ? ORDER BY line`, b.ID)
	if err != nil {
		return fmt.Errorf("querying entries of batch %s: %w", b.Code, err)
	}
	defer rows.Close()

	b.Entries = nil
	for rows.Next() {
		var e model.Entry
		var debit, credit int64
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Line, &e.Account, &debit, &credit, &e.Currency, &e.Ref); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		e.Debit = money.FromMinor(debit, e.Currency)
		e.Credit = money.FromMinor(credit, e.Currency)
		b.Entries = append(b.Entries, e)
	}
	return rows.Err()
}
