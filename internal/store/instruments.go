package store

import (
	"context"
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

const instrumentColumns = `id, check_number, bank, issue_date, due_date, amount, currency,
	direction, status, counterparty_type, counterparty_id, created_at, updated_at`

// InsertInstrument stores a new check. History is not written.
func (s *queries) InsertInstrument(ctx context.Context, in *model.Instrument) error {
	amount, err := money.ToMinor(in.Amount, in.Currency)
	if err != nil {
		return fmt.Errorf("instrument %s: %w", in.ID, err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO instruments (`+instrumentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.CheckNumber, in.Bank, formatDate(in.IssueDate), formatDate(in.DueDate),
		amount, in.Currency, string(in.Direction), string(in.Status),
		string(in.CounterpartyType), in.CounterpartyID,
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: instrument %s", ErrDuplicate, in.ID)
		}
		return fmt.Errorf("inserting instrument %s: %w", in.ID, err)
	}
	return nil
}

// GetInstrument returns a check with its history. With forUpdate the row is
// locked until the transaction ends.
func (s *queries) GetInstrument(ctx context.Context, id string, forUpdate bool) (*model.Instrument, error) {
	in, err := scanInstrument(s.queryRow(ctx,
		`SELECT `+instrumentColumns+` FROM instruments WHERE id = ?`+s.lock(forUpdate), id))
	if err != nil {
		return nil, notFound(err, "instrument %s", id)
	}
	if in.History, err = s.history(ctx, id); err != nil {
		return nil, err
	}
	return in, nil
}

// FindInstruments returns the checks with a bank and check number. Numbers
// are not unique, even within a bank.
func (s *queries) FindInstruments(ctx context.Context, bank, checkNumber string) ([]*model.Instrument, error) {
	return s.instruments(ctx,
		`SELECT `+instrumentColumns+` FROM instruments
		 WHERE bank = ? AND check_number = ? ORDER BY created_at, id`,
		bank, checkNumber)
}

// ListInstruments returns all checks ordered by due date.
func (s *queries) ListInstruments(ctx context.Context) ([]*model.Instrument, error) {
	return s.instruments(ctx,
		`SELECT `+instrumentColumns+` FROM instruments ORDER BY due_date, check_number, id`)
}

// UpdateInstrumentStatus stores a new status.
func (s *queries) UpdateInstrumentStatus(ctx context.Context, in *model.Instrument) error {
	res, err := s.exec(ctx,
		`UPDATE instruments SET status = ?, updated_at = ? WHERE id = ?`,
		string(in.Status), formatTime(in.UpdatedAt), in.ID)
	if err != nil {
		return fmt.Errorf("updating instrument %s: %w", in.ID, err)
	}
	return expectOne(res, "instrument %s", in.ID)
}

// AppendHistory records a status change of a check.
func (s *queries) AppendHistory(ctx context.Context, instrumentID string, h model.AuditEntry) error {
	_, err := s.exec(ctx,
		`INSERT INTO instrument_history (instrument_id, from_status, to_status, actor, notes, at, batch_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		instrumentID, string(h.From), string(h.To), h.Actor, h.Notes, formatTime(h.At), h.BatchID)
	if err != nil {
		return fmt.Errorf("appending history of instrument %s: %w", instrumentID, err)
	}
	return nil
}

// DeleteInstrument removes a check; its history goes with it.
func (s *queries) DeleteInstrument(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM instruments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting instrument %s: %w", id, err)
	}
	return expectOne(res, "instrument %s", id)
}

func (s *queries) instruments(ctx context.Context, query string, args ...any) ([]*model.Instrument, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying instruments: %w", err)
	}
	var out []*model.Instrument
	for rows.Next() {
		in, err := scanInstrument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning instrument: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, in := range out {
		if in.History, err = s.history(ctx, in.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *queries) history(ctx context.Context, instrumentID string) ([]model.AuditEntry, error) {
	rows, err := s.query(ctx,
		`SELECT from_status, to_status, actor, notes, at, batch_id
		 FROM instrument_history WHERE instrument_id = ? ORDER BY id`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("querying history of instrument %s: %w", instrumentID, err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var h model.AuditEntry
		var from, to, at string
		if err := rows.Scan(&from, &to, &h.Actor, &h.Notes, &at, &h.BatchID); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		h.From = model.InstrumentStatus(from)
		h.To = model.InstrumentStatus(to)
		if h.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanInstrument(r rowScanner) (*model.Instrument, error) {
	var in model.Instrument
	var issue, due, direction, status, cpType, created, updated string
	var amount int64
	err := r.Scan(&in.ID, &in.CheckNumber, &in.Bank, &issue, &due, &amount, &in.Currency,
		&direction, &status, &cpType, &in.CounterpartyID, &created, &updated)
	if err != nil {
		return nil, err
	}
	in.Amount = money.FromMinor(amount, in.Currency)
	in.Direction = model.Direction(direction)
	in.Status = model.InstrumentStatus(status)
	in.CounterpartyType = model.CounterpartyType(cpType)
	if in.IssueDate, err = parseDate(issue); err != nil {
		return nil, err
	}
	if in.DueDate, err = parseDate(due); err != nil {
		return nil, err
	}
	if in.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if in.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &in, nil
}
