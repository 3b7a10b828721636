package journal

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Header is the CSV header of a journal export.
const Header = "batch_code,source_type,source_id,created_at,line,account,debit,credit,currency,ref,memo,reverses_batch_id,superseded_by"

const (
	numFields     = 13
	colBatchCode  = 0
	colSourceType = 1
	colSourceID   = 2
	colCreatedAt  = 3
	colLine       = 4
	colAccount    = 5
	colDebit      = 6
	colCredit     = 7
	colCurrency   = 8
	colRef        = 9
	colMemo       = 10
	colReverses   = 11
	colSuperseded = 12
)

// Row is one exported entry together with the batch fields it belongs to.
type Row struct {
	BatchCode       string
	SourceType      string
	SourceID        string
	CreatedAt       time.Time
	Line            int
	Account         string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Currency        string
	Ref             string
	Memo            string
	ReversesBatchID string
	SupersededBy    string
}

// Rows flattens batches into export rows, one per entry.
func Rows(batches []*model.Batch) []Row {
	var rows []Row
	for _, b := range batches {
		for _, e := range b.Entries {
			rows = append(rows, Row{
				BatchCode:       b.Code,
				SourceType:      b.SourceType,
				SourceID:        b.SourceID,
				CreatedAt:       b.CreatedAt,
				Line:            e.Line,
				Account:         e.Account,
				Debit:           e.Debit,
				Credit:          e.Credit,
				Currency:        e.Currency,
				Ref:             e.Ref,
				Memo:            b.Memo,
				ReversesBatchID: b.ReversesBatchID,
				SupersededBy:    b.SupersededBy,
			})
		}
	}
	return rows
}

// WriteRows writes rows to a journal export writer (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows reads all rows from a journal export.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Export writes batches to path atomically; readers never see a partial file.
func Export(path string, batches []*model.Batch) error {
	var buf bytes.Buffer
	if err := WriteRows(&buf, Rows(batches)); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colBatchCode] = row.BatchCode
	rec[colSourceType] = row.SourceType
	rec[colSourceID] = row.SourceID
	rec[colCreatedAt] = row.CreatedAt.UTC().Format(time.RFC3339)
	rec[colLine] = strconv.Itoa(row.Line)
	rec[colAccount] = row.Account

	if !row.Debit.IsZero() {
		rec[colDebit] = money.Format(row.Debit, row.Currency)
	}
	if !row.Credit.IsZero() {
		rec[colCredit] = money.Format(row.Credit, row.Currency)
	}

	rec[colCurrency] = row.Currency
	rec[colRef] = row.Ref
	rec[colMemo] = row.Memo
	rec[colReverses] = row.ReversesBatchID
	rec[colSuperseded] = row.SupersededBy
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	createdAt, err := time.Parse(time.RFC3339, record[colCreatedAt])
	if err != nil {
		return Row{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
	}

	line, err := strconv.Atoi(record[colLine])
	if err != nil {
		return Row{}, fmt.Errorf("parsing line %q: %w", record[colLine], err)
	}

	var debit, credit decimal.Decimal
	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return Row{
		BatchCode:       record[colBatchCode],
		SourceType:      record[colSourceType],
		SourceID:        record[colSourceID],
		CreatedAt:       createdAt,
		Line:            line,
		Account:         record[colAccount],
		Debit:           debit,
		Credit:          credit,
		Currency:        record[colCurrency],
		Ref:             record[colRef],
		Memo:            record[colMemo],
		ReversesBatchID: record[colReverses],
		SupersededBy:    record[colSuperseded],
	}, nil
}
