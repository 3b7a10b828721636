package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports. Columns are located by
// header name, so exports with reordered or extra columns still parse.
type ChaseParser struct{}

const chaseDateFormat = "01/02/2006"

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// chaseColumns holds the positions of the columns the importer needs.
type chaseColumns struct {
	date, desc, amount, kind int
}

func chaseHeader(header []string) (chaseColumns, error) {
	cols := chaseColumns{date: -1, desc: -1, amount: -1, kind: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "posting date":
			cols.date = i
		case "description":
			cols.desc = i
		case "amount":
			cols.amount = i
		case "type":
			cols.kind = i
		}
	}
	var missing []string
	for _, c := range []struct {
		name string
		pos  int
	}{{"Posting Date", cols.date}, {"Description", cols.desc}, {"Amount", cols.amount}, {"Type", cols.kind}} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("chase header lacks %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// Parse streams a Chase CSV and returns its rows in file order. Every row
// gets a reference the importer uses as its posting key; identical rows on
// one day are distinct payments and are numbered from the second one on.
// Zero amounts are returned as read and skipped by the importer.
func (p *ChaseParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	cols, err := chaseHeader(header)
	if err != nil {
		return nil, err
	}

	var txns []model.BankTransaction
	refs := make(map[string]int)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return txns, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading chase CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)

		txn, err := cols.row(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		base := txn.Reference
		if refs[base]++; refs[base] > 1 {
			txn.Reference = fmt.Sprintf("%s_%d", base, refs[base])
		}
		txns = append(txns, txn)
	}
}

func (c chaseColumns) row(rec []string) (model.BankTransaction, error) {
	rawDate := strings.TrimSpace(rec[c.date])
	date, err := time.Parse(chaseDateFormat, rawDate)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing date %q: %w", rawDate, err)
	}
	rawAmount := strings.ReplaceAll(strings.TrimSpace(rec[c.amount]), ",", "")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing amount %q: %w", rec[c.amount], err)
	}

	desc := strings.TrimSpace(rec[c.desc])
	return model.BankTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Reference:   chaseRef(date, desc, amount),
		Type:        strings.TrimSpace(rec[c.kind]),
	}, nil
}

// chaseRef builds a key like chase_20250103_GITHUBPROS_m400 from the day,
// the first ten alphanumerics of the description and the amount in cents.
func chaseRef(date time.Time, desc string, amount decimal.Decimal) string {
	var b strings.Builder
	for _, r := range desc {
		if b.Len() == 10 {
			break
		}
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cents := amount.Shift(2).Truncate(0)
	sign := ""
	if cents.IsNegative() {
		sign, cents = "m", cents.Neg()
	}
	return "chase_" + date.Format("20060102") + "_" + b.String() + "_" + sign + cents.String()
}
