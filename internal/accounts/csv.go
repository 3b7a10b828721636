package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/tally/internal/model"
)

const (
	numFields = 4
	colRole   = 0
	colCode   = 1
	colName   = 2
	colType   = 3
)

// ReadChart reads chart.csv.
func ReadChart(r io.Reader) ([]Mapping, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chart CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var chart []Mapping
	for i, rec := range records[1:] {
		m, err := UnmarshalMapping(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		chart = append(chart, m)
	}
	return chart, nil
}

// WriteChart writes chart.csv.
func WriteChart(w io.Writer, chart []Mapping) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"role", "account_code", "account_name", "account_type"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, m := range chart {
		if err := cw.Write(MarshalMapping(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalMapping converts a Mapping to a CSV row.
func MarshalMapping(m Mapping) []string {
	row := make([]string, numFields)
	row[colRole] = string(m.Role)
	row[colCode] = m.Account.Code
	row[colName] = m.Account.Name
	row[colType] = string(m.Account.Type)
	return row
}

// UnmarshalMapping converts a CSV row to a Mapping.
func UnmarshalMapping(record []string) (Mapping, error) {
	if len(record) != numFields {
		return Mapping{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colRole] == "" {
		return Mapping{}, fmt.Errorf("empty role")
	}
	if record[colCode] == "" {
		return Mapping{}, fmt.Errorf("empty account code for role %q", record[colRole])
	}
	typ := model.AccountType(record[colType])
	if !typ.Valid() {
		return Mapping{}, fmt.Errorf("invalid account type %q", record[colType])
	}

	return Mapping{
		Role: Role(record[colRole]),
		Account: model.Account{
			Code: record[colCode],
			Name: record[colName],
			Type: typ,
		},
	}, nil
}
