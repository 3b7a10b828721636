package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one parsed bank statement row.
type BankTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = money out, positive = money in
	Reference   string          // stable per row; the posting source id
	Type        string          // bank transaction type (ACH_DEBIT, etc.)
}
