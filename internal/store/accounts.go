package store

import (
	"context"
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

// EnsureAccount inserts the account unless one with the same code exists.
func (s *queries) EnsureAccount(ctx context.Context, a model.Account) error {
	if !a.Type.Valid() {
		return fmt.Errorf("account %s: invalid type %q", a.Code, a.Type)
	}
	_, err := s.exec(ctx,
		`INSERT INTO accounts (code, name, type) VALUES (?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		a.Code, a.Name, string(a.Type))
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Code, err)
	}
	return nil
}

// AccountExists reports whether an account with the code exists.
func (s *queries) AccountExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking account %s: %w", code, err)
	}
	return n > 0, nil
}

// GetAccount returns the account with the code.
func (s *queries) GetAccount(ctx context.Context, code string) (model.Account, error) {
	var a model.Account
	var typ string
	err := s.queryRow(ctx, `SELECT code, name, type FROM accounts WHERE code = ?`, code).
		Scan(&a.Code, &a.Name, &typ)
	if err != nil {
		return model.Account{}, notFound(err, "account %s", code)
	}
	a.Type = model.AccountType(typ)
	return a, nil
}

// ListAccounts returns all accounts ordered by code.
func (s *queries) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.query(ctx, `SELECT code, name, type FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		var typ string
		if err := rows.Scan(&a.Code, &a.Name, &typ); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Type = model.AccountType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}
