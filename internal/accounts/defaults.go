package accounts

import "github.com/cleared-dev/tally/internal/model"

// Role is the semantic purpose an account serves for the engine.
type Role string

const (
	RoleBank               Role = "bank"
	RoleCash               Role = "cash"
	RoleAccountsReceivable Role = "accounts_receivable"
	RoleAccountsPayable    Role = "accounts_payable"
	RoleChecksReceivable   Role = "checks_receivable"
	RoleChecksPayable      Role = "checks_payable"
	RoleInventory          Role = "inventory"
	RoleLandedCostsPayable Role = "landed_costs_payable"
	RoleSalesRevenue       Role = "sales_revenue"
	RoleOwnerEquity        Role = "owner_equity"
	RoleSuspense           Role = "suspense"
)

// Mapping binds a role to the account that serves it.
type Mapping struct {
	Role    Role
	Account model.Account
}

// DefaultChart returns the default role mapping for an entity type.
func DefaultChart(entityType string) []Mapping {
	switch entityType {
	case "trading_company":
		return tradingCompanyChart()
	default:
		return tradingCompanyChart()
	}
}

func tradingCompanyChart() []Mapping {
	return []Mapping{
		{RoleBank, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}},
		{RoleCash, model.Account{Code: "1020", Name: "Cash on Hand", Type: model.AccountTypeAsset}},
		{RoleAccountsReceivable, model.Account{Code: "1100", Name: "Accounts Receivable", Type: model.AccountTypeAsset}},
		{RoleChecksReceivable, model.Account{Code: "1110", Name: "Checks Receivable", Type: model.AccountTypeAsset}},
		{RoleInventory, model.Account{Code: "1200", Name: "Inventory", Type: model.AccountTypeAsset}},
		{RoleSuspense, model.Account{Code: "1900", Name: "Suspense", Type: model.AccountTypeAsset}},
		{RoleAccountsPayable, model.Account{Code: "2010", Name: "Accounts Payable", Type: model.AccountTypeLiability}},
		{RoleChecksPayable, model.Account{Code: "2020", Name: "Checks Payable", Type: model.AccountTypeLiability}},
		{RoleLandedCostsPayable, model.Account{Code: "2030", Name: "Accrued Landed Costs", Type: model.AccountTypeLiability}},
		{RoleOwnerEquity, model.Account{Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity}},
		{RoleSalesRevenue, model.Account{Code: "4010", Name: "Sales Revenue", Type: model.AccountTypeRevenue}},
	}
}
