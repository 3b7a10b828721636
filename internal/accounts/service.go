package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrUnknownAccountRole is returned when a role has no account mapping.
var ErrUnknownAccountRole = errors.New("unknown account role")

// ChartPath is the chart location relative to a project root.
const ChartPath = "accounts/chart.csv"

// Registry resolves semantic roles to ledger account codes.
type Registry struct {
	chart  []Mapping
	byRole map[Role]model.Account
	byCode map[string]model.Account
}

// NewRegistry creates a Registry from a role mapping. Later mappings for the
// same role replace earlier ones.
func NewRegistry(chart []Mapping) *Registry {
	byRole := make(map[Role]model.Account, len(chart))
	byCode := make(map[string]model.Account, len(chart))
	for _, m := range chart {
		byRole[m.Role] = m.Account
		byCode[m.Account.Code] = m.Account
	}
	return &Registry{chart: chart, byRole: byRole, byCode: byCode}
}

// Load reads accounts/chart.csv from a project root and returns a Registry.
func Load(root string) (*Registry, error) {
	path := filepath.Join(root, ChartPath)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	chart, err := ReadChart(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewRegistry(chart), nil
}

// Resolve returns the account code mapped to role.
func (r *Registry) Resolve(role Role) (string, error) {
	a, ok := r.byRole[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAccountRole, role)
	}
	return a.Code, nil
}

// Account returns the full account mapped to role.
func (r *Registry) Account(role Role) (model.Account, bool) {
	a, ok := r.byRole[role]
	return a, ok
}

// ByCode returns the mapped account with the given code.
func (r *Registry) ByCode(code string) (model.Account, bool) {
	a, ok := r.byCode[code]
	return a, ok
}

// Roles returns every mapped role, sorted.
func (r *Registry) Roles() []Role {
	roles := make([]Role, 0, len(r.byRole))
	for role := range r.byRole {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Chart returns the mappings the registry was built from.
func (r *Registry) Chart() []Mapping {
	return r.chart
}

// Save writes the chart to accounts/chart.csv under root.
func (r *Registry) Save(root string) error {
	dir := filepath.Join(root, filepath.Dir(ChartPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(root, ChartPath))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteChart(f, r.chart); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}

// Ensurer creates an account row if it does not already exist.
type Ensurer interface {
	EnsureAccount(ctx context.Context, a model.Account) error
}

// EnsureAccounts makes sure an account row exists for every given role, or
// for every mapped role when none are given. It is idempotent and meant to
// run once at service start.
func EnsureAccounts(ctx context.Context, e Ensurer, r *Registry, roles ...Role) error {
	if len(roles) == 0 {
		roles = r.Roles()
	}
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		a, ok := r.byRole[role]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAccountRole, role)
		}
		if seen[a.Code] {
			continue
		}
		seen[a.Code] = true
		if err := e.EnsureAccount(ctx, a); err != nil {
			return fmt.Errorf("ensuring account %s (%s): %w", a.Code, role, err)
		}
	}
	return nil
}
