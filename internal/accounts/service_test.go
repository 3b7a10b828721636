package accounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

type recordingEnsurer struct {
	created []model.Account
	fail    bool
}

func (r *recordingEnsurer) EnsureAccount(_ context.Context, a model.Account) error {
	if r.fail {
		return errors.New("boom")
	}
	r.created = append(r.created, a)
	return nil
}

func TestResolve(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))

	code, err := reg.Resolve(RoleChecksReceivable)
	require.NoError(t, err)
	assert.Equal(t, "1110", code)

	_, err = reg.Resolve("petty_cash")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAccountRole)
}

func TestDefaultChartCoversEngineRoles(t *testing.T) {
	reg := NewRegistry(DefaultChart("trading_company"))
	for _, role := range []Role{
		RoleBank, RoleCash, RoleAccountsReceivable, RoleAccountsPayable,
		RoleChecksReceivable, RoleChecksPayable, RoleInventory, RoleLandedCostsPayable,
	} {
		_, err := reg.Resolve(role)
		assert.NoError(t, err, "role %s", role)
	}
}

func TestByCode(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))
	a, ok := reg.ByCode("1010")
	require.True(t, ok)
	assert.Equal(t, "Bank", a.Name)
	_, ok = reg.ByCode("9999")
	assert.False(t, ok)
}

func TestEnsureAccounts_AllRoles(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))
	rec := &recordingEnsurer{}
	require.NoError(t, EnsureAccounts(context.Background(), rec, reg))
	assert.Len(t, rec.created, len(reg.Roles()))
}

func TestEnsureAccounts_SharedCodeCreatedOnce(t *testing.T) {
	cash := model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}
	reg := NewRegistry([]Mapping{{RoleBank, cash}, {RoleCash, cash}})
	rec := &recordingEnsurer{}
	require.NoError(t, EnsureAccounts(context.Background(), rec, reg))
	assert.Len(t, rec.created, 1)
}

func TestEnsureAccounts_UnknownRole(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))
	err := EnsureAccounts(context.Background(), &recordingEnsurer{}, reg, "nope")
	assert.ErrorIs(t, err, ErrUnknownAccountRole)
}

func TestEnsureAccounts_PropagatesFailure(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))
	err := EnsureAccounts(context.Background(), &recordingEnsurer{fail: true}, reg, RoleBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensuring account 1010")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := NewRegistry(DefaultChart(""))
	dir := t.TempDir()
	require.NoError(t, reg.Save(dir))

	_, err := os.Stat(filepath.Join(dir, "accounts", "chart.csv"))
	require.NoError(t, err)

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, reg.Chart(), got.Chart())
	assert.Equal(t, reg.Roles(), got.Roles())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
