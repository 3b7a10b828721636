package accounts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestRoundTrip(t *testing.T) {
	chart := []Mapping{
		{RoleBank, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}},
		{RoleChecksPayable, model.Account{Code: "2020", Name: "Checks Payable", Type: model.AccountTypeLiability}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, chart))

	got, err := ReadChart(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}

func TestReadChart_Empty(t *testing.T) {
	got, err := ReadChart(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadChart_BadType(t *testing.T) {
	data := "role,account_code,account_name,account_type\nbank,1010,Bank,MONEY\n"
	_, err := ReadChart(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid account type")
}

func TestReadChart_MissingCode(t *testing.T) {
	data := "role,account_code,account_name,account_type\nbank,,Bank,ASSET\n"
	_, err := ReadChart(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestDefaultChartRoundTrip(t *testing.T) {
	chart := DefaultChart("trading_company")

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, chart))

	got, err := ReadChart(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}
