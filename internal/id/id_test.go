package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestFormatBatchCode(t *testing.T) {
	code := FormatBatchCode("CHECK_CASHED", "42")
	assert.Regexp(t, `^CHECK_CASHED-42-[0-9A-Z]{8}$`, code)
	assert.NotEqual(t, code, FormatBatchCode("CHECK_CASHED", "42"), "suffix must be random")
}

func TestParseBatchCode(t *testing.T) {
	tests := []struct {
		code       string
		sourceType string
		sourceID   string
	}{
		{"SALE-17-ABCDEFGH", "SALE", "17"},
		{"CHECK_CASHED-0b9e2c1e-7a4f-4c5e-9f55-0c6c1f7d2a11-Z9Y8X7W6", "CHECK_CASHED", "0b9e2c1e-7a4f-4c5e-9f55-0c6c1f7d2a11"},
	}
	for _, tt := range tests {
		st, sid, suffix, err := ParseBatchCode(tt.code)
		require.NoError(t, err, "code: %s", tt.code)
		assert.Equal(t, tt.sourceType, st)
		assert.Equal(t, tt.sourceID, sid)
		assert.Len(t, suffix, 8)
	}
}

func TestParseBatchCode_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"SALE",
		"SALE-17",
		"SALE-17-",
		"-17-ABCDEFGH",
		"SALE-17-SHORT",
	}
	for _, input := range badInputs {
		_, _, _, err := ParseBatchCode(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestRoundTrip(t *testing.T) {
	sourceID := New()
	code := FormatBatchCode("CHECK_RETURNED_REVERSAL", sourceID)
	st, sid, _, err := ParseBatchCode(code)
	require.NoError(t, err)
	assert.Equal(t, "CHECK_RETURNED_REVERSAL", st)
	assert.Equal(t, sourceID, sid)
}
