package normalizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"54.32", "54.32"},
		{"-54.32", "-54.32"},
		{"$1,234.56", "1234.56"},
		{"($12.00)", "-12.00"},
		{"12.00-", "-12.00"},
		{"+5", "5"},
		{"1.234,56", "1234.56"},
		{"-4,50", "-4.50"},
		{"€ 10,00", "10.00"},
		{"1,234", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	_, err := ParseAmount("")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	_, err = ParseAmount("NaN")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("12.3.4")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAmountFormat(t *testing.T) {
	got, err := ParseAmountFormat("1.234", true)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1234)))

	got, err = ParseAmountFormat("1.234", false)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.234")))
}
