package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	inputs := []string{
		"01/15/2024",
		"1/15/2024",
		"1/15/24",
		"2024-01-15",
		"Jan 15, 2024",
		"January 15, 2024",
		"15 Jan 2024",
		"15/01/2024",
		"  01/15/2024 ",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseFlexibleDate(in)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
		})
	}
}

func TestParseFlexibleDate_Rejects(t *testing.T) {
	for _, in := range []string{"", "13/45/2024", "02/30/2024", "01/15/1850", "01/15/2150", "not a date"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFlexibleDate(in)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestParseShortDate(t *testing.T) {
	ref := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	got, err := ParseShortDate("03/15", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	t.Run("month after reference rolls back a year", func(t *testing.T) {
		ref := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		got, err := ParseShortDate("12/28", ref)
		require.NoError(t, err)
		assert.Equal(t, 2023, got.Year())
	})

	t.Run("feb 29 on non leap year", func(t *testing.T) {
		_, err := ParseShortDate("02/29", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	_, err = ParseShortDate("14/02", ref)
	assert.Error(t, err)
}
