package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth_Index(t *testing.T) {
	assert.Equal(t, 0, MonthJanvier.Index())
	assert.Equal(t, 7, MonthAout.Index())
	assert.Equal(t, 11, MonthDecembre.Index())
	assert.Equal(t, -1, Month("JANUARY").Index())
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth(" fevrier ")
	require.NoError(t, err)
	assert.Equal(t, MonthFevrier, m)

	_, err = ParseMonth("february")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMonthFromIndex(t *testing.T) {
	m, err := MonthFromIndex(9)
	require.NoError(t, err)
	assert.Equal(t, MonthOctobre, m)

	_, err = MonthFromIndex(12)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMonthsBetween(t *testing.T) {
	months, err := MonthsBetween(MonthMars, MonthMai)
	require.NoError(t, err)
	assert.Equal(t, []Month{MonthMars, MonthAvril, MonthMai}, months)

	months, err = MonthsBetween(MonthJuin, MonthJuin)
	require.NoError(t, err)
	assert.Equal(t, []Month{MonthJuin}, months)

	_, err = MonthsBetween(MonthMai, MonthMars)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
