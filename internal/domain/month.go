package domain

import (
	"fmt"
	"strings"
)

// Month is the calendar month a breakdown belongs to.
// Values are the French month names used by the budget office.
type Month string

const (
	MonthJanvier   Month = "JANVIER"
	MonthFevrier   Month = "FEVRIER"
	MonthMars      Month = "MARS"
	MonthAvril     Month = "AVRIL"
	MonthMai       Month = "MAI"
	MonthJuin      Month = "JUIN"
	MonthJuillet   Month = "JUILLET"
	MonthAout      Month = "AOUT"
	MonthSeptembre Month = "SEPTEMBRE"
	MonthOctobre   Month = "OCTOBRE"
	MonthNovembre  Month = "NOVEMBRE"
	MonthDecembre  Month = "DECEMBRE"
)

// Months lists every month in calendar order.
var Months = []Month{
	MonthJanvier, MonthFevrier, MonthMars, MonthAvril, MonthMai, MonthJuin,
	MonthJuillet, MonthAout, MonthSeptembre, MonthOctobre, MonthNovembre, MonthDecembre,
}

// Index returns the 0-based position of the month (JANVIER = 0), or -1 if unknown.
func (m Month) Index() int {
	for i, candidate := range Months {
		if candidate == m {
			return i
		}
	}
	return -1
}

// Valid reports whether m is one of the twelve known months
func (m Month) Valid() bool {
	return m.Index() >= 0
}

// ParseMonth parses a month name case-insensitively
func ParseMonth(s string) (Month, error) {
	m := Month(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: invalid month name %q", ErrInvalidInput, s)
	}
	return m, nil
}

// MonthFromIndex returns the month at the 0-based index i
func MonthFromIndex(i int) (Month, error) {
	if i < 0 || i >= len(Months) {
		return "", fmt.Errorf("%w: month index %d out of range", ErrInvalidInput, i)
	}
	return Months[i], nil
}

// MonthsBetween returns the months from start to end inclusive.
// start must not come after end.
func MonthsBetween(start, end Month) ([]Month, error) {
	startIdx, endIdx := start.Index(), end.Index()
	if startIdx < 0 || endIdx < 0 {
		return nil, fmt.Errorf("%w: invalid month range %s..%s", ErrInvalidInput, start, end)
	}
	if startIdx > endIdx {
		return nil, fmt.Errorf("%w: start month %s must be before or equal to end month %s", ErrInvalidInput, start, end)
	}
	out := make([]Month, 0, endIdx-startIdx+1)
	out = append(out, Months[startIdx:endIdx+1]...)
	return out, nil
}
