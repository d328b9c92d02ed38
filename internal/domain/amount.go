package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places every persisted amount carries
const AmountPlaces = 2

// RoundAmount normalises an amount to AmountPlaces
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// HasAmountScale reports whether d has at most AmountPlaces decimal places
func HasAmountScale(d decimal.Decimal) bool {
	return d.Equal(RoundAmount(d))
}

// Audit holds the soft-delete flag and the audit stamps shared by every entity
type Audit struct {
	IsActive  bool
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time // immutable, scopes the "year" of a record
	UpdatedAt time.Time
}

// YearWindow returns [Jan 1 of year, Jan 1 of year+1) in UTC
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
