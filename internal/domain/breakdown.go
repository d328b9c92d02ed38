package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Breakdown is one calendar month's allocation under a budget line of.
// At most one exists per (BudgetLineOfID, Month).
type Breakdown struct {
	ID                  uuid.UUID
	NumRef              string
	BudgetLineOfID      uuid.UUID
	Month               Month
	EstimatedAmount     decimal.Decimal
	RealAmount          decimal.Decimal // spent
	PurchaseOrderAmount decimal.Decimal // committed, not yet paid
	Audit
}

// BreakdownDetail is a breakdown with the names of the hierarchy above it
type BreakdownDetail struct {
	Breakdown
	BudgetLineOfNumRef  string
	BudgetLineNameID    uuid.UUID
	BudgetLineName      string
	MajorBudgetLineID   uuid.UUID
	MajorBudgetLineName string
}

// Validate ensures the breakdown adheres to domain rules
func (b *Breakdown) Validate() error {
	if b.BudgetLineOfID == uuid.Nil {
		return errors.New("breakdown must have a budget line of ID")
	}
	if !b.Month.Valid() {
		return fmt.Errorf("invalid breakdown month %q", b.Month)
	}
	for name, amount := range map[string]decimal.Decimal{
		"estimated amount":      b.EstimatedAmount,
		"real amount":           b.RealAmount,
		"purchase order amount": b.PurchaseOrderAmount,
	} {
		if amount.IsNegative() {
			return fmt.Errorf("breakdown %s must not be negative", name)
		}
		if !HasAmountScale(amount) {
			return fmt.Errorf("breakdown %s must have at most %d decimal places", name, AmountPlaces)
		}
	}
	return nil
}

// CheckTemporal rejects usage updates made before the record's period.
// The record's year is its creation year, its month is the Month field.
func (b *Breakdown) CheckTemporal(now time.Time) error {
	now = now.UTC()
	creationYear := b.CreatedAt.UTC().Year()
	recordMonth := b.Month.Index()

	if now.Year() < creationYear {
		return ErrPriorYear
	}
	currentMonth := int(now.Month()) - 1
	if now.Year() == creationYear && currentMonth < recordMonth {
		return fmt.Errorf("%w: current date (%d-%d) is earlier than the record date (%d-%d)",
			ErrPriorMonth, now.Year(), currentMonth+1, creationYear, recordMonth+1)
	}
	return nil
}

// CheckUsage enforces real + purchaseOrder <= estimated
func CheckUsage(estimated, real, purchaseOrder decimal.Decimal) error {
	used := real.Add(purchaseOrder)
	if used.GreaterThan(estimated) {
		return fmt.Errorf("%w: %s used against %s estimated", ErrOverBudget, used.StringFixed(AmountPlaces), estimated.StringFixed(AmountPlaces))
	}
	return nil
}

// Settle moves amount from the purchase-order balance to the real amount.
// real + purchaseOrder is conserved.
func (b *Breakdown) Settle(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: settlement amount must not be negative", ErrInvalidInput)
	}
	if amount.GreaterThan(b.PurchaseOrderAmount) {
		return fmt.Errorf("%w: %s requested, %s available", ErrInsufficientPurchaseOrder,
			amount.StringFixed(AmountPlaces), b.PurchaseOrderAmount.StringFixed(AmountPlaces))
	}
	b.PurchaseOrderAmount = RoundAmount(b.PurchaseOrderAmount.Sub(amount))
	b.RealAmount = RoundAmount(b.RealAmount.Add(amount))
	return nil
}
