package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Derogation is an approved request moving estimated funds between breakdowns.
// It owns its lines: soft-delete and restore always cascade to them.
type Derogation struct {
	ID          uuid.UUID
	NumRef      string // MMYY-NNNN
	Description string
	Audit

	Lines []DerogationLine
}

// DerogationLine is one debit/credit pair of a derogation
type DerogationLine struct {
	ID           uuid.UUID
	NumRef       string // derogation NumRef + "-NN"
	DerogationID uuid.UUID
	DebitedID    uuid.UUID
	CreditedID   uuid.UUID
	Amount       decimal.Decimal // moved from Debited to Credited, > 0
	Audit

	Debited  *BreakdownDetail // populated by detail reads only
	Credited *BreakdownDetail
}

// TransferLine is a requested movement of estimated amount
type TransferLine struct {
	DebitedID  uuid.UUID       `json:"debitedId"`
	CreditedID uuid.UUID       `json:"creditedId"`
	Amount     decimal.Decimal `json:"amount"`
}

// ValidateTransferLines checks a derogation request before any store access.
// Every (debited, credited) pair must be unique within the request.
func ValidateTransferLines(lines []TransferLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: a derogation needs at least one line", ErrInvalidInput)
	}

	type pair struct{ debited, credited uuid.UUID }
	seen := make(map[pair]struct{}, len(lines))

	for i, line := range lines {
		if line.DebitedID == uuid.Nil || line.CreditedID == uuid.Nil {
			return fmt.Errorf("%w: line %d must reference a debited and a credited breakdown", ErrInvalidInput, i+1)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("%w: line %d amount must be positive", ErrInvalidInput, i+1)
		}
		if !HasAmountScale(line.Amount) {
			return fmt.Errorf("%w: line %d amount must have at most %d decimal places", ErrInvalidInput, i+1, AmountPlaces)
		}

		key := pair{line.DebitedID, line.CreditedID}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateTransferPair, line.DebitedID, line.CreditedID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Validate ensures the derogation header adheres to domain rules
func (d *Derogation) Validate() error {
	if d.Description == "" {
		return errors.New("derogation description cannot be empty")
	}
	if d.NumRef == "" {
		return errors.New("derogation must have a reference number")
	}
	return nil
}
