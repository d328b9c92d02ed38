package domain

import "errors"

// Business rule failures. Services wrap these with context, callers match them with errors.Is.
var (
	// ErrNotFound is returned by read-by-id paths when the record does not exist
	ErrNotFound = errors.New("not found")

	// Uniqueness
	ErrDuplicateCode          = errors.New("code must be unique")
	ErrDuplicateName          = errors.New("name must be unique")
	ErrDuplicateNamePerParent = errors.New("the combination of name and major budget line must be unique")
	ErrDuplicateForYear       = errors.New("this budget line already exists for this year")
	ErrDuplicateMonth         = errors.New("a breakdown with this budget line of and month already exists")

	// Temporal ordering
	ErrWrongYear  = errors.New("you can't update a budget line from another year")
	ErrPriorYear  = errors.New("you can't update a breakdown from another year")
	ErrPriorMonth = errors.New("the current date is earlier than the record date")

	// Ledger
	ErrOverBudget                = errors.New("total used (real + purchase order) cannot exceed estimated budget")
	ErrInsufficientPurchaseOrder = errors.New("you cannot pay more than the purchase order amount")

	// Transfer engine
	ErrDebitedNotFound       = errors.New("debited breakdown does not exist")
	ErrCreditedNotFound      = errors.New("credited breakdown does not exist")
	ErrInsufficientFunds     = errors.New("insufficient estimated amount")
	ErrDuplicateTransferPair = errors.New("duplicate debited/credited breakdown pair")

	// ErrInvalidInput covers business-level input problems the validation layer cannot see
	ErrInvalidInput = errors.New("invalid input")
)
