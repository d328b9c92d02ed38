package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalysisQuery selects the hierarchy rows rolled up by the analysis reporter
type AnalysisQuery struct {
	ServiceIDs []string
	From       time.Time // inclusive lower bound on budget line of CreatedAt
	To         time.Time // exclusive upper bound
}

// AnalysisRow is one flattened (major line, name, line of, breakdown) tuple.
// Only active records appear. Lower levels are nil when the parent has no child
// inside the window, so every major line is represented at least once.
type AnalysisRow struct {
	MajorBudgetLineID uuid.UUID
	MajorNumRef       string
	MajorCode         string
	MajorName         string
	ServiceID         string

	BudgetLineNameID *uuid.UUID
	NameNumRef       string
	NameCode         string
	Name             string

	BudgetLineOfID *uuid.UUID
	LineOfNumRef   string

	BreakdownID         *uuid.UUID
	EstimatedAmount     decimal.Decimal
	RealAmount          decimal.Decimal
	PurchaseOrderAmount decimal.Decimal
}
