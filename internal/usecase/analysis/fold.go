package analysis

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// MajorLineSummary is one major budget line of the report
type MajorLineSummary struct {
	ID              uuid.UUID
	NumRef          string
	Code            string
	Name            string
	ServiceID       string
	BudgetLineNames []NameSummary
}

// NameSummary is one budget line name with its yearly instances
type NameSummary struct {
	ID            uuid.UUID
	NumRef        string
	Code          string
	Name          string
	BudgetLineOfs []LineOfSummary
}

// LineOfSummary carries the amounts of a budget line of summed over its breakdowns
type LineOfSummary struct {
	ID                  uuid.UUID
	NumRef              string
	EstimatedAmount     decimal.Decimal
	RealAmount          decimal.Decimal
	PurchaseOrderAmount decimal.Decimal
}

// Fold groups flattened rows into major line -> name -> line of summaries.
// Nodes keep the order of their first row. Rows with nil child ids produce
// a node without children.
func Fold(rows []domain.AnalysisRow) []MajorLineSummary {
	out := []MajorLineSummary{}

	type namePos struct{ major, name int }
	type lineOfPos struct{ major, name, lineOf int }

	majors := make(map[uuid.UUID]int)
	names := make(map[uuid.UUID]namePos)
	lineOfs := make(map[uuid.UUID]lineOfPos)

	for _, row := range rows {
		mi, ok := majors[row.MajorBudgetLineID]
		if !ok {
			mi = len(out)
			majors[row.MajorBudgetLineID] = mi
			out = append(out, MajorLineSummary{
				ID:              row.MajorBudgetLineID,
				NumRef:          row.MajorNumRef,
				Code:            row.MajorCode,
				Name:            row.MajorName,
				ServiceID:       row.ServiceID,
				BudgetLineNames: []NameSummary{},
			})
		}
		if row.BudgetLineNameID == nil {
			continue
		}

		np, ok := names[*row.BudgetLineNameID]
		if !ok {
			major := &out[mi]
			np = namePos{major: mi, name: len(major.BudgetLineNames)}
			names[*row.BudgetLineNameID] = np
			major.BudgetLineNames = append(major.BudgetLineNames, NameSummary{
				ID:            *row.BudgetLineNameID,
				NumRef:        row.NameNumRef,
				Code:          row.NameCode,
				Name:          row.Name,
				BudgetLineOfs: []LineOfSummary{},
			})
		}
		if row.BudgetLineOfID == nil {
			continue
		}

		lp, ok := lineOfs[*row.BudgetLineOfID]
		if !ok {
			name := &out[np.major].BudgetLineNames[np.name]
			lp = lineOfPos{major: np.major, name: np.name, lineOf: len(name.BudgetLineOfs)}
			lineOfs[*row.BudgetLineOfID] = lp
			name.BudgetLineOfs = append(name.BudgetLineOfs, LineOfSummary{
				ID:                  *row.BudgetLineOfID,
				NumRef:              row.LineOfNumRef,
				EstimatedAmount:     decimal.Zero,
				RealAmount:          decimal.Zero,
				PurchaseOrderAmount: decimal.Zero,
			})
		}
		if row.BreakdownID == nil {
			continue
		}

		sum := &out[lp.major].BudgetLineNames[lp.name].BudgetLineOfs[lp.lineOf]
		sum.EstimatedAmount = sum.EstimatedAmount.Add(row.EstimatedAmount)
		sum.RealAmount = sum.RealAmount.Add(row.RealAmount)
		sum.PurchaseOrderAmount = sum.PurchaseOrderAmount.Add(row.PurchaseOrderAmount)
	}

	return out
}
