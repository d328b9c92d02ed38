package memory

import (
	"context"

	"github.com/simaogato/budgetline-backend/internal/domain"
)

// analysisRepo implements domain.AnalysisRepository
type analysisRepo struct{ s *Store }

// AnalysisRows walks the active hierarchy the way a chain of LEFT JOINs would:
// a parent without matching children still yields one row with nil child ids.
func (r *analysisRepo) AnalysisRows(ctx context.Context, q domain.AnalysisQuery) ([]domain.AnalysisRow, error) {
	services := make(map[string]bool, len(q.ServiceIDs))
	for _, id := range q.ServiceIDs {
		services[id] = true
	}

	rows := []domain.AnalysisRow{}
	err := r.s.do(func(d *data) error {
		var majors []domain.MajorBudgetLine
		for _, m := range d.majors {
			if m.IsActive && services[m.ServiceID] {
				majors = append(majors, m)
			}
		}
		sortByCreation(d, majors, majorKey, false)

		for _, m := range majors {
			base := domain.AnalysisRow{
				MajorBudgetLineID: m.ID,
				MajorNumRef:       m.NumRef,
				MajorCode:         m.Code,
				MajorName:         m.Name,
				ServiceID:         m.ServiceID,
			}

			var names []domain.BudgetLineName
			for _, n := range d.names {
				if n.IsActive && n.MajorBudgetLineID == m.ID {
					names = append(names, n)
				}
			}
			sortByCreation(d, names, nameKey, false)
			if len(names) == 0 {
				rows = append(rows, base)
				continue
			}

			for _, n := range names {
				nameRow := base
				nameID := n.ID
				nameRow.BudgetLineNameID = &nameID
				nameRow.NameNumRef, nameRow.NameCode, nameRow.Name = n.NumRef, n.Code, n.Name

				var lineOfs []domain.BudgetLineOf
				for _, l := range d.lineOfs {
					if l.IsActive && l.BudgetLineNameID == n.ID &&
						!l.CreatedAt.Before(q.From) && l.CreatedAt.Before(q.To) {
						lineOfs = append(lineOfs, l)
					}
				}
				sortByCreation(d, lineOfs, lineOfKey, false)
				if len(lineOfs) == 0 {
					rows = append(rows, nameRow)
					continue
				}

				for _, l := range lineOfs {
					lineRow := nameRow
					lineID := l.ID
					lineRow.BudgetLineOfID = &lineID
					lineRow.LineOfNumRef = l.NumRef

					var breakdowns []domain.Breakdown
					for _, b := range d.breakdowns {
						if b.IsActive && b.BudgetLineOfID == l.ID {
							breakdowns = append(breakdowns, b)
						}
					}
					sortByMonth(d, breakdowns)
					if len(breakdowns) == 0 {
						rows = append(rows, lineRow)
						continue
					}

					for _, b := range breakdowns {
						row := lineRow
						breakdownID := b.ID
						row.BreakdownID = &breakdownID
						row.EstimatedAmount = b.EstimatedAmount
						row.RealAmount = b.RealAmount
						row.PurchaseOrderAmount = b.PurchaseOrderAmount
						rows = append(rows, row)
					}
				}
			}
		}
		return nil
	})
	return rows, err
}
