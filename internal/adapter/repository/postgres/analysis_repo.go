package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// analysisRepository implements domain.AnalysisRepository
type analysisRepository struct {
	q querier
}

// AnalysisRows flattens the active hierarchy of the services with LEFT JOINs.
// The creation window applies to budget line ofs only.
func (r *analysisRepository) AnalysisRows(ctx context.Context, query domain.AnalysisQuery) ([]domain.AnalysisRow, error) {
	stmt := `
		SELECT m.id, m.num_ref, m.code, m.name, m.service_id,
			n.id, n.num_ref, n.code, n.name,
			l.id, l.num_ref,
			b.id, b.estimated_amount, b.real_amount, b.purchase_order_amount
		FROM major_budget_lines m
		LEFT JOIN budget_line_names n ON n.major_budget_line_id = m.id AND n.is_active
		LEFT JOIN budget_line_ofs l ON l.budget_line_name_id = n.id AND l.is_active
			AND l.created_at >= $2 AND l.created_at < $3
		LEFT JOIN breakdown_budget_line_ofs b ON b.budget_line_of_id = l.id AND b.is_active
		WHERE m.is_active AND m.service_id = ANY($1)
		ORDER BY m.created_at, m.seq, n.created_at, n.seq, l.created_at, l.seq, ` + monthOrder + `, b.created_at
	`

	rows, err := r.q.QueryContext(ctx, stmt, pq.Array(query.ServiceIDs), query.From, query.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis rows: %w", err)
	}
	defer rows.Close()

	out := []domain.AnalysisRow{}
	for rows.Next() {
		var row domain.AnalysisRow
		var nameID, lineOfID, breakdownID uuid.NullUUID
		var nameNumRef, nameCode, name, lineOfNumRef sql.NullString
		var estimated, realized, po sql.NullString

		err := rows.Scan(
			&row.MajorBudgetLineID, &row.MajorNumRef, &row.MajorCode, &row.MajorName, &row.ServiceID,
			&nameID, &nameNumRef, &nameCode, &name,
			&lineOfID, &lineOfNumRef,
			&breakdownID, &estimated, &realized, &po,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}

		if nameID.Valid {
			row.BudgetLineNameID = &nameID.UUID
			row.NameNumRef, row.NameCode, row.Name = nameNumRef.String, nameCode.String, name.String
		}
		if lineOfID.Valid {
			row.BudgetLineOfID = &lineOfID.UUID
			row.LineOfNumRef = lineOfNumRef.String
		}
		if breakdownID.Valid {
			row.BreakdownID = &breakdownID.UUID
			if row.EstimatedAmount, err = parseAmount("estimated_amount", estimated.String); err != nil {
				return nil, err
			}
			if row.RealAmount, err = parseAmount("real_amount", realized.String); err != nil {
				return nil, err
			}
			if row.PurchaseOrderAmount, err = parseAmount("purchase_order_amount", po.String); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
