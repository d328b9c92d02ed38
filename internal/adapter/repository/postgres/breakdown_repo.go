package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

const (
	breakdownColumns = `b.id, b.num_ref, b.budget_line_of_id, b.month, b.estimated_amount, b.real_amount, b.purchase_order_amount,
		b.is_active, b.created_by, b.updated_by, b.created_at, b.updated_at`

	breakdownDetailQuery = `
		SELECT ` + breakdownColumns + `, l.num_ref, n.id, n.name, m.id, m.name
		FROM breakdown_budget_line_ofs b
		JOIN budget_line_ofs l ON l.id = b.budget_line_of_id
		JOIN budget_line_names n ON n.id = l.budget_line_name_id
		JOIN major_budget_lines m ON m.id = n.major_budget_line_id
		WHERE b.id = $1
	`
)

// breakdownRepository implements domain.BreakdownRepository
type breakdownRepository struct {
	q querier
}

// scanBreakdown reads breakdownColumns followed by any extra destinations
func scanBreakdown(row scanner, extra ...any) (*domain.Breakdown, error) {
	var b domain.Breakdown
	var estimatedStr, realStr, poStr string

	dest := []any{&b.ID, &b.NumRef, &b.BudgetLineOfID, &b.Month, &estimatedStr, &realStr, &poStr}
	dest = append(dest, auditDest(&b.Audit)...)
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	normalizeAudit(&b.Audit)

	var err error
	if b.EstimatedAmount, err = parseAmount("estimated_amount", estimatedStr); err != nil {
		return nil, err
	}
	if b.RealAmount, err = parseAmount("real_amount", realStr); err != nil {
		return nil, err
	}
	if b.PurchaseOrderAmount, err = parseAmount("purchase_order_amount", poStr); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a breakdown by its ID
func (r *breakdownRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Breakdown, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+breakdownColumns+" FROM breakdown_budget_line_ofs b WHERE b.id = $1", id)
	b, err := scanBreakdown(row)
	if err != nil {
		return nil, readError("breakdown", id, err)
	}
	return b, nil
}

// LockByID reads the breakdown FOR UPDATE
func (r *breakdownRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Breakdown, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+breakdownColumns+" FROM breakdown_budget_line_ofs b WHERE b.id = $1 FOR UPDATE", id)
	b, err := scanBreakdown(row)
	if err != nil {
		return nil, readError("breakdown", id, err)
	}
	return b, nil
}

// GetDetail retrieves a breakdown with the names of its budget line of, name and major line
func (r *breakdownRepository) GetDetail(ctx context.Context, id uuid.UUID) (*domain.BreakdownDetail, error) {
	return getBreakdownDetail(ctx, r.q, id)
}

func getBreakdownDetail(ctx context.Context, q querier, id uuid.UUID) (*domain.BreakdownDetail, error) {
	var detail domain.BreakdownDetail
	b, err := scanBreakdown(q.QueryRowContext(ctx, breakdownDetailQuery, id),
		&detail.BudgetLineOfNumRef, &detail.BudgetLineNameID, &detail.BudgetLineName,
		&detail.MajorBudgetLineID, &detail.MajorBudgetLineName,
	)
	if err != nil {
		return nil, readError("breakdown", id, err)
	}
	detail.Breakdown = *b
	return &detail, nil
}

func (r *breakdownRepository) ExistsForMonth(ctx context.Context, budgetLineOfID uuid.UUID, month domain.Month, exclude uuid.UUID) (bool, error) {
	w := &where{}
	w.add("budget_line_of_id = ?", budgetLineOfID)
	w.add("month = ?", string(month))
	excluding(w, "id", exclude)
	return exists(ctx, r.q, "breakdown_budget_line_ofs", w)
}

func (r *breakdownRepository) LastNumRef(ctx context.Context) (string, error) {
	return lastNumRef(ctx, r.q, "breakdown_budget_line_ofs")
}

// Create inserts a breakdown
func (r *breakdownRepository) Create(ctx context.Context, b *domain.Breakdown) error {
	query := `
		INSERT INTO breakdown_budget_line_ofs (id, num_ref, budget_line_of_id, month, estimated_amount, real_amount, purchase_order_amount,
			is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.q.ExecContext(ctx, query,
		b.ID, b.NumRef, b.BudgetLineOfID, string(b.Month),
		formatAmount(b.EstimatedAmount), formatAmount(b.RealAmount), formatAmount(b.PurchaseOrderAmount),
		b.IsActive, b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return writeError("create breakdown", err)
	}
	return nil
}

// Update writes the mutable columns of a breakdown
func (r *breakdownRepository) Update(ctx context.Context, b *domain.Breakdown) error {
	query := `
		UPDATE breakdown_budget_line_ofs
		SET budget_line_of_id = $2, month = $3, estimated_amount = $4, real_amount = $5, purchase_order_amount = $6,
			is_active = $7, updated_by = $8, updated_at = $9
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query,
		b.ID, b.BudgetLineOfID, string(b.Month),
		formatAmount(b.EstimatedAmount), formatAmount(b.RealAmount), formatAmount(b.PurchaseOrderAmount),
		b.IsActive, b.UpdatedBy, b.UpdatedAt,
	)
	if err != nil {
		return writeError("update breakdown", err)
	}
	return nil
}

func (r *breakdownRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return setActive(ctx, r.q, "breakdown_budget_line_ofs", "breakdown", id, active, actor, at)
}

// monthOrder sorts breakdown rows in calendar order
const monthOrder = `array_position(ARRAY['JANVIER','FEVRIER','MARS','AVRIL','MAI','JUIN','JUILLET','AOUT','SEPTEMBRE','OCTOBRE','NOVEMBRE','DECEMBRE']::text[], b.month)`

// ListByBudgetLineOf returns every breakdown of the budget line of in calendar order
func (r *breakdownRepository) ListByBudgetLineOf(ctx context.Context, budgetLineOfID uuid.UUID) ([]domain.Breakdown, error) {
	query := "SELECT " + breakdownColumns + " FROM breakdown_budget_line_ofs b WHERE b.budget_line_of_id = $1 ORDER BY " +
		monthOrder + ", b.created_at, b.seq"

	rows, err := r.q.QueryContext(ctx, query, budgetLineOfID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}
	defer rows.Close()

	out := []domain.Breakdown{}
	for rows.Next() {
		b, err := scanBreakdown(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *breakdownRepository) filter(f domain.BreakdownFilter) *where {
	w := &where{}
	w.active("b.is_active", f.IsActive)
	if f.BudgetLineOfID != nil {
		w.add("b.budget_line_of_id = ?", *f.BudgetLineOfID)
	}
	if len(f.Months) > 0 {
		months := make([]string, len(f.Months))
		for i, m := range f.Months {
			months[i] = string(m)
		}
		w.add("b.month = ANY(?)", pq.Array(months))
	}
	w.contains("b.num_ref", f.NumRefContains)
	return w
}

func (r *breakdownRepository) List(ctx context.Context, f domain.BreakdownFilter) ([]*domain.Breakdown, error) {
	f.ListParams = f.ListParams.Normalize()
	w := r.filter(f)
	query := "SELECT " + breakdownColumns + " FROM breakdown_budget_line_ofs b" + w.String() + w.page("b", f.ListParams)

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}
	defer rows.Close()

	var out []*domain.Breakdown
	for rows.Next() {
		b, err := scanBreakdown(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *breakdownRepository) Count(ctx context.Context, f domain.BreakdownFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	n, err := count(ctx, r.q, "breakdown_budget_line_ofs b", r.filter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count breakdowns: %w", err)
	}
	return n, nil
}
