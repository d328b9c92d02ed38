package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

const derogationColumns = `g.id, g.num_ref, g.description, g.is_active, g.created_by, g.updated_by, g.created_at, g.updated_at`

// derogationRepository implements domain.DerogationRepository
type derogationRepository struct {
	q querier
}

func scanDerogation(row scanner) (*domain.Derogation, error) {
	var g domain.Derogation
	if err := row.Scan(append([]any{&g.ID, &g.NumRef, &g.Description}, auditDest(&g.Audit)...)...); err != nil {
		return nil, err
	}
	normalizeAudit(&g.Audit)
	return &g, nil
}

// GetByID retrieves a derogation header by its ID
func (r *derogationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Derogation, error) {
	g, err := scanDerogation(r.q.QueryRowContext(ctx, "SELECT "+derogationColumns+" FROM derogations g WHERE g.id = $1", id))
	if err != nil {
		return nil, readError("derogation", id, err)
	}
	return g, nil
}

func (r *derogationRepository) CountByNumRefPrefix(ctx context.Context, prefix string) (int, error) {
	w := &where{}
	w.add("g.num_ref LIKE ?", escapeLike(prefix)+"%")
	n, err := count(ctx, r.q, "derogations g", w)
	if err != nil {
		return 0, fmt.Errorf("failed to count derogations with prefix %s: %w", prefix, err)
	}
	return n, nil
}

func (r *derogationRepository) Create(ctx context.Context, g *domain.Derogation) error {
	query := `
		INSERT INTO derogations (id, num_ref, description, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		g.ID, g.NumRef, g.Description, g.IsActive, g.CreatedBy, g.UpdatedBy, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return writeError("create derogation", err)
	}
	return nil
}

func (r *derogationRepository) Update(ctx context.Context, g *domain.Derogation) error {
	query := `
		UPDATE derogations
		SET description = $2, is_active = $3, updated_by = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query, g.ID, g.Description, g.IsActive, g.UpdatedBy, g.UpdatedAt)
	if err != nil {
		return writeError("update derogation", err)
	}
	return nil
}

func (r *derogationRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return setActive(ctx, r.q, "derogations", "derogation", id, active, actor, at)
}

func (r *derogationRepository) filter(f domain.DerogationFilter) *where {
	w := &where{}
	w.active("g.is_active", f.IsActive)
	if f.CreatedBy != "" {
		w.add("g.created_by = ?", f.CreatedBy)
	}
	w.contains("g.num_ref", f.NumRefContains)
	w.contains("g.description", f.DescriptionContains)
	return w
}

func (r *derogationRepository) List(ctx context.Context, f domain.DerogationFilter) ([]*domain.Derogation, error) {
	f.ListParams = f.ListParams.Normalize()
	w := r.filter(f)
	query := "SELECT " + derogationColumns + " FROM derogations g" + w.String() + w.page("g", f.ListParams)

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list derogations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Derogation
	for rows.Next() {
		g, err := scanDerogation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan derogation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *derogationRepository) Count(ctx context.Context, f domain.DerogationFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	n, err := count(ctx, r.q, "derogations g", r.filter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count derogations: %w", err)
	}
	return n, nil
}

// derogationLineRepository implements domain.DerogationLineRepository
type derogationLineRepository struct {
	q querier
}

func (r *derogationLineRepository) Create(ctx context.Context, line *domain.DerogationLine) error {
	query := `
		INSERT INTO derogation_lignes (id, num_ref, derogation_id, breakdown_debited_id, breakdown_credited_id, amount,
			is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.q.ExecContext(ctx, query,
		line.ID, line.NumRef, line.DerogationID, line.DebitedID, line.CreditedID, formatAmount(line.Amount),
		line.IsActive, line.CreatedBy, line.UpdatedBy, line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return writeError("create derogation line", err)
	}
	return nil
}

// derogationLinesQuery reads the lines in insertion order. NumRef suffixes grow
// past two digits, so they do not sort as text.
const derogationLinesQuery = `
	SELECT id, num_ref, derogation_id, breakdown_debited_id, breakdown_credited_id, amount,
		is_active, created_by, updated_by, created_at, updated_at
	FROM derogation_lignes
	WHERE derogation_id = $1
	ORDER BY seq
`

// ListByDerogation returns the lines in creation order, each with both breakdown details
func (r *derogationLineRepository) ListByDerogation(ctx context.Context, derogationID uuid.UUID) ([]domain.DerogationLine, error) {
	rows, err := r.q.QueryContext(ctx, derogationLinesQuery, derogationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list derogation lines: %w", err)
	}

	out := []domain.DerogationLine{}
	for rows.Next() {
		var line domain.DerogationLine
		var amountStr string
		dest := []any{&line.ID, &line.NumRef, &line.DerogationID, &line.DebitedID, &line.CreditedID, &amountStr}
		if err := rows.Scan(append(dest, auditDest(&line.Audit)...)...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan derogation line: %w", err)
		}
		normalizeAudit(&line.Audit)
		if line.Amount, err = parseAmount("amount", amountStr); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list derogation lines: %w", err)
	}

	// Details are read after the cursor is closed: a transaction holds one connection
	for i := range out {
		if out[i].Debited, err = getBreakdownDetail(ctx, r.q, out[i].DebitedID); err != nil {
			return nil, err
		}
		if out[i].Credited, err = getBreakdownDetail(ctx, r.q, out[i].CreditedID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetActiveByDerogation updates every line of the derogation in one statement
func (r *derogationLineRepository) SetActiveByDerogation(ctx context.Context, derogationID uuid.UUID, active bool, actor string, at time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE derogation_lignes SET is_active = $2, updated_by = $3, updated_at = $4 WHERE derogation_id = $1`,
		derogationID, active, actor, at)
	if err != nil {
		return 0, fmt.Errorf("failed to set derogation lines active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to set derogation lines active: %w", err)
	}
	return int(n), nil
}
