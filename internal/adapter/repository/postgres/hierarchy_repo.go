package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

const (
	majorColumns  = `m.id, m.num_ref, m.code, m.name, m.service_id, m.is_active, m.created_by, m.updated_by, m.created_at, m.updated_at`
	nameColumns   = `n.id, n.num_ref, n.code, n.name, n.major_budget_line_id, n.is_active, n.created_by, n.updated_by, n.created_at, n.updated_at`
	lineOfColumns = `l.id, l.num_ref, l.budget_line_name_id, l.is_active, l.created_by, l.updated_by, l.created_at, l.updated_at`

	nameFrom   = `budget_line_names n JOIN major_budget_lines m ON m.id = n.major_budget_line_id`
	lineOfFrom = `budget_line_ofs l JOIN budget_line_names n ON n.id = l.budget_line_name_id JOIN major_budget_lines m ON m.id = n.major_budget_line_id`
)

func auditDest(a *domain.Audit) []any {
	return []any{&a.IsActive, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt}
}

func normalizeAudit(a *domain.Audit) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
}

func majorDest(m *domain.MajorBudgetLine) []any {
	return append([]any{&m.ID, &m.NumRef, &m.Code, &m.Name, &m.ServiceID}, auditDest(&m.Audit)...)
}

func nameDest(n *domain.BudgetLineName) []any {
	return append([]any{&n.ID, &n.NumRef, &n.Code, &n.Name, &n.MajorBudgetLineID}, auditDest(&n.Audit)...)
}

func lineOfDest(l *domain.BudgetLineOf) []any {
	return append([]any{&l.ID, &l.NumRef, &l.BudgetLineNameID}, auditDest(&l.Audit)...)
}

// scanName reads nameColumns followed by majorColumns
func scanName(row scanner) (*domain.BudgetLineName, error) {
	var name domain.BudgetLineName
	var major domain.MajorBudgetLine
	if err := row.Scan(append(nameDest(&name), majorDest(&major)...)...); err != nil {
		return nil, err
	}
	normalizeAudit(&name.Audit)
	normalizeAudit(&major.Audit)
	name.MajorBudgetLine = &major
	return &name, nil
}

// scanLineOf reads lineOfColumns, nameColumns and majorColumns
func scanLineOf(row scanner) (*domain.BudgetLineOf, error) {
	var line domain.BudgetLineOf
	var name domain.BudgetLineName
	var major domain.MajorBudgetLine
	dest := append(lineOfDest(&line), nameDest(&name)...)
	if err := row.Scan(append(dest, majorDest(&major)...)...); err != nil {
		return nil, err
	}
	normalizeAudit(&line.Audit)
	normalizeAudit(&name.Audit)
	normalizeAudit(&major.Audit)
	name.MajorBudgetLine = &major
	line.BudgetLineName = &name
	return &line, nil
}

// exists runs a SELECT EXISTS over table with the given conditions
func exists(ctx context.Context, q querier, table string, w *where) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+w.String()+")", w.args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func excluding(w *where, column string, exclude uuid.UUID) {
	if exclude != uuid.Nil {
		w.add(column+" <> ?", exclude)
	}
}

// lastNumRef reads the reference of the most recently created row of table
func lastNumRef(ctx context.Context, q querier, table string) (string, error) {
	var ref string
	err := q.QueryRowContext(ctx, "SELECT num_ref FROM "+table+" ORDER BY created_at DESC, seq DESC LIMIT 1").Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last num_ref of %s: %w", table, err)
	}
	return ref, nil
}

// setActive flips is_active on one row and reports ErrNotFound when no row matched
func setActive(ctx context.Context, q querier, table, entity string, id uuid.UUID, active bool, actor string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET is_active = $2, updated_by = $3, updated_at = $4 WHERE id = $1",
		id, active, actor, at)
	if err != nil {
		return fmt.Errorf("failed to set %s active: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set %s active: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	return nil
}

// majorRepository implements domain.MajorBudgetLineRepository
type majorRepository struct {
	q querier
}

// GetByID retrieves a major budget line by its ID
func (r *majorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MajorBudgetLine, error) {
	var line domain.MajorBudgetLine
	err := r.q.QueryRowContext(ctx, "SELECT "+majorColumns+" FROM major_budget_lines m WHERE m.id = $1", id).
		Scan(majorDest(&line)...)
	if err != nil {
		return nil, readError("major budget line", id, err)
	}
	normalizeAudit(&line.Audit)
	return &line, nil
}

func (r *majorRepository) ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	w := &where{}
	w.add("code = ?", code)
	excluding(w, "id", exclude)
	return exists(ctx, r.q, "major_budget_lines", w)
}

func (r *majorRepository) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	w := &where{}
	w.add("name = ?", name)
	excluding(w, "id", exclude)
	return exists(ctx, r.q, "major_budget_lines", w)
}

func (r *majorRepository) LastNumRef(ctx context.Context) (string, error) {
	return lastNumRef(ctx, r.q, "major_budget_lines")
}

// Create inserts a major budget line
func (r *majorRepository) Create(ctx context.Context, line *domain.MajorBudgetLine) error {
	query := `
		INSERT INTO major_budget_lines (id, num_ref, code, name, service_id, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		line.ID, line.NumRef, line.Code, line.Name, line.ServiceID,
		line.IsActive, line.CreatedBy, line.UpdatedBy, line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return writeError("create major budget line", err)
	}
	return nil
}

// Update writes the mutable columns. created_at and created_by never change.
func (r *majorRepository) Update(ctx context.Context, line *domain.MajorBudgetLine) error {
	query := `
		UPDATE major_budget_lines
		SET code = $2, name = $3, service_id = $4, is_active = $5, updated_by = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query,
		line.ID, line.Code, line.Name, line.ServiceID, line.IsActive, line.UpdatedBy, line.UpdatedAt,
	)
	if err != nil {
		return writeError("update major budget line", err)
	}
	return nil
}

func (r *majorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return setActive(ctx, r.q, "major_budget_lines", "major budget line", id, active, actor, at)
}

func (r *majorRepository) filter(f domain.MajorBudgetLineFilter) *where {
	w := &where{}
	w.active("m.is_active", f.IsActive)
	if f.ServiceID != "" {
		w.add("m.service_id = ?", f.ServiceID)
	}
	if f.Code != "" {
		w.add("m.code = ?", f.Code)
	}
	w.contains("m.name", f.NameContains)
	w.contains("m.num_ref", f.NumRefContains)
	return w
}

// List returns the major budget lines matching filter in creation order
func (r *majorRepository) List(ctx context.Context, f domain.MajorBudgetLineFilter) ([]*domain.MajorBudgetLine, error) {
	f.ListParams = f.ListParams.Normalize()
	w := r.filter(f)
	query := "SELECT " + majorColumns + " FROM major_budget_lines m" + w.String() + w.page("m", f.ListParams)

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list major budget lines: %w", err)
	}
	defer rows.Close()

	var out []*domain.MajorBudgetLine
	for rows.Next() {
		var line domain.MajorBudgetLine
		if err := rows.Scan(majorDest(&line)...); err != nil {
			return nil, fmt.Errorf("failed to scan major budget line: %w", err)
		}
		normalizeAudit(&line.Audit)
		out = append(out, &line)
	}
	return out, rows.Err()
}

func (r *majorRepository) Count(ctx context.Context, f domain.MajorBudgetLineFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	n, err := count(ctx, r.q, "major_budget_lines m", r.filter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count major budget lines: %w", err)
	}
	return n, nil
}

// nameRepository implements domain.BudgetLineNameRepository
type nameRepository struct {
	q querier
}

// GetByID retrieves a budget line name with its major budget line
func (r *nameRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLineName, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+nameColumns+", "+majorColumns+" FROM "+nameFrom+" WHERE n.id = $1", id)
	name, err := scanName(row)
	if err != nil {
		return nil, readError("budget line name", id, err)
	}
	return name, nil
}

func (r *nameRepository) ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	w := &where{}
	w.add("code = ?", code)
	excluding(w, "id", exclude)
	return exists(ctx, r.q, "budget_line_names", w)
}

func (r *nameRepository) ExistsByNameInMajor(ctx context.Context, name string, majorBudgetLineID, exclude uuid.UUID) (bool, error) {
	w := &where{}
	w.add("name = ?", name)
	w.add("major_budget_line_id = ?", majorBudgetLineID)
	excluding(w, "id", exclude)
	return exists(ctx, r.q, "budget_line_names", w)
}

func (r *nameRepository) LastNumRef(ctx context.Context) (string, error) {
	return lastNumRef(ctx, r.q, "budget_line_names")
}

// Create inserts a budget line name
func (r *nameRepository) Create(ctx context.Context, name *domain.BudgetLineName) error {
	query := `
		INSERT INTO budget_line_names (id, num_ref, code, name, major_budget_line_id, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		name.ID, name.NumRef, name.Code, name.Name, name.MajorBudgetLineID,
		name.IsActive, name.CreatedBy, name.UpdatedBy, name.CreatedAt, name.UpdatedAt,
	)
	if err != nil {
		return writeError("create budget line name", err)
	}
	return nil
}

func (r *nameRepository) Update(ctx context.Context, name *domain.BudgetLineName) error {
	query := `
		UPDATE budget_line_names
		SET code = $2, name = $3, major_budget_line_id = $4, is_active = $5, updated_by = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query,
		name.ID, name.Code, name.Name, name.MajorBudgetLineID, name.IsActive, name.UpdatedBy, name.UpdatedAt,
	)
	if err != nil {
		return writeError("update budget line name", err)
	}
	return nil
}

func (r *nameRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return setActive(ctx, r.q, "budget_line_names", "budget line name", id, active, actor, at)
}

func (r *nameRepository) filter(f domain.BudgetLineNameFilter) *where {
	w := &where{}
	w.active("n.is_active", f.IsActive)
	if f.MajorBudgetLineID != nil {
		w.add("n.major_budget_line_id = ?", *f.MajorBudgetLineID)
	}
	if f.Code != "" {
		w.add("n.code = ?", f.Code)
	}
	w.contains("n.name", f.NameContains)
	w.contains("n.num_ref", f.NumRefContains)
	return w
}

func (r *nameRepository) List(ctx context.Context, f domain.BudgetLineNameFilter) ([]*domain.BudgetLineName, error) {
	f.ListParams = f.ListParams.Normalize()
	w := r.filter(f)
	query := "SELECT " + nameColumns + ", " + majorColumns + " FROM " + nameFrom + w.String() + w.page("n", f.ListParams)

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget line names: %w", err)
	}
	defer rows.Close()

	var out []*domain.BudgetLineName
	for rows.Next() {
		name, err := scanName(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget line name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *nameRepository) Count(ctx context.Context, f domain.BudgetLineNameFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	n, err := count(ctx, r.q, "budget_line_names n", r.filter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count budget line names: %w", err)
	}
	return n, nil
}

// lineOfRepository implements domain.BudgetLineOfRepository
type lineOfRepository struct {
	q querier
}

// GetByID retrieves a budget line of with its name and major budget line
func (r *lineOfRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLineOf, error) {
	query := "SELECT " + lineOfColumns + ", " + nameColumns + ", " + majorColumns + " FROM " + lineOfFrom + " WHERE l.id = $1"
	line, err := scanLineOf(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("budget line of", id, err)
	}
	return line, nil
}

func (r *lineOfRepository) ExistsForNameInWindow(ctx context.Context, budgetLineNameID uuid.UUID, from, to time.Time, exclude uuid.UUID, activeOnly bool) (bool, error) {
	w := &where{}
	w.add("budget_line_name_id = ?", budgetLineNameID)
	w.add("created_at >= ?", from)
	w.add("created_at < ?", to)
	excluding(w, "id", exclude)
	if activeOnly {
		w.add("is_active")
	}
	return exists(ctx, r.q, "budget_line_ofs", w)
}

func (r *lineOfRepository) LastNumRef(ctx context.Context) (string, error) {
	return lastNumRef(ctx, r.q, "budget_line_ofs")
}

func (r *lineOfRepository) Create(ctx context.Context, line *domain.BudgetLineOf) error {
	query := `
		INSERT INTO budget_line_ofs (id, num_ref, budget_line_name_id, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		line.ID, line.NumRef, line.BudgetLineNameID,
		line.IsActive, line.CreatedBy, line.UpdatedBy, line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return writeError("create budget line of", err)
	}
	return nil
}

func (r *lineOfRepository) Update(ctx context.Context, line *domain.BudgetLineOf) error {
	query := `
		UPDATE budget_line_ofs
		SET budget_line_name_id = $2, is_active = $3, updated_by = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query, line.ID, line.BudgetLineNameID, line.IsActive, line.UpdatedBy, line.UpdatedAt)
	if err != nil {
		return writeError("update budget line of", err)
	}
	return nil
}

func (r *lineOfRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return setActive(ctx, r.q, "budget_line_ofs", "budget line of", id, active, actor, at)
}

func (r *lineOfRepository) filter(f domain.BudgetLineOfFilter) *where {
	w := &where{}
	w.active("l.is_active", f.IsActive)
	if f.BudgetLineNameID != nil {
		w.add("l.budget_line_name_id = ?", *f.BudgetLineNameID)
	}
	if f.CreatedFrom != nil {
		w.add("l.created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		w.add("l.created_at < ?", *f.CreatedTo)
	}
	w.contains("l.num_ref", f.NumRefContains)
	return w
}

func (r *lineOfRepository) List(ctx context.Context, f domain.BudgetLineOfFilter) ([]*domain.BudgetLineOf, error) {
	f.ListParams = f.ListParams.Normalize()
	w := r.filter(f)
	query := "SELECT " + lineOfColumns + ", " + nameColumns + ", " + majorColumns + " FROM " + lineOfFrom + w.String() + w.page("l", f.ListParams)

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget line ofs: %w", err)
	}
	defer rows.Close()

	var out []*domain.BudgetLineOf
	for rows.Next() {
		line, err := scanLineOf(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget line of: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *lineOfRepository) Count(ctx context.Context, f domain.BudgetLineOfFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	n, err := count(ctx, r.q, "budget_line_ofs l", r.filter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count budget line ofs: %w", err)
	}
	return n, nil
}
