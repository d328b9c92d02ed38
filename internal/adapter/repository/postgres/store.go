package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store and domain.Transactor on PostgreSQL
type Store struct {
	db *DB
	q  querier
	tx bool
}

// NewStore creates a store running each call in its own implicit transaction
func NewStore(db *DB) *Store {
	return &Store{db: db, q: db.DB}
}

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.Transactor = (*Store)(nil)
)

func (s *Store) MajorBudgetLines() domain.MajorBudgetLineRepository { return &majorRepository{q: s.q} }
func (s *Store) BudgetLineNames() domain.BudgetLineNameRepository { return &nameRepository{q: s.q} }
func (s *Store) BudgetLineOfs() domain.BudgetLineOfRepository { return &lineOfRepository{q: s.q} }
func (s *Store) Breakdowns() domain.BreakdownRepository { return &breakdownRepository{q: s.q} }
func (s *Store) Derogations() domain.DerogationRepository { return &derogationRepository{q: s.q} }
func (s *Store) DerogationLines() domain.DerogationLineRepository { return &derogationLineRepository{q: s.q} }
func (s *Store) Analysis() domain.AnalysisRepository { return &analysisRepository{q: s.q} }

// WithinTransaction runs fn in a database transaction, committing when fn returns nil.
// A call made from inside fn joins the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.tx {
		return fn(s)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&Store{db: s.db, q: dbTx, tx: true}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockSequence takes a transaction-scoped advisory lock named after the sequence
func (s *Store) LockSequence(ctx context.Context, name string) error {
	if _, err := s.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return fmt.Errorf("failed to lock sequence %s: %w", name, err)
	}
	return nil
}

// uniqueViolations maps constraint names to the business error they enforce
var uniqueViolations = map[string]error{
	"major_budget_lines_code_key":              domain.ErrDuplicateCode,
	"major_budget_lines_name_key":              domain.ErrDuplicateName,
	"budget_line_names_code_key":               domain.ErrDuplicateCode,
	"budget_line_names_name_major_key":         domain.ErrDuplicateNamePerParent,
	"breakdown_budget_line_ofs_line_month_key": domain.ErrDuplicateMonth,
	"derogation_lignes_pair_key":               domain.ErrDuplicateTransferPair,
}

// writeError wraps err with the operation and, for unique violations the
// services could not catch first (concurrent writers), the business error.
func writeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if kind, ok := uniqueViolations[pqErr.Constraint]; ok {
			return fmt.Errorf("failed to %s: %w: %s", op, kind, pqErr.Detail)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// readError turns sql.ErrNoRows into domain.ErrNotFound
func readError(entity string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// parseAmount reads a NUMERIC column scanned as text
func parseAmount(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return d, nil
}

// formatAmount renders an amount for a NUMERIC(14,2) column
func formatAmount(d decimal.Decimal) string {
	return domain.RoundAmount(d).StringFixed(domain.AmountPlaces)
}

// where accumulates AND-ed conditions with positional arguments.
// Each condition uses ? for its arguments, numbered on render.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) active(column string, isActive *bool) {
	if isActive != nil {
		w.add(column+" = ?", *isActive)
	}
}

func (w *where) contains(column, value string) {
	if value != "" {
		w.add(column+" ILIKE ?", "%"+escapeLike(value)+"%")
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page renders ORDER BY and LIMIT/OFFSET for the list params of a table alias
func (w *where) page(alias string, p domain.ListParams) string {
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	out := fmt.Sprintf(" ORDER BY %[1]s.created_at %[2]s, %[1]s.seq %[2]s", alias, dir)
	if p.Limit >= 0 {
		w.args = append(w.args, p.Limit, p.Offset)
		out += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// count runs a COUNT(*) over the given FROM clause and conditions
func count(ctx context.Context, q querier, from string, w *where) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+from+w.String(), w.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
