package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit is applied when a list request carries no limit
const DefaultListLimit = 100

// ListParams holds the pagination and activity filter shared by every list operation.
// A negative Limit disables pagination and restricts the result to active records.
type ListParams struct {
	Limit    int
	Offset   int
	IsActive *bool
	Desc     bool // order by created_at descending
}

// Normalize applies defaults and the unpaginated active-only rule
func (p ListParams) Normalize() ListParams {
	if p.Limit == 0 {
		p.Limit = DefaultListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit < 0 {
		active := true
		p.Limit = -1
		p.Offset = 0
		p.IsActive = &active
	}
	return p
}

// Page is a slice of results plus the total number of matching records
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// MajorBudgetLineFilter narrows MajorBudgetLineRepository.List
type MajorBudgetLineFilter struct {
	ListParams
	ServiceID      string
	Code           string
	NameContains   string
	NumRefContains string
}

// BudgetLineNameFilter narrows BudgetLineNameRepository.List
type BudgetLineNameFilter struct {
	ListParams
	MajorBudgetLineID *uuid.UUID
	Code              string
	NameContains      string
	NumRefContains    string
}

// BudgetLineOfFilter narrows BudgetLineOfRepository.List
type BudgetLineOfFilter struct {
	ListParams
	BudgetLineNameID *uuid.UUID
	NumRefContains   string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time // exclusive
}

// BreakdownFilter narrows BreakdownRepository.List
type BreakdownFilter struct {
	ListParams
	BudgetLineOfID *uuid.UUID
	Months         []Month // empty means every month
	NumRefContains string
}

// DerogationFilter narrows DerogationRepository.List
type DerogationFilter struct {
	ListParams
	NumRefContains      string
	DescriptionContains string
	CreatedBy           string
}

// MajorBudgetLineRepository defines the persistence operations for major budget lines.
// Read-by-id methods return an error wrapping ErrNotFound when the record is absent.
type MajorBudgetLineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*MajorBudgetLine, error)

	// ExistsByCode / ExistsByName ignore the record with id exclude (uuid.Nil excludes nothing)
	ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error)
	ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error)

	// LastNumRef returns the NumRef of the most recently created record, "" if none
	LastNumRef(ctx context.Context) (string, error)

	Create(ctx context.Context, line *MajorBudgetLine) error
	Update(ctx context.Context, line *MajorBudgetLine) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error

	List(ctx context.Context, filter MajorBudgetLineFilter) ([]*MajorBudgetLine, error)
	Count(ctx context.Context, filter MajorBudgetLineFilter) (int, error)
}

// BudgetLineNameRepository defines the persistence operations for budget line names
type BudgetLineNameRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BudgetLineName, error)
	ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error)

	// ExistsByNameInMajor checks the (name, majorBudgetLineID) pair
	ExistsByNameInMajor(ctx context.Context, name string, majorBudgetLineID, exclude uuid.UUID) (bool, error)

	LastNumRef(ctx context.Context) (string, error)
	Create(ctx context.Context, name *BudgetLineName) error
	Update(ctx context.Context, name *BudgetLineName) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error
	List(ctx context.Context, filter BudgetLineNameFilter) ([]*BudgetLineName, error)
	Count(ctx context.Context, filter BudgetLineNameFilter) (int, error)
}

// BudgetLineOfRepository defines the persistence operations for budget line ofs
type BudgetLineOfRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BudgetLineOf, error)

	// ExistsForNameInWindow checks for a record of budgetLineNameID created in [from, to).
	// activeOnly restricts the check to active records.
	ExistsForNameInWindow(ctx context.Context, budgetLineNameID uuid.UUID, from, to time.Time, exclude uuid.UUID, activeOnly bool) (bool, error)

	LastNumRef(ctx context.Context) (string, error)
	Create(ctx context.Context, line *BudgetLineOf) error
	Update(ctx context.Context, line *BudgetLineOf) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error
	List(ctx context.Context, filter BudgetLineOfFilter) ([]*BudgetLineOf, error)
	Count(ctx context.Context, filter BudgetLineOfFilter) (int, error)
}

// BreakdownRepository defines the persistence operations for monthly breakdowns
type BreakdownRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Breakdown, error)

	// LockByID reads the breakdown and holds a row lock until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	LockByID(ctx context.Context, id uuid.UUID) (*Breakdown, error)

	// GetDetail reads the breakdown with the hierarchy names above it
	GetDetail(ctx context.Context, id uuid.UUID) (*BreakdownDetail, error)

	ExistsForMonth(ctx context.Context, budgetLineOfID uuid.UUID, month Month, exclude uuid.UUID) (bool, error)
	LastNumRef(ctx context.Context) (string, error)
	Create(ctx context.Context, breakdown *Breakdown) error
	Update(ctx context.Context, breakdown *Breakdown) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error
	ListByBudgetLineOf(ctx context.Context, budgetLineOfID uuid.UUID) ([]Breakdown, error)
	List(ctx context.Context, filter BreakdownFilter) ([]*Breakdown, error)
	Count(ctx context.Context, filter BreakdownFilter) (int, error)
}

// DerogationRepository defines the persistence operations for derogation headers
type DerogationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Derogation, error)

	// CountByNumRefPrefix counts derogations whose NumRef starts with prefix
	CountByNumRefPrefix(ctx context.Context, prefix string) (int, error)

	Create(ctx context.Context, derogation *Derogation) error
	Update(ctx context.Context, derogation *Derogation) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error
	List(ctx context.Context, filter DerogationFilter) ([]*Derogation, error)
	Count(ctx context.Context, filter DerogationFilter) (int, error)
}

// DerogationLineRepository defines the persistence operations for derogation lines
type DerogationLineRepository interface {
	Create(ctx context.Context, line *DerogationLine) error

	// ListByDerogation returns the lines ordered by NumRef with Debited/Credited populated
	ListByDerogation(ctx context.Context, derogationID uuid.UUID) ([]DerogationLine, error)

	// SetActiveByDerogation updates every line of the derogation and returns the row count
	SetActiveByDerogation(ctx context.Context, derogationID uuid.UUID, active bool, actor string, at time.Time) (int, error)
}

// AnalysisRepository reads the flattened hierarchy for the analysis reporter
type AnalysisRepository interface {
	AnalysisRows(ctx context.Context, query AnalysisQuery) ([]AnalysisRow, error)
}

// Store bundles the repositories. A Store handed to a WithinTransaction callback
// runs every call inside that transaction.
type Store interface {
	MajorBudgetLines() MajorBudgetLineRepository
	BudgetLineNames() BudgetLineNameRepository
	BudgetLineOfs() BudgetLineOfRepository
	Breakdowns() BreakdownRepository
	Derogations() DerogationRepository
	DerogationLines() DerogationLineRepository
	Analysis() AnalysisRepository

	// LockSequence serialises reference-number generation for the named sequence
	// until the surrounding transaction ends.
	LockSequence(ctx context.Context, name string) error
}

// Transactor runs fn inside one atomic unit of work.
// If fn returns an error every write made through tx is rolled back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}
