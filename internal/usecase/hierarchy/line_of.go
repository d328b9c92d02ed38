package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
	"github.com/simaogato/budgetline-backend/internal/usecase/listing"
)

// CreateBudgetLineOfInput represents the input for creating a budget line of
type CreateBudgetLineOfInput struct {
	BudgetLineNameID uuid.UUID
	Actor            string
}

// BreakdownEntry is one month of a compound budget line of creation
type BreakdownEntry struct {
	Month           domain.Month
	EstimatedAmount *decimal.Decimal
}

// CreateBudgetLineOfWithBreakdownsInput creates a budget line of and its monthly breakdowns together
type CreateBudgetLineOfWithBreakdownsInput struct {
	BudgetLineNameID uuid.UUID
	Actor            string
	Breakdowns       []BreakdownEntry
}

// UpdateBudgetLineOfInput moves a budget line of to another budget line name
type UpdateBudgetLineOfInput struct {
	ID               uuid.UUID
	BudgetLineNameID *uuid.UUID
	Actor            string
}

// CreateBudgetLineOf creates this year's instance of a budget line name
func (s *HierarchyService) CreateBudgetLineOf(ctx context.Context, input CreateBudgetLineOfInput) (*domain.BudgetLineOf, error) {
	var line *domain.BudgetLineOf

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		var err error
		line, err = s.createLineOf(ctx, tx, input.BudgetLineNameID, input.Actor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create budget line of: %w", err)
	}

	return line, nil
}

// CreateBudgetLineOfWithBreakdowns creates a budget line of plus one breakdown per entry.
// Logic:
//  1. Validate every entry (month and estimated amount required, months distinct)
//  2. In one transaction: create the budget line of, then each breakdown in entry order
//  3. Any failure rolls back the budget line of and every breakdown already written
func (s *HierarchyService) CreateBudgetLineOfWithBreakdowns(ctx context.Context, input CreateBudgetLineOfWithBreakdownsInput) (*domain.BudgetLineOf, error) {
	if err := validateEntries(input.Breakdowns); err != nil {
		return nil, err
	}

	var line *domain.BudgetLineOf

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		var err error
		line, err = s.createLineOf(ctx, tx, input.BudgetLineNameID, input.Actor)
		if err != nil {
			return err
		}

		repo := tx.Breakdowns()
		for _, entry := range input.Breakdowns {
			numRef, err := nextRef(ctx, tx, domain.SequenceBreakdown, repo.LastNumRef, line.CreatedAt)
			if err != nil {
				return err
			}

			breakdown := domain.Breakdown{
				ID:                  uuid.New(),
				NumRef:              numRef,
				BudgetLineOfID:      line.ID,
				Month:               entry.Month,
				EstimatedAmount:     domain.RoundAmount(*entry.EstimatedAmount),
				RealAmount:          decimal.Zero,
				PurchaseOrderAmount: decimal.Zero,
				Audit:               line.Audit,
			}
			if err := breakdown.Validate(); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			if err := repo.Create(ctx, &breakdown); err != nil {
				return err
			}
			line.Breakdowns = append(line.Breakdowns, breakdown)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create budget line of with breakdowns: %w", err)
	}

	s.Logger.InfoContext(ctx, "budget line of created with breakdowns",
		applog.FieldID, line.ID, applog.FieldNumRef, line.NumRef, applog.FieldLines, len(line.Breakdowns))
	return line, nil
}

func validateEntries(entries []BreakdownEntry) error {
	seen := make(map[domain.Month]bool, len(entries))
	for i, entry := range entries {
		if !entry.Month.Valid() || entry.EstimatedAmount == nil {
			return fmt.Errorf("%w: invalid breakdown data at entry %d: month and estimatedAmount are required", domain.ErrInvalidInput, i+1)
		}
		if seen[entry.Month] {
			return fmt.Errorf("%w: month %s given twice", domain.ErrDuplicateMonth, entry.Month)
		}
		seen[entry.Month] = true
	}
	if len(entries) != len(domain.Months) {
		return fmt.Errorf("%w: expected %d monthly breakdowns, got %d", domain.ErrInvalidInput, len(domain.Months), len(entries))
	}
	return nil
}

// createLineOf checks the name exists and has no budget line of created this year, then inserts
func (s *HierarchyService) createLineOf(ctx context.Context, tx domain.Store, nameID uuid.UUID, actor string) (*domain.BudgetLineOf, error) {
	now := s.now()
	repo := tx.BudgetLineOfs()

	name, err := tx.BudgetLineNames().GetByID(ctx, nameID)
	if err != nil {
		return nil, err
	}

	numRef, err := nextRef(ctx, tx, domain.SequenceBudgetLineOf, repo.LastNumRef, now)
	if err != nil {
		return nil, err
	}

	from, to := domain.YearWindow(now.Year())
	exists, err := repo.ExistsForNameInWindow(ctx, nameID, from, to, uuid.Nil, false)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: budget line name %s, year %d", domain.ErrDuplicateForYear, nameID, now.Year())
	}

	line := &domain.BudgetLineOf{
		ID:               uuid.New(),
		NumRef:           numRef,
		BudgetLineNameID: nameID,
		Audit: domain.Audit{
			IsActive:  true,
			CreatedBy: actor,
			UpdatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := repo.Create(ctx, line); err != nil {
		return nil, err
	}

	line.BudgetLineName = name
	return line, nil
}

// GetBudgetLineOf returns the budget line of with its name, major line and breakdowns
func (s *HierarchyService) GetBudgetLineOf(ctx context.Context, id uuid.UUID) (*domain.BudgetLineOf, error) {
	line, err := s.Store.BudgetLineOfs().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	line.Breakdowns, err = s.Store.Breakdowns().ListByBudgetLineOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}

	return line, nil
}

// ListBudgetLineOfs returns a page of budget line ofs matching filter
func (s *HierarchyService) ListBudgetLineOfs(ctx context.Context, filter domain.BudgetLineOfFilter) (domain.Page[*domain.BudgetLineOf], error) {
	filter.ListParams = filter.ListParams.Normalize()
	repo := s.Store.BudgetLineOfs()

	return listing.Fetch(ctx, filter.ListParams,
		func(ctx context.Context) ([]*domain.BudgetLineOf, error) { return repo.List(ctx, filter) },
		func(ctx context.Context) (int, error) { return repo.Count(ctx, filter) },
	)
}

// UpdateBudgetLineOf re-parents a budget line of.
// Records from a prior year are frozen, and the target name must have no other
// active budget line of in the current year.
func (s *HierarchyService) UpdateBudgetLineOf(ctx context.Context, input UpdateBudgetLineOfInput) (*domain.BudgetLineOf, error) {
	var line *domain.BudgetLineOf

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.BudgetLineOfs()
		now := s.now()

		existing, err := repo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}
		if existing.Year() < now.Year() {
			return fmt.Errorf("%w: record year %d, current year %d", domain.ErrWrongYear, existing.Year(), now.Year())
		}

		if input.BudgetLineNameID != nil {
			name, err := tx.BudgetLineNames().GetByID(ctx, *input.BudgetLineNameID)
			if err != nil {
				return err
			}

			from, to := domain.YearWindow(now.Year())
			exists, err := repo.ExistsForNameInWindow(ctx, name.ID, from, to, existing.ID, true)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: budget line name %s, year %d", domain.ErrDuplicateForYear, name.ID, now.Year())
			}
			existing.BudgetLineNameID = name.ID
			existing.BudgetLineName = name
		}

		existing.UpdatedBy = input.Actor
		existing.UpdatedAt = now
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		line = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update budget line of: %w", err)
	}

	return line, nil
}

// DeleteBudgetLineOf soft-deletes the record. It returns nil, nil when id does not exist.
func (s *HierarchyService) DeleteBudgetLineOf(ctx context.Context, id uuid.UUID, actor string) (*domain.BudgetLineOf, error) {
	return s.setLineOfActive(ctx, id, false, actor)
}

// RestoreBudgetLineOf reverses DeleteBudgetLineOf
func (s *HierarchyService) RestoreBudgetLineOf(ctx context.Context, id uuid.UUID, actor string) (*domain.BudgetLineOf, error) {
	return s.setLineOfActive(ctx, id, true, actor)
}

func (s *HierarchyService) setLineOfActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.BudgetLineOf, error) {
	err := s.Store.BudgetLineOfs().SetActive(ctx, id, active, actor, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set budget line of active=%t: %w", active, err)
	}

	return s.GetBudgetLineOf(ctx, id)
}
