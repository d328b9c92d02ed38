package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
	"github.com/simaogato/budgetline-backend/internal/usecase/listing"
)

// CreateBudgetLineNameInput represents the input for creating a budget line name
type CreateBudgetLineNameInput struct {
	Code              string
	Name              string
	MajorBudgetLineID uuid.UUID
	Actor             string
}

// UpdateBudgetLineNameInput carries the fields to change; nil fields keep their value
type UpdateBudgetLineNameInput struct {
	ID                uuid.UUID
	Code              *string
	Name              *string
	MajorBudgetLineID *uuid.UUID
	Actor             string
}

// CreateBudgetLineName creates a sub-category under a major budget line
func (s *HierarchyService) CreateBudgetLineName(ctx context.Context, input CreateBudgetLineNameInput) (*domain.BudgetLineName, error) {
	now := s.now()
	name := &domain.BudgetLineName{
		ID:                uuid.New(),
		Code:              strings.TrimSpace(input.Code),
		Name:              strings.ToLower(strings.TrimSpace(input.Name)),
		MajorBudgetLineID: input.MajorBudgetLineID,
		Audit: domain.Audit{
			IsActive:  true,
			CreatedBy: input.Actor,
			UpdatedBy: input.Actor,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := name.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.BudgetLineNames()

		major, err := tx.MajorBudgetLines().GetByID(ctx, name.MajorBudgetLineID)
		if err != nil {
			return err
		}

		numRef, err := nextRef(ctx, tx, domain.SequenceBudgetLineName, repo.LastNumRef, now)
		if err != nil {
			return err
		}
		name.NumRef = numRef

		if err := checkNameUnique(ctx, repo, name.Code, name.Name, name.MajorBudgetLineID, uuid.Nil); err != nil {
			return err
		}
		if err := repo.Create(ctx, name); err != nil {
			return err
		}
		name.MajorBudgetLine = major
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create budget line name: %w", err)
	}

	return name, nil
}

// checkNameUnique rejects a used code first, then a used (name, major line) pair
func checkNameUnique(ctx context.Context, repo domain.BudgetLineNameRepository, code, name string, majorID, exclude uuid.UUID) error {
	exists, err := repo.ExistsByCode(ctx, code, exclude)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateCode, code)
	}

	exists, err = repo.ExistsByNameInMajor(ctx, name, majorID, exclude)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: name %q, major budget line %s", domain.ErrDuplicateNamePerParent, name, majorID)
	}
	return nil
}

// GetBudgetLineName returns the name with its major budget line and budget line ofs
func (s *HierarchyService) GetBudgetLineName(ctx context.Context, id uuid.UUID) (*domain.BudgetLineName, error) {
	name, err := s.Store.BudgetLineNames().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lineOfs, err := s.Store.BudgetLineOfs().List(ctx, domain.BudgetLineOfFilter{
		ListParams:       domain.ListParams{Limit: -1},
		BudgetLineNameID: &id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list budget line ofs: %w", err)
	}
	for _, l := range lineOfs {
		l.BudgetLineName = nil
		name.BudgetLineOfs = append(name.BudgetLineOfs, *l)
	}

	return name, nil
}

// ListBudgetLineNames returns a page of budget line names matching filter
func (s *HierarchyService) ListBudgetLineNames(ctx context.Context, filter domain.BudgetLineNameFilter) (domain.Page[*domain.BudgetLineName], error) {
	filter.ListParams = filter.ListParams.Normalize()
	repo := s.Store.BudgetLineNames()

	return listing.Fetch(ctx, filter.ListParams,
		func(ctx context.Context) ([]*domain.BudgetLineName, error) { return repo.List(ctx, filter) },
		func(ctx context.Context) (int, error) { return repo.Count(ctx, filter) },
	)
}

// UpdateBudgetLineName changes code, name or parent, re-checking both uniqueness rules against other records
func (s *HierarchyService) UpdateBudgetLineName(ctx context.Context, input UpdateBudgetLineNameInput) (*domain.BudgetLineName, error) {
	var name *domain.BudgetLineName

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.BudgetLineNames()

		existing, err := repo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}

		if input.Code != nil && strings.TrimSpace(*input.Code) != "" {
			existing.Code = strings.TrimSpace(*input.Code)
		}
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			existing.Name = strings.ToLower(strings.TrimSpace(*input.Name))
		}
		if input.MajorBudgetLineID != nil && *input.MajorBudgetLineID != existing.MajorBudgetLineID {
			major, err := tx.MajorBudgetLines().GetByID(ctx, *input.MajorBudgetLineID)
			if err != nil {
				return err
			}
			existing.MajorBudgetLineID = major.ID
			existing.MajorBudgetLine = major
		}

		if err := checkNameUnique(ctx, repo, existing.Code, existing.Name, existing.MajorBudgetLineID, existing.ID); err != nil {
			return err
		}

		existing.UpdatedBy = input.Actor
		existing.UpdatedAt = s.now()
		if err := existing.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		name = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update budget line name: %w", err)
	}

	return name, nil
}

// DeleteBudgetLineName soft-deletes the record. It returns nil, nil when id does not exist.
func (s *HierarchyService) DeleteBudgetLineName(ctx context.Context, id uuid.UUID, actor string) (*domain.BudgetLineName, error) {
	return s.setNameActive(ctx, id, false, actor)
}

// RestoreBudgetLineName reverses DeleteBudgetLineName
func (s *HierarchyService) RestoreBudgetLineName(ctx context.Context, id uuid.UUID, actor string) (*domain.BudgetLineName, error) {
	return s.setNameActive(ctx, id, true, actor)
}

func (s *HierarchyService) setNameActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.BudgetLineName, error) {
	repo := s.Store.BudgetLineNames()

	err := repo.SetActive(ctx, id, active, actor, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set budget line name active=%t: %w", active, err)
	}

	return repo.GetByID(ctx, id)
}
