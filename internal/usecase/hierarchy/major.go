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

// CreateMajorBudgetLineInput represents the input for creating a major budget line
type CreateMajorBudgetLineInput struct {
	Code      string
	Name      string
	ServiceID string
	Actor     string
}

// UpdateMajorBudgetLineInput carries the fields to change; nil fields keep their value
type UpdateMajorBudgetLineInput struct {
	ID        uuid.UUID
	Code      *string
	Name      *string
	ServiceID *string
	Actor     string
}

// CreateMajorBudgetLine creates a root budget category
// Logic:
//  1. Lowercase the name
//  2. Reject a duplicate code, then a duplicate name
//  3. Number the record from the most recently created one
//  4. Save
func (s *HierarchyService) CreateMajorBudgetLine(ctx context.Context, input CreateMajorBudgetLineInput) (*domain.MajorBudgetLine, error) {
	now := s.now()
	line := &domain.MajorBudgetLine{
		ID:        uuid.New(),
		Code:      strings.TrimSpace(input.Code),
		Name:      strings.ToLower(strings.TrimSpace(input.Name)),
		ServiceID: input.ServiceID,
		Audit: domain.Audit{
			IsActive:  true,
			CreatedBy: input.Actor,
			UpdatedBy: input.Actor,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := line.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.MajorBudgetLines()

		numRef, err := nextRef(ctx, tx, domain.SequenceMajorBudgetLine, repo.LastNumRef, now)
		if err != nil {
			return err
		}
		line.NumRef = numRef

		if err := checkMajorUnique(ctx, repo, line.Code, line.Name, uuid.Nil); err != nil {
			return err
		}
		return repo.Create(ctx, line)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create major budget line: %w", err)
	}

	return line, nil
}

func checkMajorUnique(ctx context.Context, repo domain.MajorBudgetLineRepository, code, name string, exclude uuid.UUID) error {
	exists, err := repo.ExistsByCode(ctx, code, exclude)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateCode, code)
	}

	exists, err = repo.ExistsByName(ctx, name, exclude)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
	}
	return nil
}

// GetMajorBudgetLine returns the major budget line with its budget line names
func (s *HierarchyService) GetMajorBudgetLine(ctx context.Context, id uuid.UUID) (*domain.MajorBudgetLine, error) {
	line, err := s.Store.MajorBudgetLines().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	names, err := s.Store.BudgetLineNames().List(ctx, domain.BudgetLineNameFilter{
		ListParams:        domain.ListParams{Limit: -1},
		MajorBudgetLineID: &id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list budget line names: %w", err)
	}
	for _, name := range names {
		name.MajorBudgetLine = nil
		line.BudgetLineNames = append(line.BudgetLineNames, *name)
	}

	return line, nil
}

// ListMajorBudgetLines returns a page of major budget lines matching filter
func (s *HierarchyService) ListMajorBudgetLines(ctx context.Context, filter domain.MajorBudgetLineFilter) (domain.Page[*domain.MajorBudgetLine], error) {
	filter.ListParams = filter.ListParams.Normalize()
	repo := s.Store.MajorBudgetLines()

	return listing.Fetch(ctx, filter.ListParams,
		func(ctx context.Context) ([]*domain.MajorBudgetLine, error) { return repo.List(ctx, filter) },
		func(ctx context.Context) (int, error) { return repo.Count(ctx, filter) },
	)
}

// UpdateMajorBudgetLine changes code, name or service.
// Code and name uniqueness is re-checked only when they change.
func (s *HierarchyService) UpdateMajorBudgetLine(ctx context.Context, input UpdateMajorBudgetLineInput) (*domain.MajorBudgetLine, error) {
	var line *domain.MajorBudgetLine

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.MajorBudgetLines()

		existing, err := repo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}

		code, name := existing.Code, existing.Name
		if input.Code != nil && strings.TrimSpace(*input.Code) != "" {
			code = strings.TrimSpace(*input.Code)
		}
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			name = strings.ToLower(strings.TrimSpace(*input.Name))
		}

		if code != existing.Code {
			exists, err := repo.ExistsByCode(ctx, code, existing.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateCode, code)
			}
		}
		if name != existing.Name {
			exists, err := repo.ExistsByName(ctx, name, existing.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
			}
		}

		existing.Code, existing.Name = code, name
		if input.ServiceID != nil && *input.ServiceID != "" {
			existing.ServiceID = *input.ServiceID
		}
		existing.UpdatedBy = input.Actor
		existing.UpdatedAt = s.now()

		if err := existing.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		line = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update major budget line: %w", err)
	}

	return line, nil
}

// DeleteMajorBudgetLine soft-deletes the record. It returns nil, nil when id does not exist.
func (s *HierarchyService) DeleteMajorBudgetLine(ctx context.Context, id uuid.UUID, actor string) (*domain.MajorBudgetLine, error) {
	return s.setMajorActive(ctx, id, false, actor)
}

// RestoreMajorBudgetLine reverses DeleteMajorBudgetLine
func (s *HierarchyService) RestoreMajorBudgetLine(ctx context.Context, id uuid.UUID, actor string) (*domain.MajorBudgetLine, error) {
	return s.setMajorActive(ctx, id, true, actor)
}

func (s *HierarchyService) setMajorActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.MajorBudgetLine, error) {
	repo := s.Store.MajorBudgetLines()

	err := repo.SetActive(ctx, id, active, actor, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set major budget line active=%t: %w", active, err)
	}

	return repo.GetByID(ctx, id)
}
