package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
	"github.com/simaogato/budgetline-backend/internal/usecase/listing"
)

// Month range operations accepted by SelectMonths
const (
	OperationUpTo = "inf" // January through the given month
	OperationFrom = "sup" // the given month through December
)

// LedgerService guards the amounts of monthly breakdowns
type LedgerService struct {
	Store      domain.Store
	Transactor domain.Transactor
	Clock      func() time.Time
	Logger     *applog.Logger
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(store domain.Store, transactor domain.Transactor) *LedgerService {
	return &LedgerService{
		Store:      store,
		Transactor: transactor,
		Clock:      time.Now,
		Logger:     applog.Discard().WithComponent(applog.ComponentLedger),
	}
}

func (s *LedgerService) now() time.Time {
	return s.Clock().UTC()
}

// CreateBreakdownInput represents the input for creating a breakdown
type CreateBreakdownInput struct {
	BudgetLineOfID      uuid.UUID
	Month               domain.Month
	EstimatedAmount     decimal.Decimal
	RealAmount          decimal.Decimal
	PurchaseOrderAmount decimal.Decimal
	Actor               string
}

// UpdateBreakdownInput carries the fields to change. Nil fields keep their value.
// Amount, when set, settles that much of the purchase-order balance into the real amount.
type UpdateBreakdownInput struct {
	ID                  uuid.UUID
	BudgetLineOfID      *uuid.UUID
	Month               *domain.Month
	EstimatedAmount     *decimal.Decimal
	RealAmount          *decimal.Decimal
	PurchaseOrderAmount *decimal.Decimal
	Amount              *decimal.Decimal
	Actor               string
}

// CreateBreakdown adds one month of allocation to a budget line of
// Logic:
//  1. Check the budget line of exists
//  2. Reject a second breakdown for the same month
//  3. Number the record and save it with amounts rounded to 2 places
func (s *LedgerService) CreateBreakdown(ctx context.Context, input CreateBreakdownInput) (*domain.Breakdown, error) {
	now := s.now()
	breakdown := &domain.Breakdown{
		ID:                  uuid.New(),
		BudgetLineOfID:      input.BudgetLineOfID,
		Month:               input.Month,
		EstimatedAmount:     domain.RoundAmount(input.EstimatedAmount),
		RealAmount:          domain.RoundAmount(input.RealAmount),
		PurchaseOrderAmount: domain.RoundAmount(input.PurchaseOrderAmount),
		Audit: domain.Audit{
			IsActive:  true,
			CreatedBy: input.Actor,
			UpdatedBy: input.Actor,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := breakdown.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := domain.CheckUsage(breakdown.EstimatedAmount, breakdown.RealAmount, breakdown.PurchaseOrderAmount); err != nil {
		return nil, err
	}

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.Breakdowns()

		if _, err := tx.BudgetLineOfs().GetByID(ctx, breakdown.BudgetLineOfID); err != nil {
			return err
		}
		if err := checkMonthFree(ctx, repo, breakdown.BudgetLineOfID, breakdown.Month, uuid.Nil); err != nil {
			return err
		}

		if err := tx.LockSequence(ctx, domain.SequenceBreakdown); err != nil {
			return err
		}
		lastRef, err := repo.LastNumRef(ctx)
		if err != nil {
			return err
		}
		breakdown.NumRef = domain.NextRef(lastRef, now)

		return repo.Create(ctx, breakdown)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create breakdown: %w", err)
	}

	return breakdown, nil
}

func checkMonthFree(ctx context.Context, repo domain.BreakdownRepository, lineOfID uuid.UUID, month domain.Month, exclude uuid.UUID) error {
	exists, err := repo.ExistsForMonth(ctx, lineOfID, month, exclude)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: budget line of %s, month %s", domain.ErrDuplicateMonth, lineOfID, month)
	}
	return nil
}

// UpdateBreakdown applies an amount update or a settlement to a breakdown.
// Logic:
//  1. Lock the row for the rest of the transaction
//  2. If realAmount or purchaseOrderAmount is supplied, the current date must not precede the record's period
//  3. Settle Amount out of the purchase-order balance when supplied
//  4. Resolve each amount: explicit value, then settled value, then existing value
//  5. When any amount was supplied, real + purchaseOrder must stay within estimated
//  6. Moving the breakdown to another month or line of re-checks month uniqueness
func (s *LedgerService) UpdateBreakdown(ctx context.Context, input UpdateBreakdownInput) (*domain.BreakdownDetail, error) {
	now := s.now()

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		repo := tx.Breakdowns()

		existing, err := repo.LockByID(ctx, input.ID)
		if err != nil {
			return err
		}

		usageChanged := input.RealAmount != nil || input.PurchaseOrderAmount != nil
		if usageChanged {
			if err := existing.CheckTemporal(now); err != nil {
				return err
			}
		}

		settled := *existing
		if input.Amount != nil {
			if err := settled.Settle(*input.Amount); err != nil {
				return err
			}
		}

		updated := settled
		if input.EstimatedAmount != nil {
			updated.EstimatedAmount = domain.RoundAmount(*input.EstimatedAmount)
		}
		if input.RealAmount != nil {
			updated.RealAmount = domain.RoundAmount(*input.RealAmount)
		}
		if input.PurchaseOrderAmount != nil {
			updated.PurchaseOrderAmount = domain.RoundAmount(*input.PurchaseOrderAmount)
		}

		if usageChanged || input.EstimatedAmount != nil {
			if err := domain.CheckUsage(updated.EstimatedAmount, updated.RealAmount, updated.PurchaseOrderAmount); err != nil {
				return err
			}
		}

		if input.BudgetLineOfID != nil {
			updated.BudgetLineOfID = *input.BudgetLineOfID
		}
		if input.Month != nil {
			updated.Month = *input.Month
		}
		if updated.BudgetLineOfID != existing.BudgetLineOfID {
			if _, err := tx.BudgetLineOfs().GetByID(ctx, updated.BudgetLineOfID); err != nil {
				return err
			}
		}
		if updated.BudgetLineOfID != existing.BudgetLineOfID || updated.Month != existing.Month {
			if err := checkMonthFree(ctx, repo, updated.BudgetLineOfID, updated.Month, existing.ID); err != nil {
				return err
			}
		}

		updated.UpdatedBy = input.Actor
		updated.UpdatedAt = now
		if err := updated.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return repo.Update(ctx, &updated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update breakdown: %w", err)
	}

	if input.Amount != nil {
		s.Logger.InfoContext(ctx, "purchase order settled",
			applog.FieldID, input.ID, applog.FieldActor, input.Actor, "amount", input.Amount.StringFixed(domain.AmountPlaces))
	}
	return s.Store.Breakdowns().GetDetail(ctx, input.ID)
}

// GetBreakdown returns the breakdown with the hierarchy names above it
func (s *LedgerService) GetBreakdown(ctx context.Context, id uuid.UUID) (*domain.BreakdownDetail, error) {
	return s.Store.Breakdowns().GetDetail(ctx, id)
}

// ListBreakdowns returns a page of breakdowns matching filter
func (s *LedgerService) ListBreakdowns(ctx context.Context, filter domain.BreakdownFilter) (domain.Page[*domain.Breakdown], error) {
	filter.ListParams = filter.ListParams.Normalize()
	repo := s.Store.Breakdowns()

	return listing.Fetch(ctx, filter.ListParams,
		func(ctx context.Context) ([]*domain.Breakdown, error) { return repo.List(ctx, filter) },
		func(ctx context.Context) (int, error) { return repo.Count(ctx, filter) },
	)
}

// SelectMonths turns the month query of a breakdown listing into a month set.
// An empty month selects every month. With OperationUpTo the range runs from
// January, with OperationFrom it runs to December, otherwise endMonth closes it.
func SelectMonths(month, endMonth, operation string) ([]domain.Month, error) {
	if strings.TrimSpace(month) == "" {
		return nil, nil
	}
	start, err := domain.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(operation) {
	case OperationUpTo:
		return domain.MonthsBetween(domain.MonthJanvier, start)
	case OperationFrom:
		return domain.MonthsBetween(start, domain.MonthDecembre)
	}

	if strings.TrimSpace(endMonth) == "" {
		return []domain.Month{start}, nil
	}
	end, err := domain.ParseMonth(endMonth)
	if err != nil {
		return nil, err
	}
	return domain.MonthsBetween(start, end)
}

// DeleteBreakdown soft-deletes the record. It returns nil, nil when id does not exist.
func (s *LedgerService) DeleteBreakdown(ctx context.Context, id uuid.UUID, actor string) (*domain.BreakdownDetail, error) {
	return s.setActive(ctx, id, false, actor)
}

// RestoreBreakdown reverses DeleteBreakdown
func (s *LedgerService) RestoreBreakdown(ctx context.Context, id uuid.UUID, actor string) (*domain.BreakdownDetail, error) {
	return s.setActive(ctx, id, true, actor)
}

func (s *LedgerService) setActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.BreakdownDetail, error) {
	repo := s.Store.Breakdowns()

	err := repo.SetActive(ctx, id, active, actor, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set breakdown active=%t: %w", active, err)
	}

	return repo.GetDetail(ctx, id)
}
