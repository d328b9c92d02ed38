package derogation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
	"github.com/simaogato/budgetline-backend/internal/usecase/listing"
)

// DerogationService moves estimated budget between breakdowns.
// Every create, delete and restore runs in a single transaction.
type DerogationService struct {
	Store      domain.Store
	Transactor domain.Transactor
	Publisher  domain.EventPublisher
	Clock      func() time.Time
	Logger     *applog.Logger
}

// NewDerogationService creates a new DerogationService instance.
// publisher may be nil, in which case no events are emitted.
func NewDerogationService(store domain.Store, transactor domain.Transactor, publisher domain.EventPublisher) *DerogationService {
	return &DerogationService{
		Store:      store,
		Transactor: transactor,
		Publisher:  publisher,
		Clock:      time.Now,
		Logger:     applog.Discard().WithComponent(applog.ComponentDerogation),
	}
}

func (s *DerogationService) now() time.Time {
	return s.Clock().UTC()
}

// CreateDerogationInput represents the input for creating a derogation
type CreateDerogationInput struct {
	Description string
	Lines       []domain.TransferLine
	Actor       string
}

// UpdateDerogationInput changes the description of a derogation
type UpdateDerogationInput struct {
	ID          uuid.UUID
	Description *string
	Actor       string
}

// CreateDerogation records a derogation and applies its transfer lines.
// Logic:
//  1. Validate the lines (positive amounts, no repeated debited/credited pair)
//  2. Number the derogation MMYY-NNNN from the count of derogations of the month
//  3. Insert the header
//  4. For each line in order: lock both breakdowns, check the debited estimated amount
//     covers the transfer, move the amount, insert the line as <numRef>-NN
//  5. Any failure rolls back the header, every line and every amount moved
func (s *DerogationService) CreateDerogation(ctx context.Context, input CreateDerogationInput) (*domain.Derogation, error) {
	if err := domain.ValidateTransferLines(input.Lines); err != nil {
		return nil, err
	}

	now := s.now()
	derogation := &domain.Derogation{
		ID:          uuid.New(),
		Description: strings.TrimSpace(input.Description),
		Audit: domain.Audit{
			IsActive:  true,
			CreatedBy: input.Actor,
			UpdatedBy: input.Actor,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		if err := tx.LockSequence(ctx, domain.SequenceDerogation); err != nil {
			return err
		}
		prefix := domain.RefPrefix(now)
		existing, err := tx.Derogations().CountByNumRefPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		derogation.NumRef = domain.DerogationRef(prefix, existing)

		if err := derogation.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if err := tx.Derogations().Create(ctx, derogation); err != nil {
			return err
		}

		for i, line := range input.Lines {
			if err := s.applyLine(ctx, tx, derogation, i, line, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.Logger.WarnContext(ctx, "derogation rolled back",
			applog.FieldActor, input.Actor, applog.FieldLines, len(input.Lines), applog.FieldError, err)
		return nil, fmt.Errorf("failed to create derogation: %w", err)
	}

	s.Logger.InfoContext(ctx, "derogation committed",
		applog.FieldID, derogation.ID, applog.FieldNumRef, derogation.NumRef, applog.FieldLines, len(input.Lines))

	created, err := s.GetDerogation(ctx, derogation.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.DerogationCreated, created, input.Actor, input.Lines)
	return created, nil
}

// applyLine moves one transfer line's amount and records the line
func (s *DerogationService) applyLine(ctx context.Context, tx domain.Store, derogation *domain.Derogation, index int, line domain.TransferLine, now time.Time) error {
	breakdowns := tx.Breakdowns()

	debited, err := breakdowns.LockByID(ctx, line.DebitedID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrDebitedNotFound, line.DebitedID)
	}
	if err != nil {
		return err
	}

	credited, err := breakdowns.LockByID(ctx, line.CreditedID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrCreditedNotFound, line.CreditedID)
	}
	if err != nil {
		return err
	}

	if debited.EstimatedAmount.LessThan(line.Amount) {
		return fmt.Errorf("%w: breakdown %s has %s, %s requested", domain.ErrInsufficientFunds,
			debited.ID, debited.EstimatedAmount.StringFixed(domain.AmountPlaces), line.Amount.StringFixed(domain.AmountPlaces))
	}

	debited.EstimatedAmount = domain.RoundAmount(debited.EstimatedAmount.Sub(line.Amount))
	debited.UpdatedBy, debited.UpdatedAt = derogation.CreatedBy, now
	if err := breakdowns.Update(ctx, debited); err != nil {
		return err
	}

	// A self-transfer must credit the row just debited, not the stale copy
	if credited.ID == debited.ID {
		credited = debited
	}
	credited.EstimatedAmount = domain.RoundAmount(credited.EstimatedAmount.Add(line.Amount))
	credited.UpdatedBy, credited.UpdatedAt = derogation.CreatedBy, now
	if err := breakdowns.Update(ctx, credited); err != nil {
		return err
	}

	return tx.DerogationLines().Create(ctx, &domain.DerogationLine{
		ID:           uuid.New(),
		NumRef:       domain.DerogationLineRef(derogation.NumRef, index),
		DerogationID: derogation.ID,
		DebitedID:    debited.ID,
		CreditedID:   credited.ID,
		Amount:       domain.RoundAmount(line.Amount),
		Audit:        derogation.Audit,
	})
}

// GetDerogation returns the derogation with its lines and their breakdown details
func (s *DerogationService) GetDerogation(ctx context.Context, id uuid.UUID) (*domain.Derogation, error) {
	return withLines(ctx, s.Store, id)
}

func withLines(ctx context.Context, store domain.Store, id uuid.UUID) (*domain.Derogation, error) {
	derogation, err := store.Derogations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	derogation.Lines, err = store.DerogationLines().ListByDerogation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list derogation lines: %w", err)
	}
	return derogation, nil
}

// ListDerogations returns a page of derogations, each with its lines
func (s *DerogationService) ListDerogations(ctx context.Context, filter domain.DerogationFilter) (domain.Page[*domain.Derogation], error) {
	filter.ListParams = filter.ListParams.Normalize()
	repo := s.Store.Derogations()

	page, err := listing.Fetch(ctx, filter.ListParams,
		func(ctx context.Context) ([]*domain.Derogation, error) { return repo.List(ctx, filter) },
		func(ctx context.Context) (int, error) { return repo.Count(ctx, filter) },
	)
	if err != nil {
		return page, err
	}

	for _, derogation := range page.Items {
		derogation.Lines, err = s.Store.DerogationLines().ListByDerogation(ctx, derogation.ID)
		if err != nil {
			return domain.Page[*domain.Derogation]{}, fmt.Errorf("failed to list derogation lines: %w", err)
		}
	}
	return page, nil
}

// UpdateDerogation changes the description. Lines and amounts are immutable once applied.
func (s *DerogationService) UpdateDerogation(ctx context.Context, input UpdateDerogationInput) (*domain.Derogation, error) {
	repo := s.Store.Derogations()

	existing, err := repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
		existing.Description = strings.ToLower(strings.TrimSpace(*input.Description))
	}
	existing.UpdatedBy = input.Actor
	existing.UpdatedAt = s.now()

	if err := existing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update derogation: %w", err)
	}

	updated, err := s.GetDerogation(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.DerogationUpdated, updated, input.Actor, nil)
	return updated, nil
}

// DeleteDerogation soft-deletes the derogation and all of its lines.
// It returns nil, nil when id does not exist.
func (s *DerogationService) DeleteDerogation(ctx context.Context, id uuid.UUID, actor string) (*domain.Derogation, error) {
	return s.setActive(ctx, id, false, actor)
}

// RestoreDerogation reverses DeleteDerogation for the derogation and all of its lines
func (s *DerogationService) RestoreDerogation(ctx context.Context, id uuid.UUID, actor string) (*domain.Derogation, error) {
	return s.setActive(ctx, id, true, actor)
}

// setActive flips the lines, then the parent, in one transaction with one shared stamp
func (s *DerogationService) setActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.Derogation, error) {
	now := s.now()
	var derogation *domain.Derogation

	err := s.Transactor.WithinTransaction(ctx, func(tx domain.Store) error {
		if _, err := tx.Derogations().GetByID(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DerogationLines().SetActiveByDerogation(ctx, id, active, actor, now); err != nil {
			return err
		}
		if err := tx.Derogations().SetActive(ctx, id, active, actor, now); err != nil {
			return err
		}

		var err error
		derogation, err = withLines(ctx, tx, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set derogation active=%t: %w", active, err)
	}

	eventType := domain.DerogationDeleted
	if active {
		eventType = domain.DerogationRestored
	}
	s.publish(ctx, eventType, derogation, actor, nil)
	return derogation, nil
}

// publish emits a committed transition. Delivery failures are logged only,
// the transition itself already stands.
func (s *DerogationService) publish(ctx context.Context, eventType domain.DerogationEventType, derogation *domain.Derogation, actor string, lines []domain.TransferLine) {
	if s.Publisher == nil {
		return
	}

	event := domain.DerogationEvent{
		Type:         eventType,
		DerogationID: derogation.ID,
		NumRef:       derogation.NumRef,
		Actor:        actor,
		IsActive:     derogation.IsActive,
		Lines:        lines,
		OccurredAt:   s.now(),
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.WithOperation(applog.OpPublish).Failure(ctx, "failed to publish derogation event", err,
			applog.FieldEvent, string(eventType), applog.FieldID, derogation.ID)
	}
}
