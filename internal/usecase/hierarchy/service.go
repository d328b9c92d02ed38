package hierarchy

import (
	"context"
	"time"

	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
)

// HierarchyService manages major budget lines, budget line names and budget line ofs
type HierarchyService struct {
	Store      domain.Store
	Transactor domain.Transactor
	Clock      func() time.Time
	Logger     *applog.Logger
}

// NewHierarchyService creates a new HierarchyService instance
func NewHierarchyService(store domain.Store, transactor domain.Transactor) *HierarchyService {
	return &HierarchyService{
		Store:      store,
		Transactor: transactor,
		Clock:      time.Now,
		Logger:     applog.Discard().WithComponent(applog.ComponentHierarchy),
	}
}

func (s *HierarchyService) now() time.Time {
	return s.Clock().UTC()
}

// nextRef locks the named sequence and derives the next reference number
// from the most recently created record.
func nextRef(ctx context.Context, tx domain.Store, sequence string, last func(context.Context) (string, error), now time.Time) (string, error) {
	if err := tx.LockSequence(ctx, sequence); err != nil {
		return "", err
	}
	lastRef, err := last(ctx)
	if err != nil {
		return "", err
	}
	return domain.NextRef(lastRef, now), nil
}
