package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// breakdownRepo implements domain.BreakdownRepository
type breakdownRepo struct{ s *Store }

func breakdownKey(b domain.Breakdown) (uuid.UUID, time.Time) { return b.ID, b.CreatedAt }

// detail joins the hierarchy names above b
func (d *data) detail(b domain.Breakdown) domain.BreakdownDetail {
	out := domain.BreakdownDetail{Breakdown: b}
	if l, ok := d.lineOfs[b.BudgetLineOfID]; ok {
		out.BudgetLineOfNumRef = l.NumRef
		if n, ok := d.names[l.BudgetLineNameID]; ok {
			out.BudgetLineNameID = n.ID
			out.BudgetLineName = n.Name
			if m, ok := d.majors[n.MajorBudgetLineID]; ok {
				out.MajorBudgetLineID = m.ID
				out.MajorBudgetLineName = m.Name
			}
		}
	}
	return out
}

func (r *breakdownRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Breakdown, error) {
	var out *domain.Breakdown
	err := r.s.do(func(d *data) error {
		b, ok := d.breakdowns[id]
		if !ok {
			return notFound("breakdown", id)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *breakdownRepo) LockByID(ctx context.Context, id uuid.UUID) (*domain.Breakdown, error) {
	return r.GetByID(ctx, id)
}

func (r *breakdownRepo) GetDetail(ctx context.Context, id uuid.UUID) (*domain.BreakdownDetail, error) {
	var out *domain.BreakdownDetail
	err := r.s.do(func(d *data) error {
		b, ok := d.breakdowns[id]
		if !ok {
			return notFound("breakdown", id)
		}
		detail := d.detail(b)
		out = &detail
		return nil
	})
	return out, err
}

func (r *breakdownRepo) ExistsForMonth(ctx context.Context, budgetLineOfID uuid.UUID, month domain.Month, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, b := range d.breakdowns {
			if id != exclude && b.BudgetLineOfID == budgetLineOfID && b.Month == month {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *breakdownRepo) LastNumRef(ctx context.Context) (string, error) {
	var ref string
	err := r.s.do(func(d *data) error {
		ref = lastNumRef(d, d.breakdowns, func(b domain.Breakdown) (uuid.UUID, time.Time, string) {
			return b.ID, b.CreatedAt, b.NumRef
		})
		return nil
	})
	return ref, err
}

func (r *breakdownRepo) Create(ctx context.Context, breakdown *domain.Breakdown) error {
	return r.s.do(func(d *data) error {
		d.breakdowns[breakdown.ID] = *breakdown
		d.track(breakdown.ID)
		return nil
	})
}

func (r *breakdownRepo) Update(ctx context.Context, breakdown *domain.Breakdown) error {
	return r.s.do(func(d *data) error {
		existing, ok := d.breakdowns[breakdown.ID]
		if !ok {
			return notFound("breakdown", breakdown.ID)
		}
		stored := *breakdown
		stored.CreatedAt, stored.CreatedBy = existing.CreatedAt, existing.CreatedBy
		d.breakdowns[breakdown.ID] = stored
		return nil
	})
}

func (r *breakdownRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return r.s.do(func(d *data) error {
		b, ok := d.breakdowns[id]
		if !ok {
			return notFound("breakdown", id)
		}
		b.IsActive, b.UpdatedBy, b.UpdatedAt = active, actor, at
		d.breakdowns[id] = b
		return nil
	})
}

func (r *breakdownRepo) ListByBudgetLineOf(ctx context.Context, budgetLineOfID uuid.UUID) ([]domain.Breakdown, error) {
	out := []domain.Breakdown{}
	err := r.s.do(func(d *data) error {
		for _, b := range d.breakdowns {
			if b.BudgetLineOfID == budgetLineOfID {
				out = append(out, b)
			}
		}
		sortByMonth(d, out)
		return nil
	})
	return out, err
}

// sortByMonth orders breakdowns by calendar month, then creation
func sortByMonth(d *data, items []domain.Breakdown) {
	sortByCreation(d, items, breakdownKey, false)
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Month.Index() < items[j-1].Month.Index(); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func (r *breakdownRepo) filter(d *data, f domain.BreakdownFilter) []domain.Breakdown {
	months := make(map[domain.Month]bool, len(f.Months))
	for _, m := range f.Months {
		months[m] = true
	}

	var out []domain.Breakdown
	for _, b := range d.breakdowns {
		if !activeMatches(f.IsActive, b.IsActive) {
			continue
		}
		if f.BudgetLineOfID != nil && b.BudgetLineOfID != *f.BudgetLineOfID {
			continue
		}
		if len(months) > 0 && !months[b.Month] {
			continue
		}
		if !containsFold(b.NumRef, f.NumRefContains) {
			continue
		}
		out = append(out, b)
	}
	sortByCreation(d, out, breakdownKey, f.Desc)
	return out
}

func (r *breakdownRepo) List(ctx context.Context, f domain.BreakdownFilter) ([]*domain.Breakdown, error) {
	f.ListParams = f.ListParams.Normalize()
	var out []*domain.Breakdown
	err := r.s.do(func(d *data) error {
		for _, b := range paginate(r.filter(d, f), f.ListParams) {
			out = append(out, &b)
		}
		return nil
	})
	return out, err
}

func (r *breakdownRepo) Count(ctx context.Context, f domain.BreakdownFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	var n int
	err := r.s.do(func(d *data) error {
		n = len(r.filter(d, f))
		return nil
	})
	return n, err
}
