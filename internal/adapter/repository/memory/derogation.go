package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// derogationRepo implements domain.DerogationRepository
type derogationRepo struct{ s *Store }

func derogationKey(g domain.Derogation) (uuid.UUID, time.Time) { return g.ID, g.CreatedAt }

func (r *derogationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Derogation, error) {
	var out *domain.Derogation
	err := r.s.do(func(d *data) error {
		g, ok := d.derogations[id]
		if !ok {
			return notFound("derogation", id)
		}
		out = &g
		return nil
	})
	return out, err
}

func (r *derogationRepo) CountByNumRefPrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.s.do(func(d *data) error {
		for _, g := range d.derogations {
			if strings.HasPrefix(g.NumRef, prefix) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *derogationRepo) Create(ctx context.Context, derogation *domain.Derogation) error {
	return r.s.do(func(d *data) error {
		stored := *derogation
		stored.Lines = nil
		d.derogations[derogation.ID] = stored
		d.track(derogation.ID)
		return nil
	})
}

func (r *derogationRepo) Update(ctx context.Context, derogation *domain.Derogation) error {
	return r.s.do(func(d *data) error {
		existing, ok := d.derogations[derogation.ID]
		if !ok {
			return notFound("derogation", derogation.ID)
		}
		stored := *derogation
		stored.Lines = nil
		stored.CreatedAt, stored.CreatedBy = existing.CreatedAt, existing.CreatedBy
		d.derogations[derogation.ID] = stored
		return nil
	})
}

func (r *derogationRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return r.s.do(func(d *data) error {
		g, ok := d.derogations[id]
		if !ok {
			return notFound("derogation", id)
		}
		g.IsActive, g.UpdatedBy, g.UpdatedAt = active, actor, at
		d.derogations[id] = g
		return nil
	})
}

func (r *derogationRepo) filter(d *data, f domain.DerogationFilter) []domain.Derogation {
	var out []domain.Derogation
	for _, g := range d.derogations {
		if !activeMatches(f.IsActive, g.IsActive) {
			continue
		}
		if f.CreatedBy != "" && g.CreatedBy != f.CreatedBy {
			continue
		}
		if !containsFold(g.NumRef, f.NumRefContains) || !containsFold(g.Description, f.DescriptionContains) {
			continue
		}
		out = append(out, g)
	}
	sortByCreation(d, out, derogationKey, f.Desc)
	return out
}

func (r *derogationRepo) List(ctx context.Context, f domain.DerogationFilter) ([]*domain.Derogation, error) {
	f.ListParams = f.ListParams.Normalize()
	var out []*domain.Derogation
	err := r.s.do(func(d *data) error {
		for _, g := range paginate(r.filter(d, f), f.ListParams) {
			out = append(out, &g)
		}
		return nil
	})
	return out, err
}

func (r *derogationRepo) Count(ctx context.Context, f domain.DerogationFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	var n int
	err := r.s.do(func(d *data) error {
		n = len(r.filter(d, f))
		return nil
	})
	return n, err
}

// lineRepo implements domain.DerogationLineRepository
type lineRepo struct{ s *Store }

func (r *lineRepo) Create(ctx context.Context, line *domain.DerogationLine) error {
	return r.s.do(func(d *data) error {
		stored := *line
		stored.Debited, stored.Credited = nil, nil
		d.lines[line.ID] = stored
		d.track(line.ID)
		return nil
	})
}

func (r *lineRepo) ListByDerogation(ctx context.Context, derogationID uuid.UUID) ([]domain.DerogationLine, error) {
	out := []domain.DerogationLine{}
	err := r.s.do(func(d *data) error {
		for _, l := range d.lines {
			if l.DerogationID != derogationID {
				continue
			}
			if b, ok := d.breakdowns[l.DebitedID]; ok {
				detail := d.detail(b)
				l.Debited = &detail
			}
			if b, ok := d.breakdowns[l.CreditedID]; ok {
				detail := d.detail(b)
				l.Credited = &detail
			}
			out = append(out, l)
		}
		sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] < d.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r *lineRepo) SetActiveByDerogation(ctx context.Context, derogationID uuid.UUID, active bool, actor string, at time.Time) (int, error) {
	var n int
	err := r.s.do(func(d *data) error {
		for id, l := range d.lines {
			if l.DerogationID != derogationID {
				continue
			}
			l.IsActive, l.UpdatedBy, l.UpdatedAt = active, actor, at
			d.lines[id] = l
			n++
		}
		return nil
	})
	return n, err
}
