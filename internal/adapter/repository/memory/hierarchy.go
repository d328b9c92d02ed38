package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// majorRepo implements domain.MajorBudgetLineRepository
type majorRepo struct{ s *Store }

func majorKey(m domain.MajorBudgetLine) (uuid.UUID, time.Time) { return m.ID, m.CreatedAt }

func (r *majorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MajorBudgetLine, error) {
	var out *domain.MajorBudgetLine
	err := r.s.do(func(d *data) error {
		m, ok := d.majors[id]
		if !ok {
			return notFound("major budget line", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *majorRepo) ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, m := range d.majors {
			if id != exclude && m.Code == code {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *majorRepo) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, m := range d.majors {
			if id != exclude && m.Name == name {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *majorRepo) LastNumRef(ctx context.Context) (string, error) {
	var ref string
	err := r.s.do(func(d *data) error {
		ref = lastNumRef(d, d.majors, func(m domain.MajorBudgetLine) (uuid.UUID, time.Time, string) {
			return m.ID, m.CreatedAt, m.NumRef
		})
		return nil
	})
	return ref, err
}

func (r *majorRepo) Create(ctx context.Context, line *domain.MajorBudgetLine) error {
	return r.s.do(func(d *data) error {
		stored := *line
		stored.BudgetLineNames = nil
		d.majors[line.ID] = stored
		d.track(line.ID)
		return nil
	})
}

func (r *majorRepo) Update(ctx context.Context, line *domain.MajorBudgetLine) error {
	return r.s.do(func(d *data) error {
		existing, ok := d.majors[line.ID]
		if !ok {
			return notFound("major budget line", line.ID)
		}
		stored := *line
		stored.BudgetLineNames = nil
		stored.CreatedAt, stored.CreatedBy = existing.CreatedAt, existing.CreatedBy
		d.majors[line.ID] = stored
		return nil
	})
}

func (r *majorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return r.s.do(func(d *data) error {
		m, ok := d.majors[id]
		if !ok {
			return notFound("major budget line", id)
		}
		m.IsActive, m.UpdatedBy, m.UpdatedAt = active, actor, at
		d.majors[id] = m
		return nil
	})
}

func (r *majorRepo) filter(d *data, f domain.MajorBudgetLineFilter) []domain.MajorBudgetLine {
	var out []domain.MajorBudgetLine
	for _, m := range d.majors {
		if !activeMatches(f.IsActive, m.IsActive) {
			continue
		}
		if f.ServiceID != "" && m.ServiceID != f.ServiceID {
			continue
		}
		if f.Code != "" && m.Code != f.Code {
			continue
		}
		if !containsFold(m.Name, f.NameContains) || !containsFold(m.NumRef, f.NumRefContains) {
			continue
		}
		out = append(out, m)
	}
	sortByCreation(d, out, majorKey, f.Desc)
	return out
}

func (r *majorRepo) List(ctx context.Context, f domain.MajorBudgetLineFilter) ([]*domain.MajorBudgetLine, error) {
	f.ListParams = f.ListParams.Normalize()
	var out []*domain.MajorBudgetLine
	err := r.s.do(func(d *data) error {
		for _, m := range paginate(r.filter(d, f), f.ListParams) {
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

func (r *majorRepo) Count(ctx context.Context, f domain.MajorBudgetLineFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	var n int
	err := r.s.do(func(d *data) error {
		n = len(r.filter(d, f))
		return nil
	})
	return n, err
}

// nameRepo implements domain.BudgetLineNameRepository
type nameRepo struct{ s *Store }

func nameKey(n domain.BudgetLineName) (uuid.UUID, time.Time) { return n.ID, n.CreatedAt }

func (r *nameRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLineName, error) {
	var out *domain.BudgetLineName
	err := r.s.do(func(d *data) error {
		n, ok := d.names[id]
		if !ok {
			return notFound("budget line name", id)
		}
		if m, ok := d.majors[n.MajorBudgetLineID]; ok {
			n.MajorBudgetLine = &m
		}
		out = &n
		return nil
	})
	return out, err
}

func (r *nameRepo) ExistsByCode(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, n := range d.names {
			if id != exclude && n.Code == code {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *nameRepo) ExistsByNameInMajor(ctx context.Context, name string, majorBudgetLineID, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, n := range d.names {
			if id != exclude && n.Name == name && n.MajorBudgetLineID == majorBudgetLineID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *nameRepo) LastNumRef(ctx context.Context) (string, error) {
	var ref string
	err := r.s.do(func(d *data) error {
		ref = lastNumRef(d, d.names, func(n domain.BudgetLineName) (uuid.UUID, time.Time, string) {
			return n.ID, n.CreatedAt, n.NumRef
		})
		return nil
	})
	return ref, err
}

func (r *nameRepo) Create(ctx context.Context, name *domain.BudgetLineName) error {
	return r.s.do(func(d *data) error {
		stored := *name
		stored.MajorBudgetLine, stored.BudgetLineOfs = nil, nil
		d.names[name.ID] = stored
		d.track(name.ID)
		return nil
	})
}

func (r *nameRepo) Update(ctx context.Context, name *domain.BudgetLineName) error {
	return r.s.do(func(d *data) error {
		existing, ok := d.names[name.ID]
		if !ok {
			return notFound("budget line name", name.ID)
		}
		stored := *name
		stored.MajorBudgetLine, stored.BudgetLineOfs = nil, nil
		stored.CreatedAt, stored.CreatedBy = existing.CreatedAt, existing.CreatedBy
		d.names[name.ID] = stored
		return nil
	})
}

func (r *nameRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return r.s.do(func(d *data) error {
		n, ok := d.names[id]
		if !ok {
			return notFound("budget line name", id)
		}
		n.IsActive, n.UpdatedBy, n.UpdatedAt = active, actor, at
		d.names[id] = n
		return nil
	})
}

func (r *nameRepo) filter(d *data, f domain.BudgetLineNameFilter) []domain.BudgetLineName {
	var out []domain.BudgetLineName
	for _, n := range d.names {
		if !activeMatches(f.IsActive, n.IsActive) {
			continue
		}
		if f.MajorBudgetLineID != nil && n.MajorBudgetLineID != *f.MajorBudgetLineID {
			continue
		}
		if f.Code != "" && n.Code != f.Code {
			continue
		}
		if !containsFold(n.Name, f.NameContains) || !containsFold(n.NumRef, f.NumRefContains) {
			continue
		}
		out = append(out, n)
	}
	sortByCreation(d, out, nameKey, f.Desc)
	return out
}

func (r *nameRepo) List(ctx context.Context, f domain.BudgetLineNameFilter) ([]*domain.BudgetLineName, error) {
	f.ListParams = f.ListParams.Normalize()
	var out []*domain.BudgetLineName
	err := r.s.do(func(d *data) error {
		for _, n := range paginate(r.filter(d, f), f.ListParams) {
			if m, ok := d.majors[n.MajorBudgetLineID]; ok {
				n.MajorBudgetLine = &m
			}
			out = append(out, &n)
		}
		return nil
	})
	return out, err
}

func (r *nameRepo) Count(ctx context.Context, f domain.BudgetLineNameFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	var n int
	err := r.s.do(func(d *data) error {
		n = len(r.filter(d, f))
		return nil
	})
	return n, err
}

// lineOfRepo implements domain.BudgetLineOfRepository
type lineOfRepo struct{ s *Store }

func lineOfKey(l domain.BudgetLineOf) (uuid.UUID, time.Time) { return l.ID, l.CreatedAt }

func (d *data) withName(l domain.BudgetLineOf) domain.BudgetLineOf {
	if n, ok := d.names[l.BudgetLineNameID]; ok {
		if m, ok := d.majors[n.MajorBudgetLineID]; ok {
			n.MajorBudgetLine = &m
		}
		l.BudgetLineName = &n
	}
	return l
}

func (r *lineOfRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLineOf, error) {
	var out *domain.BudgetLineOf
	err := r.s.do(func(d *data) error {
		l, ok := d.lineOfs[id]
		if !ok {
			return notFound("budget line of", id)
		}
		l = d.withName(l)
		out = &l
		return nil
	})
	return out, err
}

func (r *lineOfRepo) ExistsForNameInWindow(ctx context.Context, budgetLineNameID uuid.UUID, from, to time.Time, exclude uuid.UUID, activeOnly bool) (bool, error) {
	var found bool
	err := r.s.do(func(d *data) error {
		for id, l := range d.lineOfs {
			if id == exclude || l.BudgetLineNameID != budgetLineNameID {
				continue
			}
			if activeOnly && !l.IsActive {
				continue
			}
			if !l.CreatedAt.Before(from) && l.CreatedAt.Before(to) {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *lineOfRepo) LastNumRef(ctx context.Context) (string, error) {
	var ref string
	err := r.s.do(func(d *data) error {
		ref = lastNumRef(d, d.lineOfs, func(l domain.BudgetLineOf) (uuid.UUID, time.Time, string) {
			return l.ID, l.CreatedAt, l.NumRef
		})
		return nil
	})
	return ref, err
}

func (r *lineOfRepo) Create(ctx context.Context, line *domain.BudgetLineOf) error {
	return r.s.do(func(d *data) error {
		stored := *line
		stored.BudgetLineName, stored.Breakdowns = nil, nil
		d.lineOfs[line.ID] = stored
		d.track(line.ID)
		return nil
	})
}

func (r *lineOfRepo) Update(ctx context.Context, line *domain.BudgetLineOf) error {
	return r.s.do(func(d *data) error {
		existing, ok := d.lineOfs[line.ID]
		if !ok {
			return notFound("budget line of", line.ID)
		}
		stored := *line
		stored.BudgetLineName, stored.Breakdowns = nil, nil
		stored.CreatedAt, stored.CreatedBy = existing.CreatedAt, existing.CreatedBy
		d.lineOfs[line.ID] = stored
		return nil
	})
}

func (r *lineOfRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string, at time.Time) error {
	return r.s.do(func(d *data) error {
		l, ok := d.lineOfs[id]
		if !ok {
			return notFound("budget line of", id)
		}
		l.IsActive, l.UpdatedBy, l.UpdatedAt = active, actor, at
		d.lineOfs[id] = l
		return nil
	})
}

func (r *lineOfRepo) filter(d *data, f domain.BudgetLineOfFilter) []domain.BudgetLineOf {
	var out []domain.BudgetLineOf
	for _, l := range d.lineOfs {
		if !activeMatches(f.IsActive, l.IsActive) {
			continue
		}
		if f.BudgetLineNameID != nil && l.BudgetLineNameID != *f.BudgetLineNameID {
			continue
		}
		if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && !l.CreatedAt.Before(*f.CreatedTo) {
			continue
		}
		if !containsFold(l.NumRef, f.NumRefContains) {
			continue
		}
		out = append(out, l)
	}
	sortByCreation(d, out, lineOfKey, f.Desc)
	return out
}

func (r *lineOfRepo) List(ctx context.Context, f domain.BudgetLineOfFilter) ([]*domain.BudgetLineOf, error) {
	f.ListParams = f.ListParams.Normalize()
	var out []*domain.BudgetLineOf
	err := r.s.do(func(d *data) error {
		for _, l := range paginate(r.filter(d, f), f.ListParams) {
			l = d.withName(l)
			out = append(out, &l)
		}
		return nil
	})
	return out, err
}

func (r *lineOfRepo) Count(ctx context.Context, f domain.BudgetLineOfFilter) (int, error) {
	f.ListParams = f.ListParams.Normalize()
	var n int
	err := r.s.do(func(d *data) error {
		n = len(r.filter(d, f))
		return nil
	})
	return n, err
}
