package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

// data is the whole in-memory database. Entities are stored by value without
// their populated relations, so a shallow map copy is a full snapshot.
type data struct {
	majors      map[uuid.UUID]domain.MajorBudgetLine
	names       map[uuid.UUID]domain.BudgetLineName
	lineOfs     map[uuid.UUID]domain.BudgetLineOf
	breakdowns  map[uuid.UUID]domain.Breakdown
	derogations map[uuid.UUID]domain.Derogation
	lines       map[uuid.UUID]domain.DerogationLine

	// insertion order, breaks CreatedAt ties
	order map[uuid.UUID]int64
	next  int64
}

func newData() *data {
	return &data{
		majors:      map[uuid.UUID]domain.MajorBudgetLine{},
		names:       map[uuid.UUID]domain.BudgetLineName{},
		lineOfs:     map[uuid.UUID]domain.BudgetLineOf{},
		breakdowns:  map[uuid.UUID]domain.Breakdown{},
		derogations: map[uuid.UUID]domain.Derogation{},
		lines:       map[uuid.UUID]domain.DerogationLine{},
		order:       map[uuid.UUID]int64{},
	}
}

func (d *data) clone() *data {
	return &data{
		majors:      cloneMap(d.majors),
		names:       cloneMap(d.names),
		lineOfs:     cloneMap(d.lineOfs),
		breakdowns:  cloneMap(d.breakdowns),
		derogations: cloneMap(d.derogations),
		lines:       cloneMap(d.lines),
		order:       cloneMap(d.order),
		next:        d.next,
	}
}

func (d *data) track(id uuid.UUID) {
	d.next++
	d.order[id] = d.next
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type state struct {
	mu   sync.Mutex
	data *data
}

// Store is an in-memory implementation of domain.Store and domain.Transactor.
// Transactions are serialised: a transaction holds the store lock from start to
// commit, and a failed transaction restores the snapshot taken when it began.
type Store struct {
	state *state
	inTx  bool
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{state: &state{data: newData()}}
}

// do runs fn against the data, taking the lock unless the caller already holds it
func (s *Store) do(fn func(d *data) error) error {
	if !s.inTx {
		s.state.mu.Lock()
		defer s.state.mu.Unlock()
	}
	return fn(s.state.data)
}

// WithinTransaction runs fn atomically. A nested call joins the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snapshot := s.state.data.clone()
	if err := fn(&Store{state: s.state, inTx: true}); err != nil {
		s.state.data = snapshot
		return err
	}
	return nil
}

// LockSequence is a no-op: every transaction already holds the store lock
func (s *Store) LockSequence(ctx context.Context, name string) error {
	return nil
}

func (s *Store) MajorBudgetLines() domain.MajorBudgetLineRepository { return &majorRepo{s} }
func (s *Store) BudgetLineNames() domain.BudgetLineNameRepository   { return &nameRepo{s} }
func (s *Store) BudgetLineOfs() domain.BudgetLineOfRepository       { return &lineOfRepo{s} }
func (s *Store) Breakdowns() domain.BreakdownRepository             { return &breakdownRepo{s} }
func (s *Store) Derogations() domain.DerogationRepository           { return &derogationRepo{s} }
func (s *Store) DerogationLines() domain.DerogationLineRepository   { return &lineRepo{s} }
func (s *Store) Analysis() domain.AnalysisRepository                { return &analysisRepo{s} }

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.Transactor = (*Store)(nil)
)

func notFound(entity string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func activeMatches(isActive *bool, active bool) bool {
	return isActive == nil || *isActive == active
}

// sortByCreation orders items oldest first (newest first when desc)
func sortByCreation[T any](d *data, items []T, key func(T) (uuid.UUID, time.Time), desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		idI, atI := key(items[i])
		idJ, atJ := key(items[j])
		var less bool
		if atI.Equal(atJ) {
			less = d.order[idI] < d.order[idJ]
		} else {
			less = atI.Before(atJ)
		}
		if desc {
			return !less
		}
		return less
	})
}

// paginate applies limit/offset; a negative limit returns everything
func paginate[T any](items []T, p domain.ListParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit >= 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// lastNumRef returns the NumRef of the most recently created item
func lastNumRef[T any](d *data, items map[uuid.UUID]T, key func(T) (uuid.UUID, time.Time, string)) string {
	var (
		best    string
		bestAt  time.Time
		bestSeq int64 = -1
	)
	for _, item := range items {
		id, at, ref := key(item)
		seq := d.order[id]
		if bestSeq < 0 || at.After(bestAt) || (at.Equal(bestAt) && seq > bestSeq) {
			best, bestAt, bestSeq = ref, at, seq
		}
	}
	return best
}
