package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func seedHierarchy(t *testing.T, s *Store) (domain.MajorBudgetLine, domain.BudgetLineName, domain.BudgetLineOf) {
	t.Helper()
	ctx := context.Background()

	major := domain.MajorBudgetLine{ID: uuid.New(), NumRef: "03250001", Code: "60", Name: "achats", ServiceID: "svc-1",
		Audit: domain.Audit{IsActive: true, CreatedAt: t0, UpdatedAt: t0}}
	require.NoError(t, s.MajorBudgetLines().Create(ctx, &major))

	name := domain.BudgetLineName{ID: uuid.New(), NumRef: "03250001", Code: "601", Name: "fournitures", MajorBudgetLineID: major.ID,
		Audit: domain.Audit{IsActive: true, CreatedAt: t0, UpdatedAt: t0}}
	require.NoError(t, s.BudgetLineNames().Create(ctx, &name))

	lineOf := domain.BudgetLineOf{ID: uuid.New(), NumRef: "03250001", BudgetLineNameID: name.ID,
		Audit: domain.Audit{IsActive: true, CreatedAt: t0, UpdatedAt: t0}}
	require.NoError(t, s.BudgetLineOfs().Create(ctx, &lineOf))

	return major, name, lineOf
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _, lineOf := seedHierarchy(t, s)

	boom := errors.New("boom")
	err := s.WithinTransaction(ctx, func(tx domain.Store) error {
		b := domain.Breakdown{ID: uuid.New(), BudgetLineOfID: lineOf.ID, Month: domain.MonthMars,
			EstimatedAmount: decimal.NewFromInt(10), Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
		if err := tx.Breakdowns().Create(ctx, &b); err != nil {
			return err
		}
		if err := tx.BudgetLineOfs().SetActive(ctx, lineOf.ID, false, "alice", t0); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)

	breakdowns, err := s.Breakdowns().ListByBudgetLineOf(ctx, lineOf.ID)
	require.NoError(t, err)
	assert.Empty(t, breakdowns)

	got, err := s.BudgetLineOfs().GetByID(ctx, lineOf.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestWithinTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _, lineOf := seedHierarchy(t, s)

	err := s.WithinTransaction(ctx, func(tx domain.Store) error {
		require.NoError(t, tx.LockSequence(ctx, domain.SequenceBreakdown))
		b := domain.Breakdown{ID: uuid.New(), BudgetLineOfID: lineOf.ID, Month: domain.MonthAvril,
			Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
		return tx.Breakdowns().Create(ctx, &b)
	})
	require.NoError(t, err)

	exists, err := s.Breakdowns().ExistsForMonth(ctx, lineOf.ID, domain.MonthAvril, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetByID_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Derogations().GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.Breakdowns().SetActive(context.Background(), uuid.New(), false, "bob", t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLastNumRef_UsesMostRecentRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	ref, err := s.MajorBudgetLines().LastNumRef(ctx)
	require.NoError(t, err)
	assert.Empty(t, ref)

	for i, numRef := range []string{"03250001", "03250002", "04250003"} {
		m := domain.MajorBudgetLine{ID: uuid.New(), NumRef: numRef, Code: numRef, Name: numRef,
			Audit: domain.Audit{IsActive: true, CreatedAt: t0.Add(time.Duration(i) * time.Minute)}}
		require.NoError(t, s.MajorBudgetLines().Create(ctx, &m))
	}

	ref, err = s.MajorBudgetLines().LastNumRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, "04250003", ref)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 5; i++ {
		m := domain.MajorBudgetLine{ID: uuid.New(), NumRef: uuid.NewString(), Code: uuid.NewString(), Name: uuid.NewString(),
			ServiceID: "svc-1", Audit: domain.Audit{IsActive: i != 4, CreatedAt: t0.Add(time.Duration(i) * time.Hour)}}
		require.NoError(t, s.MajorBudgetLines().Create(ctx, &m))
	}

	active := true
	filter := domain.MajorBudgetLineFilter{
		ListParams: domain.ListParams{Limit: 2, Offset: 1, IsActive: &active},
		ServiceID:  "svc-1",
	}

	page, err := s.MajorBudgetLines().List(ctx, filter)
	require.NoError(t, err)
	total, err := s.MajorBudgetLines().Count(ctx, filter)
	require.NoError(t, err)

	assert.Len(t, page, 2)
	assert.Equal(t, 4, total)
	assert.True(t, page[0].CreatedAt.Before(page[1].CreatedAt))

	all, err := s.MajorBudgetLines().List(ctx, domain.MajorBudgetLineFilter{ListParams: domain.ListParams{Limit: -1}})
	require.NoError(t, err)
	assert.Len(t, all, 4, "an unpaginated list only returns active records")
}

func TestDerogationLines_CascadeAndDetail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	major, name, lineOf := seedHierarchy(t, s)

	debited := domain.Breakdown{ID: uuid.New(), NumRef: "03250001", BudgetLineOfID: lineOf.ID, Month: domain.MonthMars,
		Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
	credited := domain.Breakdown{ID: uuid.New(), NumRef: "03250002", BudgetLineOfID: lineOf.ID, Month: domain.MonthAvril,
		Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
	require.NoError(t, s.Breakdowns().Create(ctx, &debited))
	require.NoError(t, s.Breakdowns().Create(ctx, &credited))

	derogationID := uuid.New()
	for i := 0; i < 2; i++ {
		line := domain.DerogationLine{ID: uuid.New(), NumRef: domain.DerogationLineRef("0325-0001", i), DerogationID: derogationID,
			DebitedID: debited.ID, CreditedID: credited.ID, Amount: decimal.NewFromInt(1), Audit: domain.Audit{IsActive: true}}
		require.NoError(t, s.DerogationLines().Create(ctx, &line))
	}

	n, err := s.DerogationLines().SetActiveByDerogation(ctx, derogationID, false, "carol", t0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines, err := s.DerogationLines().ListByDerogation(ctx, derogationID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "0325-0001-01", lines[0].NumRef)
	assert.False(t, lines[0].IsActive)
	assert.Equal(t, "carol", lines[1].UpdatedBy)
	require.NotNil(t, lines[0].Debited)
	assert.Equal(t, name.Name, lines[0].Debited.BudgetLineName)
	assert.Equal(t, major.Name, lines[0].Credited.MajorBudgetLineName)
}

func TestDerogationLines_KeepInsertionOrderPastNinetyNine(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	derogationID := uuid.New()

	for i := 0; i < 101; i++ {
		line := domain.DerogationLine{ID: uuid.New(), NumRef: domain.DerogationLineRef("0325-0001", i), DerogationID: derogationID,
			DebitedID: uuid.New(), CreditedID: uuid.New(), Amount: decimal.NewFromInt(1), Audit: domain.Audit{IsActive: true}}
		require.NoError(t, s.DerogationLines().Create(ctx, &line))
	}

	lines, err := s.DerogationLines().ListByDerogation(ctx, derogationID)
	require.NoError(t, err)
	require.Len(t, lines, 101)
	assert.Equal(t, "0325-0001-10", lines[9].NumRef)
	assert.Equal(t, "0325-0001-11", lines[10].NumRef)
	assert.Equal(t, "0325-0001-99", lines[98].NumRef)
	assert.Equal(t, "0325-0001-100", lines[99].NumRef)
	assert.Equal(t, "0325-0001-101", lines[100].NumRef)
}

func TestAnalysisRows_LeftJoinShape(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	major, _, lineOf := seedHierarchy(t, s)

	lonely := domain.MajorBudgetLine{ID: uuid.New(), Code: "61", Name: "services", ServiceID: "svc-1",
		Audit: domain.Audit{IsActive: true, CreatedAt: t0.Add(time.Minute)}}
	require.NoError(t, s.MajorBudgetLines().Create(ctx, &lonely))

	other := domain.MajorBudgetLine{ID: uuid.New(), Code: "62", Name: "autres", ServiceID: "svc-2",
		Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
	require.NoError(t, s.MajorBudgetLines().Create(ctx, &other))

	for _, m := range []domain.Month{domain.MonthAvril, domain.MonthMars} {
		b := domain.Breakdown{ID: uuid.New(), BudgetLineOfID: lineOf.ID, Month: m, EstimatedAmount: decimal.NewFromInt(100),
			Audit: domain.Audit{IsActive: true, CreatedAt: t0}}
		require.NoError(t, s.Breakdowns().Create(ctx, &b))
	}

	from, to := domain.YearWindow(2025)
	rows, err := s.Analysis().AnalysisRows(ctx, domain.AnalysisQuery{ServiceIDs: []string{"svc-1"}, From: from, To: to})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, major.ID, rows[0].MajorBudgetLineID)
	require.NotNil(t, rows[0].BreakdownID)
	assert.Equal(t, lineOf.ID, *rows[1].BudgetLineOfID)
	assert.Equal(t, lonely.ID, rows[2].MajorBudgetLineID)
	assert.Nil(t, rows[2].BudgetLineNameID)

	from, to = domain.YearWindow(2024)
	rows, err = s.Analysis().AnalysisRows(ctx, domain.AnalysisQuery{ServiceIDs: []string{"svc-1"}, From: from, To: to})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0].BudgetLineNameID)
	assert.Nil(t, rows[0].BudgetLineOfID, "line ofs outside the window are skipped")
}
