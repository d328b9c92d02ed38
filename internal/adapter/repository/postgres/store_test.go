package postgres

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/budgetline-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestWhere_NumbersPlaceholdersInOrder(t *testing.T) {
	active := true
	w := &where{}
	w.active("m.is_active", &active)
	w.add("m.service_id = ?", "svc-1")
	w.contains("m.name", "50%_off")

	clause := w.String()
	order := w.page("m", domain.ListParams{Limit: 10, Offset: 20})

	assert.Equal(t, " WHERE m.is_active = $1 AND m.service_id = $2 AND m.name ILIKE $3", clause)
	assert.Equal(t, " ORDER BY m.created_at ASC, m.seq ASC LIMIT $4 OFFSET $5", order)
	assert.Equal(t, []any{true, "svc-1", `%50\%\_off%`, 10, 20}, w.args)
}

func TestWhere_UnpaginatedAndEmpty(t *testing.T) {
	w := &where{}
	assert.Empty(t, w.String())
	assert.Equal(t, " ORDER BY g.created_at DESC, g.seq DESC", w.page("g", domain.ListParams{Limit: -1, Desc: true}))
	assert.Empty(t, w.args)
}

func TestExcluding(t *testing.T) {
	w := &where{}
	excluding(w, "id", uuid.Nil)
	assert.Empty(t, w.conds)

	id := uuid.New()
	excluding(w, "id", id)
	assert.Equal(t, []string{"id <> $1"}, w.conds)
	assert.Equal(t, []any{id}, w.args)
}

func TestWriteError_MapsUniqueViolations(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "code",
			err:  &pq.Error{Code: "23505", Constraint: "major_budget_lines_code_key"},
			want: domain.ErrDuplicateCode,
		},
		{
			name: "name per major",
			err:  &pq.Error{Code: "23505", Constraint: "budget_line_names_name_major_key"},
			want: domain.ErrDuplicateNamePerParent,
		},
		{
			name: "month",
			err:  &pq.Error{Code: "23505", Constraint: "breakdown_budget_line_ofs_line_month_key"},
			want: domain.ErrDuplicateMonth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writeError("create", tt.err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	other := &pq.Error{Code: "23503", Constraint: "budget_line_names_major_budget_line_id_fkey"}
	err := writeError("create budget line name", other)
	assert.False(t, errors.Is(err, domain.ErrDuplicateCode))
	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
}

func TestReadError(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, readError("breakdown", id, sql.ErrNoRows), domain.ErrNotFound)

	boom := errors.New("conn refused")
	err := readError("breakdown", id, boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10.00", formatAmount(decimal.RequireFromString("10")))
	assert.Equal(t, "0.13", formatAmount(decimal.RequireFromString("0.125")))

	_, err := parseAmount("amount", "abc")
	assert.Error(t, err)
}

func TestDerogationLinesQuery_OrdersByInsertion(t *testing.T) {
	assert.True(t, strings.HasSuffix(strings.TrimSpace(derogationLinesQuery), "ORDER BY seq"))
	assert.NotContains(t, derogationLinesQuery, "ORDER BY num_ref")

	// Text order of the NumRef suffixes breaks after 99 lines
	assert.Less(t, domain.DerogationLineRef("0325-0001", 99), domain.DerogationLineRef("0325-0001", 10))
}
