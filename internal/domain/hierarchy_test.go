package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMajorBudgetLine_Validate(t *testing.T) {
	tests := []struct {
		name    string
		line    MajorBudgetLine
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Lowercased name should pass",
			line:    MajorBudgetLine{Code: "60", Name: "achats", ServiceID: "svc-1"},
			wantErr: false,
		},
		{
			name:    "Empty code should fail",
			line:    MajorBudgetLine{Code: " ", Name: "achats"},
			wantErr: true,
			errMsg:  "major budget line code cannot be empty",
		},
		{
			name:    "Mixed case name should fail",
			line:    MajorBudgetLine{Code: "60", Name: "Achats"},
			wantErr: true,
			errMsg:  "major budget line name must be lowercased",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.wantErr {
				assert.EqualError(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBudgetLineName_Validate(t *testing.T) {
	assert.NoError(t, (&BudgetLineName{Code: "601", Name: "fournitures", MajorBudgetLineID: uuid.New()}).Validate())
	assert.EqualError(t, (&BudgetLineName{Code: "601", Name: "fournitures"}).Validate(),
		"budget line name must have a major budget line ID")
}

func TestBudgetLineOf_Year(t *testing.T) {
	// 23:30 in UTC-5 is already the next year in UTC
	loc := time.FixedZone("UTC-5", -5*60*60)
	l := BudgetLineOf{Audit: Audit{CreatedAt: time.Date(2024, time.December, 31, 23, 30, 0, 0, loc)}}
	assert.Equal(t, 2025, l.Year())
}

func TestYearWindow(t *testing.T) {
	from, to := YearWindow(2025)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), to)
}
