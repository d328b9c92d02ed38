package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransferLines(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		lines   []TransferLine
		wantErr error
	}{
		{
			name: "Distinct pairs should pass",
			lines: []TransferLine{
				{DebitedID: a, CreditedID: b, Amount: dec("30.00")},
				{DebitedID: a, CreditedID: c, Amount: dec("5.25")},
				{DebitedID: b, CreditedID: a, Amount: dec("1")},
			},
		},
		{
			name:    "Empty request should fail",
			lines:   nil,
			wantErr: ErrInvalidInput,
		},
		{
			name: "Duplicate pair should fail",
			lines: []TransferLine{
				{DebitedID: a, CreditedID: b, Amount: dec("30.00")},
				{DebitedID: a, CreditedID: b, Amount: dec("10.00")},
			},
			wantErr: ErrDuplicateTransferPair,
		},
		{
			name: "Zero amount should fail",
			lines: []TransferLine{
				{DebitedID: a, CreditedID: b, Amount: decimal.Zero},
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Missing credited id should fail",
			lines: []TransferLine{
				{DebitedID: a, Amount: dec("1")},
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Sub-cent amount should fail",
			lines: []TransferLine{
				{DebitedID: a, CreditedID: b, Amount: dec("0.005")},
			},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransferLines(tt.lines)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDerogation_Validate(t *testing.T) {
	assert.NoError(t, (&Derogation{NumRef: "0325-0001", Description: "transfer"}).Validate())
	assert.EqualError(t, (&Derogation{NumRef: "0325-0001"}).Validate(), "derogation description cannot be empty")
	assert.EqualError(t, (&Derogation{Description: "transfer"}).Validate(), "derogation must have a reference number")
}
