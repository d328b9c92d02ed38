package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/budgetline-backend/internal/domain"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrNotFound, codes.NotFound},
	{domain.ErrDebitedNotFound, codes.NotFound},
	{domain.ErrCreditedNotFound, codes.NotFound},

	{domain.ErrDuplicateCode, codes.AlreadyExists},
	{domain.ErrDuplicateName, codes.AlreadyExists},
	{domain.ErrDuplicateNamePerParent, codes.AlreadyExists},
	{domain.ErrDuplicateForYear, codes.AlreadyExists},
	{domain.ErrDuplicateMonth, codes.AlreadyExists},

	{domain.ErrWrongYear, codes.FailedPrecondition},
	{domain.ErrPriorYear, codes.FailedPrecondition},
	{domain.ErrPriorMonth, codes.FailedPrecondition},
	{domain.ErrOverBudget, codes.FailedPrecondition},
	{domain.ErrInsufficientPurchaseOrder, codes.FailedPrecondition},
	{domain.ErrInsufficientFunds, codes.FailedPrecondition},

	{domain.ErrDuplicateTransferPair, codes.InvalidArgument},
	{domain.ErrInvalidInput, codes.InvalidArgument},

	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}

	// Default to Internal error for unknown errors
	return status.Error(codes.Internal, err.Error())
}
