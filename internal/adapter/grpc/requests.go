package grpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/metadata"

	"github.com/simaogato/budgetline-backend/internal/domain"
)

// actorHeader carries the user name stamped into createdBy/updatedBy
const actorHeader = "x-user"

const defaultActor = "system"

func actorFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(actorHeader); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0])
		}
	}
	return defaultActor
}

type idRequest struct {
	ID uuid.UUID `json:"id"`
}

type listRequest struct {
	Limit    int   `json:"limit"`
	Offset   int   `json:"offset"`
	IsActive *bool `json:"isActive"`
	Desc     bool  `json:"desc"`
}

func (r listRequest) params() domain.ListParams {
	return domain.ListParams{Limit: r.Limit, Offset: r.Offset, IsActive: r.IsActive, Desc: r.Desc}
}

type createMajorRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	ServiceID string `json:"serviceId"`
}

type updateMajorRequest struct {
	ID        uuid.UUID `json:"id"`
	Code      *string   `json:"code"`
	Name      *string   `json:"name"`
	ServiceID *string   `json:"serviceId"`
}

type listMajorsRequest struct {
	listRequest
	ServiceID      string `json:"serviceId"`
	Code           string `json:"code"`
	NameContains   string `json:"name"`
	NumRefContains string `json:"numRef"`
}

type createNameRequest struct {
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	MajorBudgetLineID uuid.UUID `json:"majorBudgetLineId"`
}

type updateNameRequest struct {
	ID                uuid.UUID  `json:"id"`
	Code              *string    `json:"code"`
	Name              *string    `json:"name"`
	MajorBudgetLineID *uuid.UUID `json:"majorBudgetLineId"`
}

type listNamesRequest struct {
	listRequest
	MajorBudgetLineID *uuid.UUID `json:"majorBudgetLineId"`
	Code              string     `json:"code"`
	NameContains      string     `json:"name"`
	NumRefContains    string     `json:"numRef"`
}

type createLineOfRequest struct {
	BudgetLineNameID uuid.UUID `json:"budgetLineNameId"`
}

type breakdownEntryRequest struct {
	Month           string           `json:"month"`
	EstimatedAmount *decimal.Decimal `json:"estimatedAmount"`
}

type createLineOfWithBreakdownsRequest struct {
	BudgetLineNameID uuid.UUID               `json:"budgetLineNameId"`
	Breakdowns       []breakdownEntryRequest `json:"breakdowns"`
}

type updateLineOfRequest struct {
	ID               uuid.UUID  `json:"id"`
	BudgetLineNameID *uuid.UUID `json:"budgetLineNameId"`
}

type listLineOfsRequest struct {
	listRequest
	BudgetLineNameID *uuid.UUID `json:"budgetLineNameId"`
	NumRefContains   string     `json:"numRef"`
	Year             int        `json:"year"`
}

type createBreakdownRequest struct {
	BudgetLineOfID      uuid.UUID       `json:"budgetLineOfId"`
	Month               string          `json:"month"`
	EstimatedAmount     decimal.Decimal `json:"estimatedAmount"`
	RealAmount          decimal.Decimal `json:"realAmount"`
	PurchaseOrderAmount decimal.Decimal `json:"purchaseOrderAmount"`
}

type updateBreakdownRequest struct {
	ID                  uuid.UUID        `json:"id"`
	BudgetLineOfID      *uuid.UUID       `json:"budgetLineOfId"`
	Month               *string          `json:"month"`
	EstimatedAmount     *decimal.Decimal `json:"estimatedAmount"`
	RealAmount          *decimal.Decimal `json:"realAmount"`
	PurchaseOrderAmount *decimal.Decimal `json:"purchaseOrderAmount"`
	Amount              *decimal.Decimal `json:"amount"`
}

type listBreakdownsRequest struct {
	listRequest
	BudgetLineOfID *uuid.UUID `json:"budgetLineOfId"`
	NumRefContains string     `json:"numRef"`
	Month          string     `json:"month"`
	EndMonth       string     `json:"endMonth"`
	Operation      string     `json:"operation"`
}

type transferLineRequest struct {
	DebitedID  uuid.UUID       `json:"debitedId"`
	CreditedID uuid.UUID       `json:"creditedId"`
	Amount     decimal.Decimal `json:"amount"`
}

type createDerogationRequest struct {
	Description string                `json:"description"`
	Lines       []transferLineRequest `json:"lines"`
}

type updateDerogationRequest struct {
	ID          uuid.UUID `json:"id"`
	Description *string   `json:"description"`
}

type listDerogationsRequest struct {
	listRequest
	NumRefContains      string `json:"numRef"`
	DescriptionContains string `json:"description"`
	CreatedBy           string `json:"createdBy"`
}

type analyseRequest struct {
	ServiceIDs []string `json:"serviceIds"`
	Year       int      `json:"year"`
	StartMonth string   `json:"startMonth"`
	EndMonth   string   `json:"endMonth"`
}
