package grpc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/budgetline-backend/internal/domain"
	"github.com/simaogato/budgetline-backend/internal/usecase/analysis"
)

// Response bodies. Amounts are strings with two decimals, timestamps RFC 3339 UTC.

type auditDTO struct {
	IsActive  bool   `json:"isActive"`
	CreatedBy string `json:"createdBy"`
	UpdatedBy string `json:"updatedBy"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toAudit(a domain.Audit) auditDTO {
	return auditDTO{
		IsActive:  a.IsActive,
		CreatedBy: a.CreatedBy,
		UpdatedBy: a.UpdatedBy,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountPlaces)
}

type pageDTO[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func toPage[E any, D any](page domain.Page[*E], convert func(*E) D) pageDTO[D] {
	items := make([]D, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return pageDTO[D]{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}

type majorDTO struct {
	ID              string    `json:"id"`
	NumRef          string    `json:"numRef"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	ServiceID       string    `json:"serviceId"`
	BudgetLineNames []nameDTO `json:"budgetLineNames,omitempty"`
	auditDTO
}

func toMajor(m *domain.MajorBudgetLine) majorDTO {
	out := majorDTO{
		ID:        m.ID.String(),
		NumRef:    m.NumRef,
		Code:      m.Code,
		Name:      m.Name,
		ServiceID: m.ServiceID,
		auditDTO:  toAudit(m.Audit),
	}
	for i := range m.BudgetLineNames {
		out.BudgetLineNames = append(out.BudgetLineNames, toName(&m.BudgetLineNames[i]))
	}
	return out
}

type nameDTO struct {
	ID                string      `json:"id"`
	NumRef            string      `json:"numRef"`
	Code              string      `json:"code"`
	Name              string      `json:"name"`
	MajorBudgetLineID string      `json:"majorBudgetLineId"`
	MajorBudgetLine   *majorDTO   `json:"majorBudgetLine,omitempty"`
	BudgetLineOfs     []lineOfDTO `json:"budgetLineOfs,omitempty"`
	auditDTO
}

func toName(n *domain.BudgetLineName) nameDTO {
	out := nameDTO{
		ID:                n.ID.String(),
		NumRef:            n.NumRef,
		Code:              n.Code,
		Name:              n.Name,
		MajorBudgetLineID: n.MajorBudgetLineID.String(),
		auditDTO:          toAudit(n.Audit),
	}
	if n.MajorBudgetLine != nil {
		major := toMajor(n.MajorBudgetLine)
		out.MajorBudgetLine = &major
	}
	for i := range n.BudgetLineOfs {
		out.BudgetLineOfs = append(out.BudgetLineOfs, toLineOf(&n.BudgetLineOfs[i]))
	}
	return out
}

type lineOfDTO struct {
	ID               string         `json:"id"`
	NumRef           string         `json:"numRef"`
	Year             int            `json:"year"`
	BudgetLineNameID string         `json:"budgetLineNameId"`
	BudgetLineName   *nameDTO       `json:"budgetLineName,omitempty"`
	Breakdowns       []breakdownDTO `json:"breakdowns,omitempty"`
	auditDTO
}

func toLineOf(l *domain.BudgetLineOf) lineOfDTO {
	out := lineOfDTO{
		ID:               l.ID.String(),
		NumRef:           l.NumRef,
		Year:             l.Year(),
		BudgetLineNameID: l.BudgetLineNameID.String(),
		auditDTO:         toAudit(l.Audit),
	}
	if l.BudgetLineName != nil {
		name := toName(l.BudgetLineName)
		out.BudgetLineName = &name
	}
	for i := range l.Breakdowns {
		out.Breakdowns = append(out.Breakdowns, toBreakdown(&l.Breakdowns[i]))
	}
	return out
}

type breakdownDTO struct {
	ID                  string `json:"id"`
	NumRef              string `json:"numRef"`
	BudgetLineOfID      string `json:"budgetLineOfId"`
	Month               string `json:"month"`
	EstimatedAmount     string `json:"estimatedAmount"`
	RealAmount          string `json:"realAmount"`
	PurchaseOrderAmount string `json:"purchaseOrderAmount"`
	auditDTO
}

func toBreakdown(b *domain.Breakdown) breakdownDTO {
	return breakdownDTO{
		ID:                  b.ID.String(),
		NumRef:              b.NumRef,
		BudgetLineOfID:      b.BudgetLineOfID.String(),
		Month:               string(b.Month),
		EstimatedAmount:     amount(b.EstimatedAmount),
		RealAmount:          amount(b.RealAmount),
		PurchaseOrderAmount: amount(b.PurchaseOrderAmount),
		auditDTO:            toAudit(b.Audit),
	}
}

type breakdownDetailDTO struct {
	breakdownDTO
	BudgetLineOfNumRef  string `json:"budgetLineOfNumRef"`
	BudgetLineNameID    string `json:"budgetLineNameId"`
	BudgetLineName      string `json:"budgetLineName"`
	MajorBudgetLineID   string `json:"majorBudgetLineId"`
	MajorBudgetLineName string `json:"majorBudgetLineName"`
}

func toBreakdownDetail(d *domain.BreakdownDetail) breakdownDetailDTO {
	return breakdownDetailDTO{
		breakdownDTO:        toBreakdown(&d.Breakdown),
		BudgetLineOfNumRef:  d.BudgetLineOfNumRef,
		BudgetLineNameID:    d.BudgetLineNameID.String(),
		BudgetLineName:      d.BudgetLineName,
		MajorBudgetLineID:   d.MajorBudgetLineID.String(),
		MajorBudgetLineName: d.MajorBudgetLineName,
	}
}

type derogationLineDTO struct {
	ID           string              `json:"id"`
	NumRef       string              `json:"numRef"`
	DerogationID string              `json:"derogationId"`
	DebitedID    string              `json:"debitedId"`
	CreditedID   string              `json:"creditedId"`
	Amount       string              `json:"amount"`
	Debited      *breakdownDetailDTO `json:"debited,omitempty"`
	Credited     *breakdownDetailDTO `json:"credited,omitempty"`
	auditDTO
}

type derogationDTO struct {
	ID          string              `json:"id"`
	NumRef      string              `json:"numRef"`
	Description string              `json:"description"`
	Lines       []derogationLineDTO `json:"lines"`
	auditDTO
}

func toDerogation(g *domain.Derogation) derogationDTO {
	out := derogationDTO{
		ID:          g.ID.String(),
		NumRef:      g.NumRef,
		Description: g.Description,
		Lines:       make([]derogationLineDTO, 0, len(g.Lines)),
		auditDTO:    toAudit(g.Audit),
	}
	for _, line := range g.Lines {
		dto := derogationLineDTO{
			ID:           line.ID.String(),
			NumRef:       line.NumRef,
			DerogationID: line.DerogationID.String(),
			DebitedID:    line.DebitedID.String(),
			CreditedID:   line.CreditedID.String(),
			Amount:       amount(line.Amount),
			auditDTO:     toAudit(line.Audit),
		}
		if line.Debited != nil {
			debited := toBreakdownDetail(line.Debited)
			dto.Debited = &debited
		}
		if line.Credited != nil {
			credited := toBreakdownDetail(line.Credited)
			dto.Credited = &credited
		}
		out.Lines = append(out.Lines, dto)
	}
	return out
}

type lineOfSummaryDTO struct {
	ID                  string `json:"id"`
	NumRef              string `json:"numRef"`
	EstimatedAmount     string `json:"estimatedAmount"`
	RealAmount          string `json:"realAmount"`
	PurchaseOrderAmount string `json:"purchaseOrderAmount"`
}

type nameSummaryDTO struct {
	ID            string             `json:"id"`
	NumRef        string             `json:"numRef"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	BudgetLineOfs []lineOfSummaryDTO `json:"budgetLineOfs"`
}

type majorSummaryDTO struct {
	ID              string           `json:"id"`
	NumRef          string           `json:"numRef"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	ServiceID       string           `json:"serviceId"`
	BudgetLineNames []nameSummaryDTO `json:"budgetLineNames"`
}

func toAnalysis(report []analysis.MajorLineSummary) []majorSummaryDTO {
	out := make([]majorSummaryDTO, 0, len(report))
	for _, major := range report {
		m := majorSummaryDTO{
			ID:              major.ID.String(),
			NumRef:          major.NumRef,
			Code:            major.Code,
			Name:            major.Name,
			ServiceID:       major.ServiceID,
			BudgetLineNames: make([]nameSummaryDTO, 0, len(major.BudgetLineNames)),
		}
		for _, name := range major.BudgetLineNames {
			n := nameSummaryDTO{
				ID:            name.ID.String(),
				NumRef:        name.NumRef,
				Code:          name.Code,
				Name:          name.Name,
				BudgetLineOfs: make([]lineOfSummaryDTO, 0, len(name.BudgetLineOfs)),
			}
			for _, lineOf := range name.BudgetLineOfs {
				n.BudgetLineOfs = append(n.BudgetLineOfs, lineOfSummaryDTO{
					ID:                  lineOf.ID.String(),
					NumRef:              lineOf.NumRef,
					EstimatedAmount:     amount(lineOf.EstimatedAmount),
					RealAmount:          amount(lineOf.RealAmount),
					PurchaseOrderAmount: amount(lineOf.PurchaseOrderAmount),
				})
			}
			m.BudgetLineNames = append(m.BudgetLineNames, n)
		}
		out = append(out, m)
	}
	return out
}
