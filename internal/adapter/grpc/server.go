package grpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/budgetline-backend/internal/domain"
	"github.com/simaogato/budgetline-backend/internal/usecase/analysis"
	"github.com/simaogato/budgetline-backend/internal/usecase/derogation"
	"github.com/simaogato/budgetline-backend/internal/usecase/hierarchy"
	"github.com/simaogato/budgetline-backend/internal/usecase/ledger"
)

// ExportContentType is the media type of ExportAnalysis payloads
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server implements the BudgetLineService gRPC server
type Server struct {
	HierarchyService  *hierarchy.HierarchyService
	LedgerService     *ledger.LedgerService
	DerogationService *derogation.DerogationService
	AnalysisService   *analysis.AnalysisService
}

var _ BudgetLineServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	hierarchyService *hierarchy.HierarchyService,
	ledgerService *ledger.LedgerService,
	derogationService *derogation.DerogationService,
	analysisService *analysis.AnalysisService,
) *Server {
	return &Server{
		HierarchyService:  hierarchyService,
		LedgerService:     ledgerService,
		DerogationService: derogationService,
		AnalysisService:   analysisService,
	}
}

func decodeID(in *structpb.Struct) (uuid.UUID, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return uuid.Nil, err
	}
	if req.ID == uuid.Nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "id is required")
	}
	return req.ID, nil
}

func parseOptionalMonth(s string) (domain.Month, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseMonth(s)
}

// Major budget lines

func (s *Server) CreateMajorBudgetLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createMajorRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.CreateMajorBudgetLine(ctx, hierarchy.CreateMajorBudgetLineInput{
		Code:      req.Code,
		Name:      req.Name,
		ServiceID: req.ServiceID,
		Actor:     actorFrom(ctx),
	})
	return respond(line, err, toMajor)
}

func (s *Server) GetMajorBudgetLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.GetMajorBudgetLine(ctx, id)
	return respond(line, err, toMajor)
}

func (s *Server) ListMajorBudgetLines(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listMajorsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	page, err := s.HierarchyService.ListMajorBudgetLines(ctx, domain.MajorBudgetLineFilter{
		ListParams:     req.params(),
		ServiceID:      req.ServiceID,
		Code:           req.Code,
		NameContains:   req.NameContains,
		NumRefContains: req.NumRefContains,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return encode(toPage(page, toMajor))
}

func (s *Server) UpdateMajorBudgetLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateMajorRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	line, err := s.HierarchyService.UpdateMajorBudgetLine(ctx, hierarchy.UpdateMajorBudgetLineInput{
		ID:        req.ID,
		Code:      req.Code,
		Name:      req.Name,
		ServiceID: req.ServiceID,
		Actor:     actorFrom(ctx),
	})
	return respond(line, err, toMajor)
}

func (s *Server) DeleteMajorBudgetLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.DeleteMajorBudgetLine(ctx, id, actorFrom(ctx))
	return respond(line, err, toMajor)
}

func (s *Server) RestoreMajorBudgetLine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.RestoreMajorBudgetLine(ctx, id, actorFrom(ctx))
	return respond(line, err, toMajor)
}

// Budget line names

func (s *Server) CreateBudgetLineName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createNameRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	name, err := s.HierarchyService.CreateBudgetLineName(ctx, hierarchy.CreateBudgetLineNameInput{
		Code:              req.Code,
		Name:              req.Name,
		MajorBudgetLineID: req.MajorBudgetLineID,
		Actor:             actorFrom(ctx),
	})
	return respond(name, err, toName)
}

func (s *Server) GetBudgetLineName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	name, err := s.HierarchyService.GetBudgetLineName(ctx, id)
	return respond(name, err, toName)
}

func (s *Server) ListBudgetLineNames(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listNamesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	page, err := s.HierarchyService.ListBudgetLineNames(ctx, domain.BudgetLineNameFilter{
		ListParams:        req.params(),
		MajorBudgetLineID: req.MajorBudgetLineID,
		Code:              req.Code,
		NameContains:      req.NameContains,
		NumRefContains:    req.NumRefContains,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return encode(toPage(page, toName))
}

func (s *Server) UpdateBudgetLineName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateNameRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	name, err := s.HierarchyService.UpdateBudgetLineName(ctx, hierarchy.UpdateBudgetLineNameInput{
		ID:                req.ID,
		Code:              req.Code,
		Name:              req.Name,
		MajorBudgetLineID: req.MajorBudgetLineID,
		Actor:             actorFrom(ctx),
	})
	return respond(name, err, toName)
}

func (s *Server) DeleteBudgetLineName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	name, err := s.HierarchyService.DeleteBudgetLineName(ctx, id, actorFrom(ctx))
	return respond(name, err, toName)
}

func (s *Server) RestoreBudgetLineName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	name, err := s.HierarchyService.RestoreBudgetLineName(ctx, id, actorFrom(ctx))
	return respond(name, err, toName)
}

// Budget line ofs

func (s *Server) CreateBudgetLineOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createLineOfRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.CreateBudgetLineOf(ctx, hierarchy.CreateBudgetLineOfInput{
		BudgetLineNameID: req.BudgetLineNameID,
		Actor:            actorFrom(ctx),
	})
	return respond(line, err, toLineOf)
}

func (s *Server) CreateBudgetLineOfWithBreakdowns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createLineOfWithBreakdownsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	entries := make([]hierarchy.BreakdownEntry, 0, len(req.Breakdowns))
	for _, b := range req.Breakdowns {
		month, err := domain.ParseMonth(b.Month)
		if err != nil {
			return nil, mapError(err)
		}
		entries = append(entries, hierarchy.BreakdownEntry{Month: month, EstimatedAmount: b.EstimatedAmount})
	}

	line, err := s.HierarchyService.CreateBudgetLineOfWithBreakdowns(ctx, hierarchy.CreateBudgetLineOfWithBreakdownsInput{
		BudgetLineNameID: req.BudgetLineNameID,
		Actor:            actorFrom(ctx),
		Breakdowns:       entries,
	})
	return respond(line, err, toLineOf)
}

func (s *Server) GetBudgetLineOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.GetBudgetLineOf(ctx, id)
	return respond(line, err, toLineOf)
}

func (s *Server) ListBudgetLineOfs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listLineOfsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	filter := domain.BudgetLineOfFilter{
		ListParams:       req.params(),
		BudgetLineNameID: req.BudgetLineNameID,
		NumRefContains:   req.NumRefContains,
	}
	if req.Year != 0 {
		from, to := domain.YearWindow(req.Year)
		filter.CreatedFrom, filter.CreatedTo = &from, &to
	}
	page, err := s.HierarchyService.ListBudgetLineOfs(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(toPage(page, toLineOf))
}

func (s *Server) UpdateBudgetLineOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateLineOfRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	line, err := s.HierarchyService.UpdateBudgetLineOf(ctx, hierarchy.UpdateBudgetLineOfInput{
		ID:               req.ID,
		BudgetLineNameID: req.BudgetLineNameID,
		Actor:            actorFrom(ctx),
	})
	return respond(line, err, toLineOf)
}

func (s *Server) DeleteBudgetLineOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.DeleteBudgetLineOf(ctx, id, actorFrom(ctx))
	return respond(line, err, toLineOf)
}

func (s *Server) RestoreBudgetLineOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	line, err := s.HierarchyService.RestoreBudgetLineOf(ctx, id, actorFrom(ctx))
	return respond(line, err, toLineOf)
}

// Breakdowns

func (s *Server) CreateBreakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createBreakdownRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	month, err := domain.ParseMonth(req.Month)
	if err != nil {
		return nil, mapError(err)
	}
	breakdown, err := s.LedgerService.CreateBreakdown(ctx, ledger.CreateBreakdownInput{
		BudgetLineOfID:      req.BudgetLineOfID,
		Month:               month,
		EstimatedAmount:     req.EstimatedAmount,
		RealAmount:          req.RealAmount,
		PurchaseOrderAmount: req.PurchaseOrderAmount,
		Actor:               actorFrom(ctx),
	})
	return respond(breakdown, err, toBreakdown)
}

func (s *Server) GetBreakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	detail, err := s.LedgerService.GetBreakdown(ctx, id)
	return respond(detail, err, toBreakdownDetail)
}

func (s *Server) ListBreakdowns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listBreakdownsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	months, err := ledger.SelectMonths(req.Month, req.EndMonth, strings.ToLower(req.Operation))
	if err != nil {
		return nil, mapError(err)
	}
	page, err := s.LedgerService.ListBreakdowns(ctx, domain.BreakdownFilter{
		ListParams:     req.params(),
		BudgetLineOfID: req.BudgetLineOfID,
		Months:         months,
		NumRefContains: req.NumRefContains,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return encode(toPage(page, toBreakdown))
}

func (s *Server) UpdateBreakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateBreakdownRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	input := ledger.UpdateBreakdownInput{
		ID:                  req.ID,
		BudgetLineOfID:      req.BudgetLineOfID,
		EstimatedAmount:     req.EstimatedAmount,
		RealAmount:          req.RealAmount,
		PurchaseOrderAmount: req.PurchaseOrderAmount,
		Amount:              req.Amount,
		Actor:               actorFrom(ctx),
	}
	if req.Month != nil {
		month, err := domain.ParseMonth(*req.Month)
		if err != nil {
			return nil, mapError(err)
		}
		input.Month = &month
	}

	detail, err := s.LedgerService.UpdateBreakdown(ctx, input)
	return respond(detail, err, toBreakdownDetail)
}

func (s *Server) DeleteBreakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	detail, err := s.LedgerService.DeleteBreakdown(ctx, id, actorFrom(ctx))
	return respond(detail, err, toBreakdownDetail)
}

func (s *Server) RestoreBreakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	detail, err := s.LedgerService.RestoreBreakdown(ctx, id, actorFrom(ctx))
	return respond(detail, err, toBreakdownDetail)
}

// Derogations

func (s *Server) CreateDerogation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createDerogationRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	lines := make([]domain.TransferLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, domain.TransferLine{
			DebitedID:  line.DebitedID,
			CreditedID: line.CreditedID,
			Amount:     line.Amount,
		})
	}
	g, err := s.DerogationService.CreateDerogation(ctx, derogation.CreateDerogationInput{
		Description: req.Description,
		Lines:       lines,
		Actor:       actorFrom(ctx),
	})
	return respond(g, err, toDerogation)
}

func (s *Server) GetDerogation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	g, err := s.DerogationService.GetDerogation(ctx, id)
	return respond(g, err, toDerogation)
}

func (s *Server) ListDerogations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listDerogationsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	page, err := s.DerogationService.ListDerogations(ctx, domain.DerogationFilter{
		ListParams:          req.params(),
		NumRefContains:      req.NumRefContains,
		DescriptionContains: req.DescriptionContains,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return encode(toPage(page, toDerogation))
}

func (s *Server) UpdateDerogation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateDerogationRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	g, err := s.DerogationService.UpdateDerogation(ctx, derogation.UpdateDerogationInput{
		ID:          req.ID,
		Description: req.Description,
		Actor:       actorFrom(ctx),
	})
	return respond(g, err, toDerogation)
}

func (s *Server) DeleteDerogation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	g, err := s.DerogationService.DeleteDerogation(ctx, id, actorFrom(ctx))
	return respond(g, err, toDerogation)
}

func (s *Server) RestoreDerogation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := decodeID(in)
	if err != nil {
		return nil, err
	}
	g, err := s.DerogationService.RestoreDerogation(ctx, id, actorFrom(ctx))
	return respond(g, err, toDerogation)
}

// Analysis

func (s *Server) analyse(ctx context.Context, in *structpb.Struct) ([]analysis.MajorLineSummary, error) {
	var req analyseRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	start, err := parseOptionalMonth(req.StartMonth)
	if err != nil {
		return nil, mapError(err)
	}
	end, err := parseOptionalMonth(req.EndMonth)
	if err != nil {
		return nil, mapError(err)
	}

	report, err := s.AnalysisService.Analyse(ctx, analysis.AnalyseInput{
		ServiceIDs: req.ServiceIDs,
		Year:       req.Year,
		StartMonth: start,
		EndMonth:   end,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return report, nil
}

func (s *Server) AnalyseMajorBudgetLines(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.analyse(ctx, in)
	if err != nil {
		return nil, err
	}
	return encode(map[string]any{"majorBudgetLines": toAnalysis(report)})
}

// ExportAnalysis renders the analysis as an XLSX workbook, base64 encoded in "content"
func (s *Server) ExportAnalysis(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.analyse(ctx, in)
	if err != nil {
		return nil, err
	}
	content, err := analysis.ExportXLSX(report)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(map[string]any{
		"filename":    "analyse.xlsx",
		"contentType": ExportContentType,
		"content":     content,
	})
}
