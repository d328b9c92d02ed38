package grpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/budgetline-backend/internal/adapter/repository/memory"
	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
	"github.com/simaogato/budgetline-backend/internal/usecase/analysis"
	"github.com/simaogato/budgetline-backend/internal/usecase/derogation"
	"github.com/simaogato/budgetline-backend/internal/usecase/hierarchy"
	"github.com/simaogato/budgetline-backend/internal/usecase/ledger"
)

const testToken = "test-token"

type client struct {
	t    *testing.T
	conn *grpc.ClientConn
}

func newTestServer(t *testing.T) *client {
	t.Helper()

	store := memory.NewStore()
	server := NewServer(
		hierarchy.NewHierarchyService(store, store),
		ledger.NewLedgerService(store, store),
		derogation.NewDerogationService(store, store, nil),
		analysis.NewAnalysisService(store.Analysis()),
	)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(applog.Discard()),
		AuthInterceptor(testToken),
		RateLimitInterceptor(NewMemoryLimiter(1000, time.Minute), applog.Discard()),
		TimeoutInterceptor(5*time.Second, &sync.WaitGroup{}),
	))
	RegisterBudgetLineServiceServer(s, server)
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
	})
	return &client{t: t, conn: conn}
}

func (c *client) invoke(method string, body map[string]any) (map[string]any, error) {
	c.t.Helper()
	in, err := structpb.NewStruct(body)
	require.NoError(c.t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", testToken, actorHeader, "alice")
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *client) must(method string, body map[string]any) map[string]any {
	c.t.Helper()
	out, err := c.invoke(method, body)
	require.NoError(c.t, err, method)
	return out
}

func currentMonth() string {
	return string(domain.Months[int(time.Now().UTC().Month())-1])
}

// fullYear builds the twelve breakdown entries, zero for months missing from amounts
func fullYear(amounts map[string]any) []any {
	out := make([]any, 0, len(domain.Months))
	for _, m := range domain.Months {
		amount, ok := amounts[string(m)]
		if !ok {
			amount = 0
		}
		out = append(out, map[string]any{"month": string(m), "estimatedAmount": amount})
	}
	return out
}

func breakdownFor(t *testing.T, breakdowns []any, month string) map[string]any {
	t.Helper()
	for _, b := range breakdowns {
		if m := b.(map[string]any); m["month"] == month {
			return m
		}
	}
	t.Fatalf("no breakdown for %s", month)
	return nil
}

func TestServer_HierarchyToDerogationFlow(t *testing.T) {
	c := newTestServer(t)

	major := c.must("CreateMajorBudgetLine", map[string]any{"code": "60", "name": "Achats", "serviceId": "svc-1"})
	assert.Equal(t, "achats", major["name"])
	assert.Equal(t, "alice", major["createdBy"])

	name := c.must("CreateBudgetLineName", map[string]any{"code": "601", "name": "Fournitures", "majorBudgetLineId": major["id"]})
	month := currentMonth()
	other := string(domain.MonthJanvier)
	if month == other {
		other = string(domain.MonthFevrier)
	}
	lineOf := c.must("CreateBudgetLineOfWithBreakdowns", map[string]any{
		"budgetLineNameId": name["id"],
		"breakdowns":       fullYear(map[string]any{month: 50, other: 20}),
	})
	breakdowns := lineOf["breakdowns"].([]any)
	require.Len(t, breakdowns, 12)
	debited := breakdownFor(t, breakdowns, month)
	credited := breakdownFor(t, breakdowns, other)
	assert.Equal(t, "50.00", debited["estimatedAmount"])
	assert.Equal(t, "20.00", credited["estimatedAmount"])

	// Every month already has its breakdown
	_, err := c.invoke("CreateBreakdown", map[string]any{
		"budgetLineOfId":  lineOf["id"],
		"month":           other,
		"estimatedAmount": "20",
	})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	g := c.must("CreateDerogation", map[string]any{
		"description": "Réallocation",
		"lines": []any{
			map[string]any{"debitedId": debited["id"], "creditedId": credited["id"], "amount": "30"},
		},
	})
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-0001$`), g["numRef"])
	lines := g["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, g["numRef"].(string)+"-01", line["numRef"])
	assert.Equal(t, "20.00", line["debited"].(map[string]any)["estimatedAmount"])
	assert.Equal(t, "50.00", line["credited"].(map[string]any)["estimatedAmount"])

	_, err = c.invoke("CreateDerogation", map[string]any{
		"description": "too much",
		"lines": []any{
			map[string]any{"debitedId": debited["id"], "creditedId": credited["id"], "amount": "21"},
		},
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	deleted := c.must("DeleteDerogation", map[string]any{"id": g["id"]})
	assert.Equal(t, false, deleted["isActive"])

	list := c.must("ListDerogations", map[string]any{"limit": 10})
	assert.Equal(t, float64(1), list["total"])
}

func TestServer_AnalyseAndExport(t *testing.T) {
	c := newTestServer(t)

	major := c.must("CreateMajorBudgetLine", map[string]any{"code": "60", "name": "achats", "serviceId": "svc-1"})
	name := c.must("CreateBudgetLineName", map[string]any{"code": "601", "name": "fournitures", "majorBudgetLineId": major["id"]})
	c.must("CreateBudgetLineOfWithBreakdowns", map[string]any{
		"budgetLineNameId": name["id"],
		"breakdowns":       fullYear(map[string]any{"JANVIER": 100, "FEVRIER": 40.5}),
	})

	report := c.must("AnalyseMajorBudgetLines", map[string]any{"serviceIds": []any{"svc-1"}})
	majors := report["majorBudgetLines"].([]any)
	require.Len(t, majors, 1)
	names := majors[0].(map[string]any)["budgetLineNames"].([]any)
	require.Len(t, names, 1)
	lineOfs := names[0].(map[string]any)["budgetLineOfs"].([]any)
	require.Len(t, lineOfs, 1)
	assert.Equal(t, "140.50", lineOfs[0].(map[string]any)["estimatedAmount"])

	export := c.must("ExportAnalysis", map[string]any{"serviceIds": []any{"svc-1"}})
	assert.Equal(t, ExportContentType, export["contentType"])
	content, err := base64.StdEncoding.DecodeString(export["content"].(string))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(analysis.SheetName)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 2)
}

func TestServer_ErrorCodes(t *testing.T) {
	c := newTestServer(t)

	tests := []struct {
		name   string
		method string
		body   map[string]any
		code   codes.Code
	}{
		{"unknown field", "CreateMajorBudgetLine", map[string]any{"code": "60", "label": "x"}, codes.InvalidArgument},
		{"missing id", "GetMajorBudgetLine", map[string]any{}, codes.InvalidArgument},
		{"malformed id", "GetBreakdown", map[string]any{"id": "not-a-uuid"}, codes.InvalidArgument},
		{"absent record", "GetDerogation", map[string]any{"id": "7f1f8d0e-2b7c-4c43-9a55-4d0cbb0a8e11"}, codes.NotFound},
		{"delete absent record", "DeleteBreakdown", map[string]any{"id": "7f1f8d0e-2b7c-4c43-9a55-4d0cbb0a8e11"}, codes.NotFound},
		{"bad month", "CreateBreakdown", map[string]any{"budgetLineOfId": "7f1f8d0e-2b7c-4c43-9a55-4d0cbb0a8e11", "month": "JANUARY"}, codes.InvalidArgument},
		{"no lines", "CreateDerogation", map[string]any{"description": "x", "lines": []any{}}, codes.InvalidArgument},
		{"no services", "AnalyseMajorBudgetLines", map[string]any{}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.invoke(tt.method, tt.body)
			assert.Equal(t, tt.code, status.Code(err), "%v", err)
		})
	}
}

func TestServer_DuplicateCode(t *testing.T) {
	c := newTestServer(t)
	c.must("CreateMajorBudgetLine", map[string]any{"code": "60", "name": "achats", "serviceId": "svc-1"})

	_, err := c.invoke("CreateMajorBudgetLine", map[string]any{"code": "60", "name": "ventes", "serviceId": "svc-1"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestServer_RequiresToken(t *testing.T) {
	c := newTestServer(t)
	out := &structpb.Struct{}
	err := c.conn.Invoke(context.Background(), "/"+ServiceName+"/ListDerogations", &structpb.Struct{}, out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("failed to get breakdown: %w", domain.ErrNotFound), codes.NotFound},
		{fmt.Errorf("line 1: %w", domain.ErrDebitedNotFound), codes.NotFound},
		{domain.ErrCreditedNotFound, codes.NotFound},
		{domain.ErrDuplicateCode, codes.AlreadyExists},
		{domain.ErrDuplicateForYear, codes.AlreadyExists},
		{domain.ErrDuplicateMonth, codes.AlreadyExists},
		{domain.ErrPriorMonth, codes.FailedPrecondition},
		{domain.ErrWrongYear, codes.FailedPrecondition},
		{domain.ErrOverBudget, codes.FailedPrecondition},
		{domain.ErrInsufficientPurchaseOrder, codes.FailedPrecondition},
		{domain.ErrInsufficientFunds, codes.FailedPrecondition},
		{domain.ErrDuplicateTransferPair, codes.InvalidArgument},
		{fmt.Errorf("%w: bad month", domain.ErrInvalidInput), codes.InvalidArgument},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("connection reset"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}
