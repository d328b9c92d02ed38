//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/budgetline-backend/internal/adapter/grpc"
	"github.com/simaogato/budgetline-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/budgetline-backend/internal/domain"
)

var (
	db       *postgres.DB
	grpcConn *grpc.ClientConn
	runID    string // suffix keeping codes unique across runs against the same database
)

// TestMain sets up the test environment.
// The server under test must run with DATA_BACKEND=postgres against the same database
// and a RATE_LIMIT above the number of mutating calls made here (about 60).
func TestMain(m *testing.M) {
	// 1. Connect to Database
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	defer grpcConn.Close()

	runID = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	// Run tests
	code := m.Run()

	os.Exit(code)
}

// getAuthContext returns a context with authorization metadata
func getAuthContext() context.Context {
	md := metadata.New(map[string]string{
		"authorization": getAPIToken(),
		"x-user":        "integration",
	})
	return metadata.NewOutgoingContext(context.Background(), md)
}

func getAPIToken() string {
	if token := os.Getenv("API_TOKEN"); token != "" {
		return token
	}
	return "dev-token"
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "budgetline"),
	)
}

// getGRPCAddress returns the gRPC server address from environment or defaults
func getGRPCAddress() string {
	return getEnv("GRPC_ADDRESS", "localhost:8080")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func call(ctx context.Context, method string, body map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(body)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := grpcConn.Invoke(ctx, "/"+grpcadapter.ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func mustCall(t *testing.T, ctx context.Context, method string, body map[string]any) map[string]any {
	t.Helper()
	out, err := call(ctx, method, body)
	require.NoError(t, err, "%s should succeed", method)
	return out
}

// hierarchy creates a major line, a name and this year's line of with two breakdowns
var months = []string{
	"JANVIER", "FEVRIER", "MARS", "AVRIL", "MAI", "JUIN",
	"JUILLET", "AOUT", "SEPTEMBRE", "OCTOBRE", "NOVEMBRE", "DECEMBRE",
}

// yearOf builds the twelve monthly entries: first for JANVIER, second for FEVRIER, zero after
func yearOf(first, second int) []any {
	out := make([]any, len(months))
	for i, m := range months {
		amount := 0
		switch i {
		case 0:
			amount = first
		case 1:
			amount = second
		}
		out[i] = map[string]any{"month": m, "estimatedAmount": amount}
	}
	return out
}

func hierarchy(t *testing.T, ctx context.Context, prefix string, first, second int) (lineOfID string, breakdownIDs [2]string) {
	t.Helper()

	code := prefix + runID
	major := mustCall(t, ctx, "CreateMajorBudgetLine", map[string]any{
		"code": code, "name": "major " + code, "serviceId": "svc-" + runID,
	})
	name := mustCall(t, ctx, "CreateBudgetLineName", map[string]any{
		"code": code + "-n", "name": "name " + code, "majorBudgetLineId": major["id"],
	})
	lineOf := mustCall(t, ctx, "CreateBudgetLineOfWithBreakdowns", map[string]any{
		"budgetLineNameId": name["id"],
		"breakdowns":       yearOf(first, second),
	})

	breakdowns := lineOf["breakdowns"].([]any)
	require.Len(t, breakdowns, len(months))
	for i := range breakdownIDs {
		breakdownIDs[i] = breakdowns[i].(map[string]any)["id"].(string)
	}
	return lineOf["id"].(string), breakdownIDs
}

func estimatedInDB(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	var raw string
	err := db.QueryRowContext(context.Background(),
		`SELECT estimated_amount FROM breakdown_budget_line_ofs WHERE id = $1`, id).Scan(&raw)
	require.NoError(t, err)
	return decimal.RequireFromString(raw)
}

func countDerogationsInDB(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM derogations`).Scan(&n))
	return n
}

// TestEndToEndFlow tests the complete flow: hierarchy -> derogation -> delete -> restore
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()
	_, ids := hierarchy(t, ctx, "e2e", 50, 20)
	debited, credited := ids[0], ids[1]

	g := mustCall(t, ctx, "CreateDerogation", map[string]any{
		"description": "Réallocation janvier vers février",
		"lines": []any{
			map[string]any{"debitedId": debited, "creditedId": credited, "amount": "30"},
		},
	})

	prefix := time.Now().UTC().Format("0106") + "-"
	assert.True(t, strings.HasPrefix(g["numRef"].(string), prefix), "numRef %v should start with %s", g["numRef"], prefix)
	assert.Equal(t, "integration", g["createdBy"])

	assert.True(t, estimatedInDB(t, debited).Equal(decimal.RequireFromString("20")))
	assert.True(t, estimatedInDB(t, credited).Equal(decimal.RequireFromString("50")))

	// Delete cascades to the lines and leaves the amounts where they are
	deleted := mustCall(t, ctx, "DeleteDerogation", map[string]any{"id": g["id"]})
	assert.Equal(t, false, deleted["isActive"])

	var activeLines int
	err := db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM derogation_lignes WHERE derogation_id = $1 AND is_active`, g["id"]).Scan(&activeLines)
	require.NoError(t, err)
	assert.Zero(t, activeLines)
	assert.True(t, estimatedInDB(t, debited).Equal(decimal.RequireFromString("20")))

	restored := mustCall(t, ctx, "RestoreDerogation", map[string]any{"id": g["id"]})
	assert.Equal(t, true, restored["isActive"])
	for _, line := range restored["lines"].([]any) {
		assert.Equal(t, true, line.(map[string]any)["isActive"])
	}

	detail := mustCall(t, ctx, "GetBreakdown", map[string]any{"id": credited})
	assert.Equal(t, "50.00", detail["estimatedAmount"])
}

// TestSettlement pays part of a purchase order through UpdateBreakdown
func TestSettlement(t *testing.T) {
	ctx := getAuthContext()
	_, ids := hierarchy(t, ctx, "settle", 100, 10)

	// January is never in the future, so the usage update passes the temporal check
	mustCall(t, ctx, "UpdateBreakdown", map[string]any{"id": ids[0], "purchaseOrderAmount": "40"})
	settled := mustCall(t, ctx, "UpdateBreakdown", map[string]any{"id": ids[0], "amount": "25"})

	assert.Equal(t, "25.00", settled["realAmount"])
	assert.Equal(t, "15.00", settled["purchaseOrderAmount"])

	_, err := call(ctx, "UpdateBreakdown", map[string]any{"id": ids[0], "amount": "16"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = call(ctx, "UpdateBreakdown", map[string]any{"id": ids[0], "realAmount": "90"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "real + purchase order cannot exceed estimated")
}

func TestNegativeScenarios(t *testing.T) {
	ctx := getAuthContext()
	_, ids := hierarchy(t, ctx, "neg", 50, 20)

	// 1. Insufficient funds: nothing is written
	t.Run("InsufficientFunds", func(t *testing.T) {
		before := countDerogationsInDB(t)
		_, err := call(ctx, "CreateDerogation", map[string]any{
			"description": "too much",
			"lines": []any{
				map[string]any{"debitedId": ids[0], "creditedId": ids[1], "amount": "60"},
			},
		})
		require.Error(t, err)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
		assert.Equal(t, before, countDerogationsInDB(t))
		assert.True(t, estimatedInDB(t, ids[0]).Equal(decimal.RequireFromString("50")))
	})

	// 2. A later failing line rolls back the earlier ones
	t.Run("AllOrNothing", func(t *testing.T) {
		_, err := call(ctx, "CreateDerogation", map[string]any{
			"description": "partial",
			"lines": []any{
				map[string]any{"debitedId": ids[0], "creditedId": ids[1], "amount": "10"},
				map[string]any{"debitedId": ids[1], "creditedId": uuid.NewString(), "amount": "5"},
			},
		})
		assert.Equal(t, codes.NotFound, status.Code(err))
		assert.True(t, estimatedInDB(t, ids[0]).Equal(decimal.RequireFromString("50")))
		assert.True(t, estimatedInDB(t, ids[1]).Equal(decimal.RequireFromString("20")))
	})

	// 3. Repeated debited/credited pair
	t.Run("DuplicatePair", func(t *testing.T) {
		line := map[string]any{"debitedId": ids[0], "creditedId": ids[1], "amount": "1"}
		_, err := call(ctx, "CreateDerogation", map[string]any{"description": "dup", "lines": []any{line, line}})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	// 4. Second breakdown for the same month
	t.Run("DuplicateMonth", func(t *testing.T) {
		detail := mustCall(t, ctx, "GetBreakdown", map[string]any{"id": ids[0]})
		_, err := call(ctx, "CreateBreakdown", map[string]any{
			"budgetLineOfId": detail["budgetLineOfId"], "month": "JANVIER", "estimatedAmount": "1",
		})
		assert.Equal(t, codes.AlreadyExists, status.Code(err))
	})

	// 5. Malformed UUID
	t.Run("MalformedUUID", func(t *testing.T) {
		_, err := call(ctx, "GetBreakdown", map[string]any{"id": "not-a-uuid"})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	// 6. Missing token
	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := call(context.Background(), "ListDerogations", map[string]any{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

// TestConcurrentDerogations checks reference numbers stay unique and amounts are conserved
func TestConcurrentDerogations(t *testing.T) {
	ctx := getAuthContext()
	_, ids := hierarchy(t, ctx, "conc", 100, 0)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numRefs = map[string]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := call(ctx, "CreateDerogation", map[string]any{
				"description": "concurrent",
				"lines": []any{
					map[string]any{"debitedId": ids[0], "creditedId": ids[1], "amount": "5"},
				},
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numRefs[g["numRef"].(string)] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numRefs, workers)
	total := estimatedInDB(t, ids[0]).Add(estimatedInDB(t, ids[1]))
	assert.True(t, total.Equal(decimal.RequireFromString("100")), "total estimated is conserved, got %s", total)
	assert.True(t, estimatedInDB(t, ids[1]).Equal(decimal.NewFromInt(5*workers)))
}

func TestAnalysis(t *testing.T) {
	ctx := getAuthContext()
	hierarchy(t, ctx, "ana", 70, 30)

	report := mustCall(t, ctx, "AnalyseMajorBudgetLines", map[string]any{
		"serviceIds": []any{"svc-" + runID},
		"year":       time.Now().UTC().Year(),
		"startMonth": string(domain.MonthJanvier),
		"endMonth":   string(domain.MonthDecembre),
	})

	var found bool
	for _, m := range report["majorBudgetLines"].([]any) {
		major := m.(map[string]any)
		if major["code"] != "ana"+runID {
			continue
		}
		found = true
		lineOfs := major["budgetLineNames"].([]any)[0].(map[string]any)["budgetLineOfs"].([]any)
		require.Len(t, lineOfs, 1)
		assert.Equal(t, "100.00", lineOfs[0].(map[string]any)["estimatedAmount"])
	}
	assert.True(t, found, "major line of this run should be in the report")
}
