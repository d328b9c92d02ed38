package grpc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	applog "github.com/simaogato/budgetline-backend/internal/log"
)

func TestAuthInterceptor(t *testing.T) {
	validToken := "test-token-123"
	interceptor := AuthInterceptor(validToken)

	tests := []struct {
		name           string
		ctx            context.Context
		handlerCalled  bool
		expectedCode   codes.Code
		expectedErrMsg string
	}{
		{
			name: "Valid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", validToken),
			),
			handlerCalled:  true,
			expectedCode:   codes.OK,
			expectedErrMsg: "",
		},
		{
			name: "Invalid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", "wrong-token"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "invalid token",
		},
		{
			name:           "Missing Token",
			ctx:            context.Background(),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing metadata",
		},
		{
			name: "Missing Authorization Header",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("x-user", "alice"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing authorization header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCalled = true
				return "success", nil
			}

			info := &grpc.UnaryServerInfo{
				FullMethod: "/" + ServiceName + "/GetBreakdown",
			}

			resp, err := interceptor(tt.ctx, "test-request", info, handler)

			assert.Equal(t, tt.handlerCalled, handlerCalled, "handler called status mismatch")

			if tt.expectedCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "success", resp)
			} else {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok, "error should be a gRPC status")
				assert.Equal(t, tt.expectedCode, st.Code())
				assert.Contains(t, st.Message(), tt.expectedErrMsg)
			}
		})
	}
}

func TestIsMutating(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{"/" + ServiceName + "/CreateDerogation", true},
		{"/" + ServiceName + "/UpdateBreakdown", true},
		{"/" + ServiceName + "/DeleteMajorBudgetLine", true},
		{"/" + ServiceName + "/RestoreBudgetLineOf", true},
		{"/" + ServiceName + "/GetBreakdown", false},
		{"/" + ServiceName + "/ListDerogations", false},
		{"/" + ServiceName + "/AnalyseMajorBudgetLines", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isMutating(tt.method), tt.method)
	}
}

func withPeer(ctx context.Context, addr string) context.Context {
	tcp, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(ctx, &peer.Peer{Addr: tcp})
}

func TestRateLimitInterceptor(t *testing.T) {
	interceptor := RateLimitInterceptor(NewMemoryLimiter(2, time.Minute), applog.Discard())
	create := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/CreateBreakdown"}
	get := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetBreakdown"}

	var calls int
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		calls++
		return "ok", nil
	}

	ctx := withPeer(context.Background(), "10.0.0.1:5000")
	other := withPeer(context.Background(), "10.0.0.2:5000")

	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx, nil, create, handler)
		require.NoError(t, err)
	}

	_, err := interceptor(ctx, nil, create, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// Reads and other peers are not counted against the exhausted peer
	_, err = interceptor(ctx, nil, get, handler)
	assert.NoError(t, err)
	_, err = interceptor(other, nil, create, handler)
	assert.NoError(t, err)

	assert.Equal(t, 4, calls)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestRateLimitInterceptor_FailsOpen(t *testing.T) {
	interceptor := RateLimitInterceptor(failingLimiter{}, applog.Discard())
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/CreateDerogation"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestTimeoutInterceptor(t *testing.T) {
	var inflight sync.WaitGroup
	interceptor := TimeoutInterceptor(20*time.Millisecond, &inflight)
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/CreateDerogation"}

	t.Run("fast handler", func(t *testing.T) {
		resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("slow handler completes after the answer", func(t *testing.T) {
		var finished atomic.Bool
		release := make(chan struct{})
		handlerDone := make(chan struct{})

		_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			defer close(handlerDone)
			<-release
			if ctx.Err() == nil {
				finished.Store(true)
			}
			return "late", nil
		})
		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))

		close(release)
		<-handlerDone
		assert.True(t, finished.Load(), "handler context must not be cancelled by the timeout")
	})

	t.Run("timed out handler is tracked until it returns", func(t *testing.T) {
		release := make(chan struct{})
		var finished atomic.Bool

		_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			<-release
			time.Sleep(10 * time.Millisecond)
			finished.Store(true)
			return "late", nil
		})
		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))

		waited := make(chan struct{})
		go func() {
			inflight.Wait()
			close(waited)
		}()

		select {
		case <-waited:
			t.Fatal("inflight released while the handler was still running")
		case <-time.After(20 * time.Millisecond):
		}

		close(release)
		select {
		case <-waited:
		case <-time.After(time.Second):
			t.Fatal("inflight not released after the handler returned")
		}
		assert.True(t, finished.Load())
	})

	t.Run("reads are not wrapped", func(t *testing.T) {
		read := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/ListBreakdowns"}
		resp, err := interceptor(context.Background(), nil, read, func(ctx context.Context, req interface{}) (interface{}, error) {
			time.Sleep(40 * time.Millisecond)
			return "ok", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentGRPC, Output: &buf})
	interceptor := LoggingInterceptor(logger)
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/CreateBreakdown"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.AlreadyExists, "a breakdown with this budget line of and month already exists")
	})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "rpc rejected")
	assert.Contains(t, out, "method=/budgetline.v1.BudgetLineService/CreateBreakdown")
	assert.Contains(t, out, "code=AlreadyExists")
	assert.Contains(t, out, "duration_ms=")
}
