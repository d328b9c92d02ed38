package grpc

import (
	"context"
	"net"
	"path"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	applog "github.com/simaogato/budgetline-backend/internal/log"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, it calls the handler with the original context.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// isMutating reports whether the RPC writes data
func isMutating(fullMethod string) bool {
	method := path.Base(fullMethod)
	for _, prefix := range []string{"Create", "Update", "Delete", "Restore"} {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

// peerKey identifies the caller by host
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RateLimitInterceptor rejects mutating RPCs past the limiter's budget with ResourceExhausted.
// Limiter failures let the request through.
func RateLimitInterceptor(limiter Limiter, logger *applog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !isMutating(info.FullMethod) {
			return handler(ctx, req)
		}

		key := peerKey(ctx)
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.WarnContext(ctx, "rate limiter unavailable", applog.FieldError, err, applog.FieldPeer, key)
			return handler(ctx, req)
		}
		if !allowed {
			logger.InfoContext(ctx, "rate limit exceeded", applog.FieldPeer, key, applog.FieldMethod, info.FullMethod)
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded, please try again later")
		}
		return handler(ctx, req)
	}
}

// TimeoutInterceptor answers DeadlineExceeded when a mutating RPC runs past timeout.
// The handler keeps running to completion on a context detached from the caller.
// Each handler is counted in inflight until it returns; wait on it before
// releasing anything handlers use.
func TimeoutInterceptor(timeout time.Duration, inflight *sync.WaitGroup) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !isMutating(info.FullMethod) {
			return handler(ctx, req)
		}

		type result struct {
			resp interface{}
			err  error
		}
		done := make(chan result, 1)
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			resp, err := handler(context.WithoutCancel(ctx), req)
			done <- result{resp, err}
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case r := <-done:
			return r.resp, r.err
		case <-timer.C:
			return nil, status.Error(codes.DeadlineExceeded, "request timed out")
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
}

// LoggingInterceptor logs every RPC with its status code and duration
func LoggingInterceptor(logger *applog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		args := []any{
			applog.FieldMethod, info.FullMethod,
			applog.FieldCode, code.String(),
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldPeer, peerKey(ctx),
		}
		switch code {
		case codes.OK:
			logger.InfoContext(ctx, "rpc completed", args...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			logger.Failure(ctx, "rpc failed", err, args...)
		default:
			logger.WarnContext(ctx, "rpc rejected", append(args, applog.FieldError, err)...)
		}
		return resp, err
	}
}
