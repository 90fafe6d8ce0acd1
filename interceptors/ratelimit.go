package interceptors

import (
	"context"
	"time"

	"github.com/Keksclan/oncoannot/ratelimit"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

// MethodLimits picks the limiter for an RPC: a per-method entry wins over
// Global. A nil result means the method is unlimited.
type MethodLimits struct {
	Global  *ratelimit.Limiter
	Methods map[string]*ratelimit.Limiter
}

func (m MethodLimits) forMethod(fullMethod string) *ratelimit.Limiter {
	if l := m.Methods[fullMethod]; l != nil {
		return l
	}
	return m.Global
}

// admit returns nil or a ResourceExhausted status carrying a RetryInfo
// detail with the time until the next token.
func (m MethodLimits) admit(fullMethod string) error {
	l := m.forMethod(fullMethod)
	if l == nil {
		return nil
	}
	ok, wait := l.Take()
	if ok {
		return nil
	}
	return rateLimited(fullMethod, wait)
}

func rateLimited(fullMethod string, wait time.Duration) error {
	st := status.New(codes.ResourceExhausted, "rate limit exceeded for "+fullMethod)
	if wait <= 0 {
		return st.Err()
	}
	if withInfo, err := st.WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(wait)}); err == nil {
		st = withInfo
	}
	return st.Err()
}

// RetryDelay extracts the RetryInfo delay from a rate-limit status, or 0.
func RetryDelay(err error) time.Duration {
	st, ok := status.FromError(err)
	if !ok {
		return 0
	}
	for _, d := range st.Details() {
		if ri, ok := d.(*errdetails.RetryInfo); ok {
			return ri.GetRetryDelay().AsDuration()
		}
	}
	return 0
}

// RateLimitUnary rejects unary RPCs whose limiter is exhausted.
func RateLimitUnary(global *ratelimit.Limiter, methods map[string]*ratelimit.Limiter) grpc.UnaryServerInterceptor {
	limits := MethodLimits{Global: global, Methods: methods}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := limits.admit(info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// RateLimitStream rejects streams whose limiter is exhausted.
func RateLimitStream(global *ratelimit.Limiter, methods map[string]*ratelimit.Limiter) grpc.StreamServerInterceptor {
	limits := MethodLimits{Global: global, Methods: methods}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := limits.admit(info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
