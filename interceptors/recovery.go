package interceptors

import (
	"context"

	"github.com/Keksclan/oncoannot/contextx"
	"github.com/Keksclan/oncoannot/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInternal = status.Error(codes.Internal, "internal server error")

// RecoveryUnary turns a handler panic into codes.Internal. The panic value
// and stack are logged; clients only see a generic message. logger may be
// nil.
func RecoveryUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = orNop(logger)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				resp, err = nil, recovered(ctx, logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream is RecoveryUnary for streams.
func RecoveryStream(logger *zap.Logger) grpc.StreamServerInterceptor {
	logger = orNop(logger)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := context.Background()
				if ss != nil {
					ctx = ss.Context()
				}
				err = recovered(ctx, logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func recovered(ctx context.Context, logger *zap.Logger, method string, r any) error {
	metrics.RPCPanics.WithLabelValues(method).Inc()
	contextx.Logger(ctx, logger).Error("panic in handler",
		zap.String("method", method),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	return errInternal
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
