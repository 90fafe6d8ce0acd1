package interceptors

import (
	"context"
	"time"

	"github.com/Keksclan/oncoannot/contextx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that writes one access log
// line per call. Client errors log at Info, server errors at Error.
func LoggingUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = orNop(logger)
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		contextx.Logger(ctx, logger).Log(levelFor(code), "rpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return resp, err
	}
}

// LoggingStream is the stream counterpart of LoggingUnary.
func LoggingStream(logger *zap.Logger) grpc.StreamServerInterceptor {
	logger = orNop(logger)
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		code := status.Code(err)
		contextx.Logger(ss.Context(), logger).Log(levelFor(code), "rpc stream",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
}

func levelFor(c codes.Code) zapcore.Level {
	switch c {
	case codes.OK, codes.InvalidArgument, codes.NotFound, codes.Canceled,
		codes.ResourceExhausted, codes.FailedPrecondition, codes.Unauthenticated, codes.PermissionDenied:
		return zapcore.InfoLevel
	default:
		return zapcore.ErrorLevel
	}
}
