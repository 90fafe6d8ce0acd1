package interceptors

import (
	"context"
	"slices"

	"google.golang.org/grpc"
)

// ChainUnary composes interceptors so that the first one is outermost. Nil
// entries are dropped; an empty chain yields nil so callers can skip the
// server option entirely.
func ChainUnary(ics []grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	ics = slices.DeleteFunc(slices.Clone(ics), func(ic grpc.UnaryServerInterceptor) bool { return ic == nil })
	switch len(ics) {
	case 0:
		return nil
	case 1:
		return ics[0]
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return ics[0](ctx, req, info, unaryStep(ics, 1, info, handler))
	}
}

// unaryStep returns the handler that runs ics[i:] and then final.
func unaryStep(ics []grpc.UnaryServerInterceptor, i int, info *grpc.UnaryServerInfo, final grpc.UnaryHandler) grpc.UnaryHandler {
	if i == len(ics) {
		return final
	}
	return func(ctx context.Context, req any) (any, error) {
		return ics[i](ctx, req, info, unaryStep(ics, i+1, info, final))
	}
}

// ChainStream is ChainUnary for streaming RPCs.
func ChainStream(ics []grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	ics = slices.DeleteFunc(slices.Clone(ics), func(ic grpc.StreamServerInterceptor) bool { return ic == nil })
	switch len(ics) {
	case 0:
		return nil
	case 1:
		return ics[0]
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return ics[0](srv, ss, info, streamStep(ics, 1, info, handler))
	}
}

func streamStep(ics []grpc.StreamServerInterceptor, i int, info *grpc.StreamServerInfo, final grpc.StreamHandler) grpc.StreamHandler {
	if i == len(ics) {
		return final
	}
	return func(srv any, ss grpc.ServerStream) error {
		return ics[i](srv, ss, info, streamStep(ics, i+1, info, final))
	}
}
