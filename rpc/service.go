package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// unary builds a grpc.MethodHandler that decodes a *Req and dispatches to
// call through the server's interceptor chain.
func unary[Req any](fullMethod string, call func(srv any, ctx context.Context, req *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(srv, ctx, r.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}
