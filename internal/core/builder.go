package core

import "google.golang.org/grpc"

// BuildServerOptions chains the interceptor slices into grpc.ServerOption
// values and appends extra unchanged.
func BuildServerOptions(
	unary []grpc.UnaryServerInterceptor,
	stream []grpc.StreamServerInterceptor,
	chainUnary func([]grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor,
	chainStream func([]grpc.StreamServerInterceptor) grpc.StreamServerInterceptor,
	extra ...grpc.ServerOption,
) []grpc.ServerOption {
	opts := make([]grpc.ServerOption, 0, len(extra)+2)

	if u := chainUnary(unary); u != nil {
		opts = append(opts, grpc.UnaryInterceptor(u))
	}
	if s := chainStream(stream); s != nil {
		opts = append(opts, grpc.StreamInterceptor(s))
	}

	return append(opts, extra...)
}
