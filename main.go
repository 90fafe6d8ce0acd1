// Package oncoannot serves somatic-variant annotation over gRPC.
//
// A [Server] wraps a [grpc.Server] with ordered middleware (recovery,
// request ids, tracing, access logs, rate limits) and registers the
// Annotator and Health services:
//
//	srv := oncoannot.NewServer(append(oncoannot.DefaultOptions(),
//		oncoannot.WithLogger(logger),
//		oncoannot.WithAnalyzer(agg),
//		oncoannot.WithHealth(checker),
//	)...)
//	_ = srv.Serve(lis)
//
// The reports themselves are produced by package aggregate.
package oncoannot
